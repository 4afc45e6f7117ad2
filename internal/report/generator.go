package report

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"immoval/server/internal/database"
	"immoval/server/internal/dvf"
	"immoval/server/internal/jobstore"
	"immoval/server/internal/models"
)

var ErrQueueFull = errors.New("report queue is full")

// Payload is everything a finished report job hands to the document
// builder: the comparable table, the yearly trend and its chart, and
// the map summary.
type Payload struct {
	Comparables models.ComparableResult `json:"comparables"`
	Summary     string                  `json:"summary"`
	Trend       models.YearlyTrend      `json:"trend"`
	ChartPath   string                  `json:"chart_path,omitempty"`
	Geo         *dvf.GeoSummary         `json:"geo,omitempty"`
}

// Generator runs report jobs on a small worker pool, publishing live
// progress to the job store and history rows to the database.
type Generator struct {
	service   *dvf.Service
	charts    *ChartRenderer
	store     *jobstore.Store
	db        *database.Database
	logger    *logrus.Logger
	jobs      chan models.ReportJob
	workers   int
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewGenerator(service *dvf.Service, charts *ChartRenderer, store *jobstore.Store,
	db *database.Database, workers, queueSize int, logger *logrus.Logger) *Generator {

	ctx, cancel := context.WithCancel(context.Background())
	return &Generator{
		service: service,
		charts:  charts,
		store:   store,
		db:      db,
		logger:  logger,
		jobs:    make(chan models.ReportJob, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (g *Generator) Start() {
	for i := 0; i < g.workers; i++ {
		g.waitGroup.Add(1)
		go g.runLoop()
	}
}

// Stop shuts the workers down and waits for in-flight jobs.
func (g *Generator) Stop() {
	g.cancel()
	g.waitGroup.Wait()
}

// Enqueue hands a job to the pool without blocking the caller.
func (g *Generator) Enqueue(job models.ReportJob) error {
	select {
	case g.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (g *Generator) runLoop() {
	defer g.waitGroup.Done()

	for {
		select {
		case <-g.ctx.Done():
			return
		case job := <-g.jobs:
			g.generate(job)
		}
	}
}

func (g *Generator) generate(job models.ReportJob) {
	g.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"postal_code": job.PostalCode,
	}).Info("Generating report")

	g.store.SetProgress(job.ID, models.JobStatusRunning, 10)

	query := models.ComparableQuery{
		PostalCode:    job.PostalCode,
		Address:       job.Address,
		PropertyType:  job.PropertyType,
		TargetAreaSqm: job.AreaSqm,
	}
	result := g.service.FindComparables(query)
	g.store.SetProgress(job.ID, models.JobStatusRunning, 50)

	trend, err := g.service.YearlyTrend(job.PostalCode, job.PropertyType)
	if err != nil {
		// The comparable result already carries the dataset-level
		// reason; the trend is simply absent.
		g.logger.WithError(err).WithField("job_id", job.ID).Warn("Trend aggregation unavailable")
		trend = nil
	}

	chartPath := ""
	if g.charts != nil && len(trend) > 0 {
		chartPath, err = g.charts.RenderTrend(result.Query.PostalCode, trend)
		if err != nil {
			g.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to render trend chart")
			chartPath = ""
		}
	}
	g.store.SetProgress(job.ID, models.JobStatusRunning, 90)

	payload := Payload{
		Comparables: result,
		Summary:     Summary(result),
		Trend:       trend,
		ChartPath:   chartPath,
		Geo:         dvf.Locate(result.Rows),
	}
	g.store.Complete(job.ID, payload)

	job.Status = models.JobStatusComplete
	job.Reason = result.Reason
	job.ChartPath = chartPath
	if g.db != nil {
		if err := g.db.SaveReportJob(&job); err != nil {
			g.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to persist report job")
		}
	}

	g.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"comparables": len(result.Rows),
		"trend_years": len(trend),
	}).Info("Report generated")
}
