package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"immoval/server/internal/database"
	"immoval/server/internal/dvf"
	"immoval/server/internal/jobstore"
	"immoval/server/internal/models"
	"immoval/server/internal/report"
)

type Handler struct {
	dvf       *dvf.Service
	db        *database.Database
	store     *jobstore.Store
	generator *report.Generator
	charts    *report.ChartRenderer
	logger    *logrus.Logger
}

func NewHandler(dvfService *dvf.Service, db *database.Database, store *jobstore.Store,
	generator *report.Generator, charts *report.ChartRenderer, logger *logrus.Logger) *Handler {

	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		dvf:       dvfService,
		db:        db,
		store:     store,
		generator: generator,
		charts:    charts,
		logger:    logger,
	}
}

// FindComparables answers a synchronous comparable-sales query. Pipeline
// failures arrive as reasons inside the result, never as HTTP errors.
func (h *Handler) FindComparables(c *gin.Context) {
	var query models.ComparableQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		h.logger.WithError(err).Error("Failed to parse comparable query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	result := h.dvf.FindComparables(query)
	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"summary": report.Summary(result),
		"geo":     dvf.Locate(result.Rows),
	})
}

// GetTrend returns the yearly mean price-per-sqm for a postal code and
// renders the chart. Missing data is a reason, not an error status.
func (h *Handler) GetTrend(c *gin.Context) {
	postalCode := c.Param("postal_code")
	propertyType := c.Query("type")

	trend, err := h.dvf.YearlyTrend(postalCode, propertyType)
	if err != nil {
		var notFound *dvf.DatasetNotFoundError
		var schema *dvf.SchemaError
		switch {
		case errors.As(err, &notFound):
			c.JSON(http.StatusOK, gin.H{"points": models.YearlyTrend{}, "reason": models.ReasonDatasetMissing})
		case errors.As(err, &schema):
			c.JSON(http.StatusOK, gin.H{"points": models.YearlyTrend{}, "reason": models.ReasonSchemaDrift})
		default:
			h.logger.WithError(err).Error("Failed to compute yearly trend")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trend"})
		}
		return
	}

	chartPath := ""
	if len(trend) > 0 {
		chartPath, err = h.charts.RenderTrend(postalCode, trend)
		if err != nil {
			h.logger.WithError(err).Error("Failed to render trend chart")
			chartPath = ""
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"postal_code": postalCode,
		"points":      trend,
		"chart_path":  chartPath,
	})
}

// CreateReport queues an asynchronous report generation job.
func (h *Handler) CreateReport(c *gin.Context) {
	var query models.ComparableQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		h.logger.WithError(err).Error("Failed to parse report request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	job := models.ReportJob{
		ID:           uuid.NewString(),
		PostalCode:   query.PostalCode,
		Address:      query.Address,
		PropertyType: query.PropertyType,
		AreaSqm:      query.TargetAreaSqm,
		Status:       models.JobStatusPending,
	}

	if _, err := h.store.Put(job.ID, models.JobStatusPending); err != nil {
		h.logger.WithError(err).Error("Failed to register report job")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report service is shutting down"})
		return
	}

	if err := h.generator.Enqueue(job); err != nil {
		h.store.Fail(job.ID, err.Error())
		h.logger.WithError(err).Error("Failed to enqueue report job")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Report queue is full, retry later"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": models.JobStatusPending})
}

// GetReport returns live job progress, falling back to persisted
// history once the job has been evicted from the store.
func (h *Handler) GetReport(c *gin.Context) {
	id := c.Param("id")

	job, err := h.store.Get(id)
	if err == nil {
		c.JSON(http.StatusOK, job)
		return
	}

	persisted, err := h.db.GetReportJob(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up report job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up report"})
		return
	}
	if persisted == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusOK, persisted)
}

// GetReportHistory lists recently generated reports.
func (h *Handler) GetReportHistory(c *gin.Context) {
	jobs, err := h.db.GetRecentReportJobs(20)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list report jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// CreateProspect captures a lead from the public estimation form.
func (h *Handler) CreateProspect(c *gin.Context) {
	var prospect models.Prospect
	if err := c.ShouldBindJSON(&prospect); err != nil {
		h.logger.WithError(err).Error("Failed to parse prospect")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prospect payload"})
		return
	}

	if prospect.Email == "" || prospect.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email are required"})
		return
	}

	if err := h.db.CreateProspect(&prospect); err != nil {
		h.logger.WithError(err).Error("Failed to store prospect")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store prospect"})
		return
	}

	c.JSON(http.StatusCreated, prospect)
}

// GetProspects lists captured leads, newest first.
func (h *Handler) GetProspects(c *gin.Context) {
	prospects, err := h.db.GetProspects(100)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list prospects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list prospects"})
		return
	}
	c.JSON(http.StatusOK, prospects)
}
