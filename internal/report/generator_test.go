package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immoval/server/internal/database"
	"immoval/server/internal/dvf"
	"immoval/server/internal/jobstore"
	"immoval/server/internal/models"
)

func writeFixtureDataset(t *testing.T, dir string) {
	t.Helper()
	content := "date_mutation,valeur_fonciere,code_postal,type_local,surface_reelle_bati,adresse_numero,adresse_nom_voie,nom_commune\n" +
		"2022-03-01,200000,06000,Appartement,50,1,rue de France,Nice\n" +
		"2023-05-01,250000,06000,Appartement,50,12,rue de France,Nice\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "06.csv"), []byte(content), 0644))
}

func newTestGenerator(t *testing.T) (*Generator, *jobstore.Store) {
	t.Helper()

	logger := logrus.New()
	dataDir := t.TempDir()
	writeFixtureDataset(t, dataDir)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	store := jobstore.NewStore(time.Hour, logger)
	service := dvf.NewService(dataDir, logger)
	charts := NewChartRenderer(t.TempDir())

	return NewGenerator(service, charts, store, db, 1, 4, logger), store
}

func TestGenerator_CompletesJob(t *testing.T) {
	generator, store := newTestGenerator(t)
	generator.Start()
	defer generator.Stop()

	job := models.ReportJob{
		ID:           "job-1",
		PostalCode:   "06000",
		PropertyType: "Appartement",
		AreaSqm:      50,
		Status:       models.JobStatusPending,
	}
	_, err := store.Put(job.ID, models.JobStatusPending)
	require.NoError(t, err)
	require.NoError(t, generator.Enqueue(job))

	var got jobstore.Job
	require.Eventually(t, func() bool {
		got, err = store.Get(job.ID)
		return err == nil && got.Status == models.JobStatusComplete
	}, 5*time.Second, 50*time.Millisecond)

	payload, ok := got.Result.(Payload)
	require.True(t, ok)
	assert.Len(t, payload.Comparables.Rows, 2)
	assert.Len(t, payload.Trend, 2)
	assert.Contains(t, payload.Summary, "rue de France")
	if assert.NotEmpty(t, payload.ChartPath) {
		_, statErr := os.Stat(payload.ChartPath)
		assert.NoError(t, statErr)
	}
}

func TestGenerator_MissingDatasetStillCompletes(t *testing.T) {
	generator, store := newTestGenerator(t)
	generator.Start()
	defer generator.Stop()

	job := models.ReportJob{
		ID:         "job-2",
		PostalCode: "75001",
		Status:     models.JobStatusPending,
	}
	_, err := store.Put(job.ID, models.JobStatusPending)
	require.NoError(t, err)
	require.NoError(t, generator.Enqueue(job))

	var got jobstore.Job
	require.Eventually(t, func() bool {
		got, err = store.Get(job.ID)
		return err == nil && got.Status == models.JobStatusComplete
	}, 5*time.Second, 50*time.Millisecond)

	payload, ok := got.Result.(Payload)
	require.True(t, ok)
	assert.True(t, payload.Comparables.Empty())
	assert.Equal(t, models.ReasonDatasetMissing, payload.Comparables.Reason)
	assert.Empty(t, payload.ChartPath)
}

func TestGenerator_QueueFull(t *testing.T) {
	logger := logrus.New()
	store := jobstore.NewStore(time.Hour, logger)
	service := dvf.NewService(t.TempDir(), logger)

	// Queue of one, workers never started.
	generator := NewGenerator(service, nil, store, nil, 1, 1, logger)

	require.NoError(t, generator.Enqueue(models.ReportJob{ID: "a"}))
	assert.Equal(t, ErrQueueFull, generator.Enqueue(models.ReportJob{ID: "b"}))
}

func TestChartRenderer_WritesPNG(t *testing.T) {
	renderer := NewChartRenderer(t.TempDir())

	trend := models.YearlyTrend{
		{Year: 2021, MeanPriceSqm: 4200},
		{Year: 2022, MeanPriceSqm: 4500},
		{Year: 2023, MeanPriceSqm: 4800},
	}

	path, err := renderer.RenderTrend("06000", trend)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestChartRenderer_SinglePointTrend(t *testing.T) {
	renderer := NewChartRenderer(t.TempDir())

	// One valid data point must still produce a chart; only an empty
	// trend goes without one.
	path, err := renderer.RenderTrend("06000", models.YearlyTrend{
		{Year: 2023, MeanPriceSqm: 5000},
	})
	require.NoError(t, err)
	require.NotEmpty(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestChartRenderer_UnwritableOutputDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "charts")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	// The output path exists as a regular file, so the directory
	// cannot be created.
	renderer := NewChartRenderer(filepath.Join(blocker, "nested"))
	_, err := renderer.RenderTrend("06000", models.YearlyTrend{
		{Year: 2022, MeanPriceSqm: 4200},
		{Year: 2023, MeanPriceSqm: 4800},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart directory")
}

func TestChartRenderer_EmptyTrend(t *testing.T) {
	renderer := NewChartRenderer(t.TempDir())

	path, err := renderer.RenderTrend("06000", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}
