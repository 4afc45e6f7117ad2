package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"immoval/server/config"
	"immoval/server/internal/api"
	"immoval/server/internal/database"
	"immoval/server/internal/dvf"
	"immoval/server/internal/jobstore"
	"immoval/server/internal/report"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Data.DatabasePath)
	db, err := database.NewDatabase(cfg.Data.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	dvfService := dvf.NewService(cfg.Data.DatasetDir, logger)
	charts := report.NewChartRenderer(cfg.Data.ChartDir)

	store := jobstore.NewStore(time.Duration(cfg.Reports.JobTTLMinutes)*time.Minute, logger)
	store.Start()
	defer store.Close()

	generator := report.NewGenerator(dvfService, charts, store, db,
		cfg.Reports.WorkerCount, cfg.Reports.QueueSize, logger)
	generator.Start()
	defer generator.Stop()

	handler := api.NewHandler(dvfService, db, store, generator, charts, logger)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
