package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"immoval/server/internal/models"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Database{db: db}, nil
}

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Prospect{}, &models.ReportJob{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateProspect stores a captured lead.
func (d *Database) CreateProspect(prospect *models.Prospect) error {
	if err := d.db.Create(prospect).Error; err != nil {
		return fmt.Errorf("failed to create prospect: %w", err)
	}
	return nil
}

// GetProspects returns leads, newest first.
func (d *Database) GetProspects(limit int) ([]models.Prospect, error) {
	var prospects []models.Prospect
	query := d.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&prospects).Error; err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	return prospects, nil
}

// SaveReportJob upserts a report job history row.
func (d *Database) SaveReportJob(job *models.ReportJob) error {
	if err := d.db.Save(job).Error; err != nil {
		return fmt.Errorf("failed to save report job: %w", err)
	}
	return nil
}

// GetReportJob returns nil when the id is unknown.
func (d *Database) GetReportJob(id string) (*models.ReportJob, error) {
	var job models.ReportJob
	err := d.db.First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report job: %w", err)
	}
	return &job, nil
}

// GetRecentReportJobs returns the latest generated reports.
func (d *Database) GetRecentReportJobs(limit int) ([]models.ReportJob, error) {
	var jobs []models.ReportJob
	if err := d.db.Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to query report jobs: %w", err)
	}
	return jobs, nil
}
