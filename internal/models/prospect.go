package models

import "time"

// Prospect is a captured lead from the public estimation form.
type Prospect struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Report job lifecycle states.
const (
	JobStatusPending  = "pending"
	JobStatusRunning  = "running"
	JobStatusComplete = "complete"
	JobStatusFailed   = "failed"
)

// ReportJob is one asynchronous report generation request and its
// outcome. Persisted for history; live progress sits in the job store.
type ReportJob struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	PostalCode   string    `json:"postal_code"`
	Address      string    `json:"address"`
	PropertyType string    `json:"property_type"`
	AreaSqm      float64   `json:"area_sqm"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	ChartPath    string    `json:"chart_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
