package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftConfig is the company-wide working-hours policy. Historical rows are
// kept; the recorder only ever consults the single active one.
type ShiftConfig struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	StartTime       string    `json:"start_time" db:"start_time"` // local HH:MM
	EndTime         string    `json:"end_time" db:"end_time"`     // local HH:MM
	GraceMinutes    int       `json:"grace_minutes" db:"grace_minutes"`
	OvertimeMinutes int       `json:"overtime_minutes" db:"overtime_minutes"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
