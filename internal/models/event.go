package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeIn  EventType = "IN"
	EventTypeOut EventType = "OUT"
)

// AttendanceEvent is one accepted clock event. Rows are immutable: the
// recorder creates exactly one per accepted capture and nothing updates or
// deletes them. EmployeeID is nil for unmatched captures, which are kept so
// administrators can audit them.
type AttendanceEvent struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	EmployeeID    *uuid.UUID `json:"employee_id,omitempty" db:"employee_id"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	Timestamp     time.Time  `json:"timestamp" db:"timestamp"`
	Confidence    float32    `json:"confidence" db:"confidence"`
	MatchDistance float64    `json:"match_distance" db:"match_distance"`
	EventType     EventType  `json:"event_type" db:"event_type"`
	IsLate        bool       `json:"is_late" db:"is_late"`
	IsEarlyLeave  bool       `json:"is_early_leave" db:"is_early_leave"`
	IsOvertime    bool       `json:"is_overtime" db:"is_overtime"`
	ShiftID       *uuid.UUID `json:"shift_id,omitempty" db:"shift_id"`
	DeviceID      string     `json:"device_id" db:"device_id"`
	SnapshotKey   string     `json:"snapshot_key" db:"snapshot_key"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// DaySummary is the per-employee per-day read model the worker maintains for
// payroll: first IN, last OUT and the shift flags folded together.
type DaySummary struct {
	EmployeeID    uuid.UUID  `json:"employee_id" db:"employee_id"`
	Day           time.Time  `json:"day" db:"day"`
	ClockIn       *time.Time `json:"clock_in,omitempty" db:"clock_in"`
	ClockOut      *time.Time `json:"clock_out,omitempty" db:"clock_out"`
	IsLate        bool       `json:"is_late" db:"is_late"`
	IsEarlyLeave  bool       `json:"is_early_leave" db:"is_early_leave"`
	IsOvertime    bool       `json:"is_overtime" db:"is_overtime"`
	WorkedMinutes int        `json:"worked_minutes" db:"worked_minutes"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// EventMessage is the payload published to NATS for every accepted event. The
// API's consumer broadcasts it over WebSocket and the summary worker folds it
// into DaySummary rows.
type EventMessage struct {
	EventID       uuid.UUID  `json:"event_id"`
	EmployeeID    *uuid.UUID `json:"employee_id,omitempty"`
	DisplayName   string     `json:"display_name"`
	Timestamp     time.Time  `json:"timestamp"`
	EventType     EventType  `json:"event_type"`
	Confidence    float32    `json:"confidence"`
	MatchDistance *float64   `json:"match_distance,omitempty"`
	IsLate        bool       `json:"is_late"`
	IsEarlyLeave  bool       `json:"is_early_leave"`
	IsOvertime    bool       `json:"is_overtime"`
	DeviceID      string     `json:"device_id"`
}
