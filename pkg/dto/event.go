package dto

import "github.com/google/uuid"

type EventResponse struct {
	ID            uuid.UUID  `json:"id"`
	EmployeeID    *uuid.UUID `json:"employee_id,omitempty"`
	DisplayName   string     `json:"display_name"`
	Timestamp     string     `json:"timestamp"`
	EventType     string     `json:"event_type"`
	Confidence    float32    `json:"confidence"`
	MatchDistance *float64   `json:"match_distance,omitempty"`
	IsLate        bool       `json:"is_late"`
	IsEarlyLeave  bool       `json:"is_early_leave"`
	IsOvertime    bool       `json:"is_overtime"`
	ShiftID       *uuid.UUID `json:"shift_id,omitempty"`
	DeviceID      string     `json:"device_id,omitempty"`
	SnapshotURL   string     `json:"snapshot_url,omitempty"`
	CreatedAt     string     `json:"created_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

type DaySummaryResponse struct {
	EmployeeID    uuid.UUID `json:"employee_id"`
	Day           string    `json:"day"`
	ClockIn       string    `json:"clock_in,omitempty"`
	ClockOut      string    `json:"clock_out,omitempty"`
	IsLate        bool      `json:"is_late"`
	IsEarlyLeave  bool      `json:"is_early_leave"`
	IsOvertime    bool      `json:"is_overtime"`
	WorkedMinutes int       `json:"worked_minutes"`
}

// WSEvent is a WebSocket message for real-time dashboard delivery.
type WSEvent struct {
	Type     string        `json:"type"` // attendance_event
	DeviceID string        `json:"device_id,omitempty"`
	Data     EventResponse `json:"data,omitempty"`
}
