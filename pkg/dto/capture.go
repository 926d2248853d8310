package dto

import "github.com/google/uuid"

// CaptureRequest is one kiosk capture attempt. Vectors holds one or more
// frames of the same attempt; elements are deliberately loosely typed
// ([]any) so malformed kiosk payloads degrade to zeros at the coercion
// boundary instead of failing the bind.
type CaptureRequest struct {
	Vectors     [][]any `json:"vectors" binding:"required"`
	Confidence  float32 `json:"confidence"`
	DeviceID    string  `json:"device_id"`
	CapturedAt  string  `json:"captured_at,omitempty"` // RFC3339; empty means now
	ImageBase64 string  `json:"image_base64,omitempty"`
}

// CaptureResponse is the decisive outcome a kiosk renders. Status is one of
// clock_in, clock_out, day_complete, hard_error.
type CaptureResponse struct {
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Matched      bool            `json:"matched"`
	SoftMatch    bool            `json:"soft_match,omitempty"`
	FallbackUsed bool            `json:"fallback_used,omitempty"`
	EmployeeID   *uuid.UUID      `json:"employee_id,omitempty"`
	DisplayName  string          `json:"display_name"`
	Distance     *float64        `json:"distance,omitempty"` // absent when no finite distance exists
	Dispersion   float64         `json:"dispersion"`
	Event        *EventResponse  `json:"event,omitempty"`
	DayEvents    []EventResponse `json:"day_events,omitempty"`
}

// MatchRequest runs identity matching without recording attendance. Either a
// single coarse Threshold or the full Low/High/VarianceCeiling triple may be
// supplied; absent values fall back to server configuration.
type MatchRequest struct {
	Vectors         [][]any  `json:"vectors" binding:"required"`
	Threshold       *float64 `json:"threshold,omitempty"`
	Low             *float64 `json:"low,omitempty"`
	High            *float64 `json:"high,omitempty"`
	VarianceCeiling *float64 `json:"variance_ceiling,omitempty"`
}

type MatchResponse struct {
	Matched        bool           `json:"matched"`
	SoftMatch      bool           `json:"soft_match,omitempty"`
	FallbackUsed   bool           `json:"fallback_used,omitempty"`
	EmployeeID     *uuid.UUID     `json:"employee_id,omitempty"`
	DisplayName    string         `json:"display_name"`
	Distance       *float64       `json:"distance,omitempty"`
	CandidateCount int            `json:"candidate_count"`
	TopCandidate   *CandidateInfo `json:"top_candidate,omitempty"`
	Dispersion     float64        `json:"dispersion"`
	Failed         bool           `json:"failed,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
}

type CandidateInfo struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	Name       string    `json:"name"`
	Distance   *float64  `json:"distance,omitempty"`
}

// DayStatusResponse answers "has this employee already completed today?".
type DayStatusResponse struct {
	EmployeeID uuid.UUID       `json:"employee_id"`
	Date       string          `json:"date"`
	State      string          `json:"state"` // no_events, awaiting_out, complete
	Completed  bool            `json:"completed"`
	Events     []EventResponse `json:"events"`
}
