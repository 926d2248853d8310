package dto

import "github.com/google/uuid"

type SetShiftRequest struct {
	Name            string `json:"name" binding:"required"`
	StartTime       string `json:"start_time" binding:"required"` // HH:MM
	EndTime         string `json:"end_time" binding:"required"`   // HH:MM
	GraceMinutes    int    `json:"grace_minutes"`
	OvertimeMinutes int    `json:"overtime_minutes"`
}

type ShiftResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	GraceMinutes    int       `json:"grace_minutes"`
	OvertimeMinutes int       `json:"overtime_minutes"`
	Active          bool      `json:"active"`
	CreatedAt       string    `json:"created_at"`
}
