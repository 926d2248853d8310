package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateEmployeeRequest struct {
	Code     string          `json:"code" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type EmployeeResponse struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	ProfileCount int             `json:"profile_count"`
	CreatedAt    string          `json:"created_at"`
}

// AddProfileRequest enrolls one feature vector by value. Image-based
// enrollment goes through the multipart form path instead.
type AddProfileRequest struct {
	Vector  []any   `json:"vector" binding:"required"`
	Quality float32 `json:"quality"`
}

type FaceProfileResponse struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Quality    float32   `json:"quality"`
	SourceKey  string    `json:"source_key,omitempty"`
	CreatedAt  string    `json:"created_at"`
}
