package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Code      string          `json:"code" db:"code"`
	Name      string          `json:"name" db:"name"`
	Metadata  json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// FaceProfile is one enrolled 128-dimensional feature vector owned by exactly
// one employee. Profiles are created at enrollment and replaced by
// re-enrollment, never mutated in place.
type FaceProfile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EmployeeID uuid.UUID `json:"employee_id" db:"employee_id"`
	Vector     []float64 `json:"vector" db:"vector"`
	Quality    float32   `json:"quality" db:"quality"`
	SourceKey  string    `json:"source_key" db:"source_key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
