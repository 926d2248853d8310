package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/pkg/dto"
)

type fakeEmployeeStore struct {
	employees map[uuid.UUID]*models.Employee
	counts    map[uuid.UUID]int
	countErr  error
}

func (s *fakeEmployeeStore) CreateEmployee(ctx context.Context, code, name string, metadata json.RawMessage) (*models.Employee, error) {
	e := &models.Employee{ID: uuid.New(), Code: code, Name: name, Metadata: metadata}
	s.employees[e.ID] = e
	return e, nil
}

func (s *fakeEmployeeStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return s.employees[id], nil
}

func (s *fakeEmployeeStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	for _, e := range s.employees {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeEmployeeStore) CountProfiles(ctx context.Context, employeeID uuid.UUID) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.counts[employeeID], nil
}

func (s *fakeEmployeeStore) AddFaceProfile(ctx context.Context, employeeID uuid.UUID, vector []float64, quality float32, sourceKey string) (*models.FaceProfile, error) {
	s.counts[employeeID]++
	return &models.FaceProfile{ID: uuid.New(), EmployeeID: employeeID, Vector: vector, Quality: quality, SourceKey: sourceKey}, nil
}

func (s *fakeEmployeeStore) ListFaceProfiles(ctx context.Context, employeeID uuid.UUID) ([]models.FaceProfile, error) {
	return nil, nil
}

func (s *fakeEmployeeStore) DeleteFaceProfile(ctx context.Context, employeeID, profileID uuid.UUID) error {
	return nil
}

// A failing profile count degrades to 0 and must not take the employee
// lookup down with it.
func TestGetEmployeeSurvivesProfileCountFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	emp := &models.Employee{ID: uuid.New(), Code: "E-001", Name: "Alice", Metadata: json.RawMessage("{}")}
	db := &fakeEmployeeStore{
		employees: map[uuid.UUID]*models.Employee{emp.ID: emp},
		counts:    map[uuid.UUID]int{},
		countErr:  fmt.Errorf("connection refused"),
	}

	h := NewEmployeeHandler(db, nil)
	r := gin.New()
	r.GET("/v1/employees/:id", h.Get)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/employees/"+emp.ID.String(), nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.EmployeeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, emp.ID, resp.ID)
	assert.Equal(t, 0, resp.ProfileCount)
}

func TestListEmployeesSurvivesProfileCountFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	emp := &models.Employee{ID: uuid.New(), Code: "E-001", Name: "Alice", Metadata: json.RawMessage("{}")}
	db := &fakeEmployeeStore{
		employees: map[uuid.UUID]*models.Employee{emp.ID: emp},
		counts:    map[uuid.UUID]int{},
		countErr:  fmt.Errorf("connection refused"),
	}

	h := NewEmployeeHandler(db, nil)
	r := gin.New()
	r.GET("/v1/employees", h.List)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/employees", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Employees []dto.EmployeeResponse `json:"employees"`
		Total     int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Employees, 1)
	assert.Equal(t, 0, resp.Employees[0].ProfileCount)
}
