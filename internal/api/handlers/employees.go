package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/clockd/internal/feature"
	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/pkg/dto"
)

// EmployeeStore is the slice of the persistence layer the enrollment
// endpoints use. Satisfied by storage.PostgresStore.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, code, name string, metadata json.RawMessage) (*models.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	CountProfiles(ctx context.Context, employeeID uuid.UUID) (int, error)
	AddFaceProfile(ctx context.Context, employeeID uuid.UUID, vector []float64, quality float32, sourceKey string) (*models.FaceProfile, error)
	ListFaceProfiles(ctx context.Context, employeeID uuid.UUID) ([]models.FaceProfile, error)
	DeleteFaceProfile(ctx context.Context, employeeID, profileID uuid.UUID) error
}

type EmployeeHandler struct {
	db    EmployeeStore
	minio ObjectStore
	// EncodeFn extracts a feature vector from image bytes. Set after the
	// vision encoder is initialized; nil disables image-based enrollment.
	EncodeFn func(imageData []byte) ([]float64, float32, error)
}

func NewEmployeeHandler(db EmployeeStore, minio ObjectStore) *EmployeeHandler {
	return &EmployeeHandler{db: db, minio: minio}
}

func (h *EmployeeHandler) Create(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employee, err := h.db.CreateEmployee(c.Request.Context(), req.Code, req.Name, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.EmployeeResponse{
		ID:           employee.ID,
		Code:         employee.Code,
		Name:         employee.Name,
		Metadata:     employee.Metadata,
		ProfileCount: 0,
		CreatedAt:    employee.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *EmployeeHandler) List(c *gin.Context) {
	employees, err := h.db.ListEmployees(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EmployeeResponse, 0, len(employees))
	for _, e := range employees {
		profileCount, err := h.db.CountProfiles(c.Request.Context(), e.ID)
		if err != nil {
			slog.Warn("count face profiles", "employee_id", e.ID, "error", err)
		}
		resp = append(resp, dto.EmployeeResponse{
			ID:           e.ID,
			Code:         e.Code,
			Name:         e.Name,
			Metadata:     e.Metadata,
			ProfileCount: profileCount,
			CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"employees": resp, "total": len(resp)})
}

func (h *EmployeeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	employee, err := h.db.GetEmployee(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if employee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
		return
	}

	profileCount, err := h.db.CountProfiles(c.Request.Context(), id)
	if err != nil {
		slog.Warn("count face profiles", "employee_id", id, "error", err)
	}

	c.JSON(http.StatusOK, dto.EmployeeResponse{
		ID:           employee.ID,
		Code:         employee.Code,
		Name:         employee.Name,
		Metadata:     employee.Metadata,
		ProfileCount: profileCount,
		CreatedAt:    employee.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// AddProfile enrolls a feature vector for an employee. JSON bodies carry the
// vector directly; multipart bodies carry an image the vision encoder turns
// into one.
func (h *EmployeeHandler) AddProfile(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	employee, err := h.db.GetEmployee(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if employee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
		return
	}

	var vector []float64
	var quality float32
	var sourceKey string

	if file, header, ferr := c.Request.FormFile("image"); ferr == nil {
		defer file.Close()

		if h.EncodeFn == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision encoder not initialized"})
			return
		}

		imageData, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
			return
		}

		vector, quality, err = h.EncodeFn(imageData)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
			return
		}

		sourceKey = "enroll/" + employeeID.String() + "/" + uuid.New().String() + "_" + header.Filename
		if err := h.minio.PutObject(c.Request.Context(), sourceKey, imageData, header.Header.Get("Content-Type")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
			return
		}
	} else {
		var req dto.AddProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vector = feature.Coerce(req.Vector)
		quality = req.Quality
		if len(vector) != feature.Dim {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("vector must have %d elements, got %d", feature.Dim, len(vector)),
			})
			return
		}
	}

	fp, err := h.db.AddFaceProfile(c.Request.Context(), employeeID, vector, quality, sourceKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.FaceProfileResponse{
		ID:         fp.ID,
		EmployeeID: fp.EmployeeID,
		Quality:    fp.Quality,
		SourceKey:  fp.SourceKey,
		CreatedAt:  fp.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *EmployeeHandler) ListProfiles(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	profiles, err := h.db.ListFaceProfiles(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceProfileResponse, 0, len(profiles))
	for _, fp := range profiles {
		resp = append(resp, dto.FaceProfileResponse{
			ID:         fp.ID,
			EmployeeID: fp.EmployeeID,
			Quality:    fp.Quality,
			SourceKey:  fp.SourceKey,
			CreatedAt:  fp.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"profiles": resp, "total": len(resp)})
}

func (h *EmployeeHandler) DeleteProfile(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}
	profileID, err := uuid.Parse(c.Param("profileId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	if err := h.db.DeleteFaceProfile(c.Request.Context(), employeeID, profileID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
