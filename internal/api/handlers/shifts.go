package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/internal/storage"
	"github.com/your-org/clockd/pkg/dto"
)

type ShiftHandler struct {
	db *storage.PostgresStore
}

func NewShiftHandler(db *storage.PostgresStore) *ShiftHandler {
	return &ShiftHandler{db: db}
}

// GetActive returns the currently active shift policy, 404 when none exists.
func (h *ShiftHandler) GetActive(c *gin.Context) {
	shift, err := h.db.ActiveShift(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if shift == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active shift configured"})
		return
	}

	c.JSON(http.StatusOK, shiftResponse(shift))
}

// SetActive installs a new active shift policy, replacing the previous one.
func (h *ShiftHandler) SetActive(c *gin.Context) {
	var req dto.SetShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time, want HH:MM"})
		return
	}
	if _, err := time.Parse("15:04", req.EndTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time, want HH:MM"})
		return
	}

	shift := &models.ShiftConfig{
		Name:            req.Name,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		GraceMinutes:    req.GraceMinutes,
		OvertimeMinutes: req.OvertimeMinutes,
	}
	if err := h.db.SetActiveShift(c.Request.Context(), shift); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, shiftResponse(shift))
}

func shiftResponse(s *models.ShiftConfig) dto.ShiftResponse {
	return dto.ShiftResponse{
		ID:              s.ID,
		Name:            s.Name,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		GraceMinutes:    s.GraceMinutes,
		OvertimeMinutes: s.OvertimeMinutes,
		Active:          s.Active,
		CreatedAt:       s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
