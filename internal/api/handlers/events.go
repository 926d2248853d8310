package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/internal/storage"
	"github.com/your-org/clockd/pkg/dto"
)

type EventHandler struct {
	db    *storage.PostgresStore
	minio ObjectStore
}

func NewEventHandler(db *storage.PostgresStore, minio ObjectStore) *EventHandler {
	return &EventHandler{db: db, minio: minio}
}

func (h *EventHandler) List(c *gin.Context) {
	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = &t
		}
	}

	var employeeID *uuid.UUID
	if eidStr := c.Query("employee_id"); eidStr != "" {
		if id, err := uuid.Parse(eidStr); err == nil {
			employeeID = &id
		}
	}

	var unmatched *bool
	if unmatchedStr := c.Query("unmatched"); unmatchedStr != "" {
		b := unmatchedStr == "true" || unmatchedStr == "1"
		unmatched = &b
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.db.QueryEvents(c.Request.Context(), from, to, employeeID, unmatched, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.EventListResponse{Events: eventResponses(events), Total: total})
}

// Snapshot proxies the raw capture image from MinIO.
func (h *EventHandler) Snapshot(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ev == nil || ev.SnapshotKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), ev.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Summaries exposes the payroll day-summary feed.
func (h *EventHandler) Summaries(c *gin.Context) {
	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse("2006-01-02", fromStr); err == nil {
			from = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse("2006-01-02", toStr); err == nil {
			to = &t
		}
	}

	var employeeID *uuid.UUID
	if eidStr := c.Query("employee_id"); eidStr != "" {
		if id, err := uuid.Parse(eidStr); err == nil {
			employeeID = &id
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summaries, err := h.db.ListDaySummaries(c.Request.Context(), from, to, employeeID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.DaySummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		r := dto.DaySummaryResponse{
			EmployeeID:    s.EmployeeID,
			Day:           s.Day.Format("2006-01-02"),
			IsLate:        s.IsLate,
			IsEarlyLeave:  s.IsEarlyLeave,
			IsOvertime:    s.IsOvertime,
			WorkedMinutes: s.WorkedMinutes,
		}
		if s.ClockIn != nil {
			r.ClockIn = s.ClockIn.Format(time.RFC3339)
		}
		if s.ClockOut != nil {
			r.ClockOut = s.ClockOut.Format(time.RFC3339)
		}
		resp = append(resp, r)
	}

	c.JSON(http.StatusOK, gin.H{"summaries": resp, "total": len(resp)})
}

// eventResponse converts a persisted event for the wire, hiding non-finite
// distances JSON cannot carry.
func eventResponse(ev models.AttendanceEvent) dto.EventResponse {
	r := dto.EventResponse{
		ID:            ev.ID,
		EmployeeID:    ev.EmployeeID,
		DisplayName:   ev.DisplayName,
		Timestamp:     ev.Timestamp.Format(time.RFC3339),
		EventType:     string(ev.EventType),
		Confidence:    ev.Confidence,
		MatchDistance: finitePtr(ev.MatchDistance),
		IsLate:        ev.IsLate,
		IsEarlyLeave:  ev.IsEarlyLeave,
		IsOvertime:    ev.IsOvertime,
		ShiftID:       ev.ShiftID,
		DeviceID:      ev.DeviceID,
		CreatedAt:     ev.CreatedAt.Format(time.RFC3339),
	}
	if ev.SnapshotKey != "" {
		r.SnapshotURL = "/v1/attendance/events/" + ev.ID.String() + "/snapshot"
	}
	return r
}

func eventResponses(events []models.AttendanceEvent) []dto.EventResponse {
	out := make([]dto.EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse(ev))
	}
	return out
}
