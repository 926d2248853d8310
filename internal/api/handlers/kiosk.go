package handlers

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/clockd/internal/attendance"
	"github.com/your-org/clockd/internal/config"
	"github.com/your-org/clockd/internal/feature"
	"github.com/your-org/clockd/internal/match"
	"github.com/your-org/clockd/internal/models"
	"github.com/your-org/clockd/internal/observability"
	"github.com/your-org/clockd/internal/queue"
	"github.com/your-org/clockd/pkg/dto"
)

// KioskHandler serves the capture endpoints: match-only lookups and the
// combined match-then-record flow a clock terminal drives.
type KioskHandler struct {
	matcher  *match.Matcher
	recorder *attendance.Recorder
	minio    ObjectStore
	producer *queue.Producer
	cfg      config.MatchingConfig
}

func NewKioskHandler(matcher *match.Matcher, recorder *attendance.Recorder, minio ObjectStore, producer *queue.Producer, cfg config.MatchingConfig) *KioskHandler {
	return &KioskHandler{matcher: matcher, recorder: recorder, minio: minio, producer: producer, cfg: cfg}
}

// Capture handles one kiosk capture: match the frames, then run the
// attendance state machine. The kiosk always receives a decisive outcome;
// only a failed event insert becomes a 5xx.
func (h *KioskHandler) Capture(c *gin.Context) {
	var req dto.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capturedAt := time.Time{}
	if req.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captured_at, want RFC3339"})
			return
		}
		capturedAt = t
	}

	vectors := coerceFrames(req.Vectors)

	start := time.Now()
	res := h.matcher.Match(c.Request.Context(), vectors)
	observability.MatchDuration.Observe(time.Since(start).Seconds())
	if !math.IsInf(res.Distance, 1) {
		observability.MatchDistance.Observe(res.Distance)
	}

	if res.Failed {
		observability.CapturesProcessed.WithLabelValues("hard_error").Inc()
		c.JSON(http.StatusOK, dto.CaptureResponse{
			Status:      "hard_error",
			Message:     "matching unavailable, attendance not recorded",
			DisplayName: res.DisplayName,
			Dispersion:  res.Dispersion,
		})
		return
	}

	snapshotKey := h.storeSnapshot(c, req)

	outcome, err := h.recorder.Record(c.Request.Context(), attendance.Request{
		EmployeeID:    res.EmployeeID,
		DisplayName:   res.DisplayName,
		CapturedAt:    capturedAt,
		Confidence:    req.Confidence,
		MatchDistance: res.Distance,
		DeviceID:      req.DeviceID,
		SnapshotKey:   snapshotKey,
	})
	if err != nil {
		h.discardSnapshot(c, snapshotKey)
		observability.CapturesProcessed.WithLabelValues("hard_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.CaptureResponse{
		Status:       string(outcome.Status),
		Message:      outcome.Message,
		Matched:      res.Matched,
		SoftMatch:    res.SoftMatch,
		FallbackUsed: res.FallbackUsed,
		EmployeeID:   res.EmployeeID,
		DisplayName:  res.DisplayName,
		Distance:     finitePtr(res.Distance),
		Dispersion:   res.Dispersion,
	}

	if outcome.Status == attendance.StatusDayComplete {
		// The rejected capture created no event row, so nothing references
		// the uploaded image.
		h.discardSnapshot(c, snapshotKey)
		observability.CapturesProcessed.WithLabelValues("day_complete").Inc()
		resp.DayEvents = eventResponses(outcome.DayEvents)
		c.JSON(http.StatusOK, resp)
		return
	}

	ev := outcome.Event
	observability.CapturesProcessed.WithLabelValues(string(outcome.Status)).Inc()
	observability.EventsRecorded.WithLabelValues(string(ev.EventType)).Inc()

	r := eventResponse(*ev)
	resp.Event = &r

	h.publishEvent(c, ev)

	c.JSON(http.StatusOK, resp)
}

// Match runs identity matching without touching attendance state.
func (h *KioskHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	th := match.Thresholds{
		Low:             h.cfg.LowThreshold,
		High:            h.cfg.HighThreshold,
		VarianceCeiling: h.cfg.VarianceCeiling,
	}
	if req.Threshold != nil {
		th = match.Single(*req.Threshold)
		th.VarianceCeiling = h.cfg.VarianceCeiling
	}
	if req.Low != nil {
		th.Low = *req.Low
	}
	if req.High != nil {
		th.High = *req.High
	}
	if req.VarianceCeiling != nil {
		th.VarianceCeiling = *req.VarianceCeiling
	}

	start := time.Now()
	res := h.matcher.MatchWith(c.Request.Context(), coerceFrames(req.Vectors), th)
	observability.MatchDuration.Observe(time.Since(start).Seconds())

	resp := dto.MatchResponse{
		Matched:        res.Matched,
		SoftMatch:      res.SoftMatch,
		FallbackUsed:   res.FallbackUsed,
		EmployeeID:     res.EmployeeID,
		DisplayName:    res.DisplayName,
		Distance:       finitePtr(res.Distance),
		CandidateCount: res.CandidateCount,
		Dispersion:     res.Dispersion,
		Failed:         res.Failed,
		FailureReason:  res.FailureReason,
	}
	if res.TopCandidate != nil {
		resp.TopCandidate = &dto.CandidateInfo{
			EmployeeID: res.TopCandidate.EmployeeID,
			Name:       res.TopCandidate.Name,
			Distance:   finitePtr(res.TopCandidate.Distance),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// DayStatus answers whether an employee has already completed the given day.
func (h *KioskHandler) DayStatus(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	loc := h.recorder.Location()
	on := time.Now().In(loc)
	if dateStr := c.Query("date"); dateStr != "" {
		t, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		on = t
	}

	state, events, err := h.recorder.DayStatus(c.Request.Context(), employeeID, on)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.DayStatusResponse{
		EmployeeID: employeeID,
		Date:       on.Format("2006-01-02"),
		State:      string(state),
		Completed:  state == attendance.DayStateComplete,
		Events:     eventResponses(events),
	})
}

func (h *KioskHandler) storeSnapshot(c *gin.Context, req dto.CaptureRequest) string {
	if req.ImageBase64 == "" || h.minio == nil {
		return ""
	}
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		slog.Warn("decode capture image", "error", err)
		return ""
	}
	device := req.DeviceID
	if device == "" {
		device = "unknown"
	}
	key := fmt.Sprintf("captures/%s/%s.jpg", device, uuid.New().String())
	if err := h.minio.PutObject(c.Request.Context(), key, data, "image/jpeg"); err != nil {
		slog.Warn("store capture snapshot", "error", err)
		return ""
	}
	return key
}

// discardSnapshot removes an uploaded capture image that no event row ended
// up referencing.
func (h *KioskHandler) discardSnapshot(c *gin.Context, key string) {
	if key == "" || h.minio == nil {
		return
	}
	if err := h.minio.DeleteObject(c.Request.Context(), key); err != nil {
		slog.Warn("discard capture snapshot", "key", key, "error", err)
	}
}

func (h *KioskHandler) publishEvent(c *gin.Context, ev *models.AttendanceEvent) {
	if h.producer == nil {
		return
	}
	msg := models.EventMessage{
		EventID:       ev.ID,
		EmployeeID:    ev.EmployeeID,
		DisplayName:   ev.DisplayName,
		Timestamp:     ev.Timestamp,
		EventType:     ev.EventType,
		Confidence:    ev.Confidence,
		MatchDistance: finitePtr(ev.MatchDistance),
		IsLate:        ev.IsLate,
		IsEarlyLeave:  ev.IsEarlyLeave,
		IsOvertime:    ev.IsOvertime,
		DeviceID:      ev.DeviceID,
	}
	if err := h.producer.PublishEvent(c.Request.Context(), ev.DeviceID, msg); err != nil {
		slog.Warn("publish attendance event", "error", err, "event_id", ev.ID)
	}
}

// coerceFrames runs every frame through the numeric coercion boundary and
// drops frames that coerce to nothing.
func coerceFrames(raw [][]any) [][]float64 {
	out := make([][]float64, 0, len(raw))
	for _, frame := range raw {
		if v := feature.Coerce(frame); len(v) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// finitePtr hides non-finite distances from JSON, which cannot encode them.
func finitePtr(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
