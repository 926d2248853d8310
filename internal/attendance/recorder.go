// Package attendance implements the daily check-in/check-out state machine:
// per employee per local calendar day the accepted event sequence is IN, then
// OUT, then nothing — further captures are rejected as day-complete.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/clockd/internal/models"
)

// DayWindow bounds one local calendar day: [Start, End).
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// DecideFunc inspects the day's prior events (timestamp ascending) and
// returns the event to persist, or nil to reject the capture.
type DecideFunc func(prior []models.AttendanceEvent) (*models.AttendanceEvent, error)

// Store is the persistence surface the recorder needs. AppendDayEvent must
// run decide and the subsequent insert atomically per (employee, day): two
// concurrent captures for one employee must not both observe an empty day.
// The Postgres implementation holds an advisory transaction lock; the
// in-memory test store holds a mutex.
type Store interface {
	ActiveShift(ctx context.Context) (*models.ShiftConfig, error)
	AppendDayEvent(ctx context.Context, employeeID *uuid.UUID, window DayWindow, decide DecideFunc) (inserted *models.AttendanceEvent, prior []models.AttendanceEvent, err error)
	DayEvents(ctx context.Context, employeeID uuid.UUID, window DayWindow) ([]models.AttendanceEvent, error)
}

type Status string

const (
	StatusClockIn     Status = "clock_in"
	StatusClockOut    Status = "clock_out"
	StatusDayComplete Status = "day_complete"
)

// Outcome reports what one capture did. For day_complete no row was created
// and DayEvents carries the existing pair.
type Outcome struct {
	Status    Status
	Event     *models.AttendanceEvent
	DayEvents []models.AttendanceEvent
	Message   string
}

// Request is one accepted capture handed to the recorder. A nil EmployeeID
// means the matcher found nobody; the capture is still recorded as an
// anonymous IN for auditing.
type Request struct {
	EmployeeID    *uuid.UUID
	DisplayName   string
	CapturedAt    time.Time // zero means now
	Confidence    float32
	MatchDistance float64
	DeviceID      string
	SnapshotKey   string
}

// Recorder drives the per-day state machine and derives shift flags.
type Recorder struct {
	store Store
	loc   *time.Location
}

func NewRecorder(store Store, loc *time.Location) *Recorder {
	if loc == nil {
		loc = time.Local
	}
	return &Recorder{store: store, loc: loc}
}

// Location returns the timezone day windows are computed in. Date-only input
// must be anchored here; a date parsed as UTC midnight lands on the previous
// local day anywhere behind UTC.
func (r *Recorder) Location() *time.Location {
	return r.loc
}

// Record classifies one capture as IN, OUT or day-complete and persists the
// resulting event. Exactly one row is created per accepted capture; a
// rejected capture creates none.
func (r *Recorder) Record(ctx context.Context, req Request) (*Outcome, error) {
	ts := req.CapturedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.In(r.loc)
	window := r.dayWindow(ts)

	name := req.DisplayName
	if name == "" {
		name = "Unknown"
	}

	// Shift policy is read up front; losing it must never block recording.
	var shift *models.ShiftConfig
	if req.EmployeeID != nil {
		var err error
		shift, err = r.store.ActiveShift(ctx)
		if err != nil {
			slog.Warn("load active shift", "error", err)
			shift = nil
		}
	}

	build := func(et models.EventType) *models.AttendanceEvent {
		ev := &models.AttendanceEvent{
			ID:            uuid.New(),
			EmployeeID:    req.EmployeeID,
			DisplayName:   name,
			Timestamp:     ts,
			Confidence:    req.Confidence,
			MatchDistance: req.MatchDistance,
			EventType:     et,
			DeviceID:      req.DeviceID,
			SnapshotKey:   req.SnapshotKey,
		}
		if req.EmployeeID != nil && shift != nil {
			ev.IsLate, ev.IsEarlyLeave, ev.IsOvertime = shiftFlags(shift, et, ts)
			id := shift.ID
			ev.ShiftID = &id
		}
		return ev
	}

	inserted, prior, err := r.store.AppendDayEvent(ctx, req.EmployeeID, window, func(prior []models.AttendanceEvent) (*models.AttendanceEvent, error) {
		// Unmatched captures bypass the state machine: always an IN row.
		if req.EmployeeID == nil {
			return build(models.EventTypeIn), nil
		}
		switch len(prior) {
		case 0:
			return build(models.EventTypeIn), nil
		case 1:
			return build(models.EventTypeOut), nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("append day event: %w", err)
	}

	if inserted == nil {
		return &Outcome{
			Status:    StatusDayComplete,
			DayEvents: prior,
			Message:   "attendance already completed for today",
		}, nil
	}

	out := &Outcome{Event: inserted}
	switch inserted.EventType {
	case models.EventTypeOut:
		out.Status = StatusClockOut
		out.Message = "clock-out recorded"
	default:
		out.Status = StatusClockIn
		out.Message = "clock-in recorded"
	}
	return out, nil
}

// DayState reports where an employee sits in the per-day state machine.
type DayState string

const (
	DayStateNoEvents    DayState = "no_events"
	DayStateAwaitingOut DayState = "awaiting_out"
	DayStateComplete    DayState = "complete"
)

// DayStatus answers "has this employee already completed the given day?".
// The read is always issued fresh; the recorder caches nothing across
// requests.
func (r *Recorder) DayStatus(ctx context.Context, employeeID uuid.UUID, on time.Time) (DayState, []models.AttendanceEvent, error) {
	events, err := r.store.DayEvents(ctx, employeeID, r.dayWindow(on.In(r.loc)))
	if err != nil {
		return "", nil, fmt.Errorf("load day events: %w", err)
	}
	switch len(events) {
	case 0:
		return DayStateNoEvents, events, nil
	case 1:
		return DayStateAwaitingOut, events, nil
	default:
		return DayStateComplete, events, nil
	}
}

func (r *Recorder) dayWindow(ts time.Time) DayWindow {
	start := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, r.loc)
	return DayWindow{Start: start, End: start.AddDate(0, 0, 1)}
}

// shiftFlags derives lateness/early-leave/overtime for one event against the
// active shift. Early-leave and overtime are computed independently on OUT;
// the data model does not make them mutually exclusive. Any parse failure is
// logged and yields all-false flags: recording attendance outranks computing
// bonus flags.
func shiftFlags(shift *models.ShiftConfig, et models.EventType, ts time.Time) (late, earlyLeave, overtime bool) {
	switch et {
	case models.EventTypeIn:
		start, err := atClock(shift.StartTime, ts)
		if err != nil {
			slog.Warn("parse shift start", "value", shift.StartTime, "error", err)
			return false, false, false
		}
		late = ts.After(start.Add(time.Duration(shift.GraceMinutes) * time.Minute))
	case models.EventTypeOut:
		end, err := atClock(shift.EndTime, ts)
		if err != nil {
			slog.Warn("parse shift end", "value", shift.EndTime, "error", err)
			return false, false, false
		}
		earlyLeave = ts.Before(end)
		overtime = ts.After(end.Add(time.Duration(shift.OvertimeMinutes) * time.Minute))
	}
	return late, earlyLeave, overtime
}

// atClock anchors a local HH:MM string onto the date of ts.
func atClock(hhmm string, ts time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), t.Hour(), t.Minute(), 0, 0, ts.Location()), nil
}
