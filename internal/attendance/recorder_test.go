package attendance

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/clockd/internal/models"
)

// memStore serializes AppendDayEvent with a mutex, giving the same
// per-(employee, day) atomicity the Postgres store gets from its advisory
// lock.
type memStore struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
	shift  *models.ShiftConfig
}

func (s *memStore) ActiveShift(ctx context.Context) (*models.ShiftConfig, error) {
	return s.shift, nil
}

func (s *memStore) dayEventsLocked(employeeID uuid.UUID, w DayWindow) []models.AttendanceEvent {
	var out []models.AttendanceEvent
	for _, ev := range s.events {
		if ev.EmployeeID == nil || *ev.EmployeeID != employeeID {
			continue
		}
		if ev.Timestamp.Before(w.Start) || !ev.Timestamp.Before(w.End) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (s *memStore) AppendDayEvent(ctx context.Context, employeeID *uuid.UUID, w DayWindow, decide DecideFunc) (*models.AttendanceEvent, []models.AttendanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prior []models.AttendanceEvent
	if employeeID != nil {
		prior = s.dayEventsLocked(*employeeID, w)
	}
	ev, err := decide(prior)
	if err != nil {
		return nil, nil, err
	}
	if ev == nil {
		return nil, prior, nil
	}
	s.events = append(s.events, *ev)
	return ev, prior, nil
}

func (s *memStore) DayEvents(ctx context.Context, employeeID uuid.UUID, w DayWindow) ([]models.AttendanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dayEventsLocked(employeeID, w), nil
}

func testShift() *models.ShiftConfig {
	return &models.ShiftConfig{
		ID:              uuid.New(),
		Name:            "default",
		StartTime:       "08:00",
		EndTime:         "17:00",
		GraceMinutes:    10,
		OvertimeMinutes: 30,
		Active:          true,
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC)
}

func TestRecordFirstCaptureIsClockIn(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()

	out, err := rec.Record(context.Background(), Request{
		EmployeeID:  &emp,
		DisplayName: "Alice",
		CapturedAt:  at(8, 5),
		DeviceID:    "kiosk-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusClockIn, out.Status)
	require.NotNil(t, out.Event)
	assert.Equal(t, models.EventTypeIn, out.Event.EventType)
	assert.False(t, out.Event.IsLate, "08:05 is inside the 10 minute grace")
	assert.NotNil(t, out.Event.ShiftID)
}

func TestRecordSecondCaptureIsClockOut(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()

	_, err := rec.Record(context.Background(), Request{EmployeeID: &emp, DisplayName: "Alice", CapturedAt: at(8, 5)})
	require.NoError(t, err)

	out, err := rec.Record(context.Background(), Request{EmployeeID: &emp, DisplayName: "Alice", CapturedAt: at(17, 45)})
	require.NoError(t, err)
	assert.Equal(t, StatusClockOut, out.Status)
	assert.Equal(t, models.EventTypeOut, out.Event.EventType)
	assert.True(t, out.Event.IsOvertime, "17:45 is past 17:00 plus 30 minutes")
	assert.False(t, out.Event.IsEarlyLeave)
}

func TestRecordThirdCaptureRejectedDayComplete(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	_, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(8, 0)})
	require.NoError(t, err)
	_, err = rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(17, 0)})
	require.NoError(t, err)

	out, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(18, 0)})
	require.NoError(t, err)
	assert.Equal(t, StatusDayComplete, out.Status)
	assert.Nil(t, out.Event)
	assert.Len(t, out.DayEvents, 2)
	assert.Len(t, store.events, 2, "rejected capture must not create a row")

	// Rejection is idempotent.
	out, err = rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(19, 0)})
	require.NoError(t, err)
	assert.Equal(t, StatusDayComplete, out.Status)
	assert.Len(t, store.events, 2)
}

func TestInOutAlternation(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(8+i, 0)})
		require.NoError(t, err)
	}

	events, err := store.DayEvents(ctx, emp, DayWindow{Start: at(0, 0), End: at(0, 0).AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeIn, events[0].EventType)
	assert.Equal(t, models.EventTypeOut, events[1].EventType)
}

func TestLateFlagPastGrace(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()

	out, err := rec.Record(context.Background(), Request{EmployeeID: &emp, CapturedAt: at(8, 15)})
	require.NoError(t, err)
	assert.True(t, out.Event.IsLate, "08:15 is past 08:00 plus 10 minutes grace")
}

func TestEarlyLeaveFlag(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	_, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(8, 0)})
	require.NoError(t, err)

	out, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(16, 30)})
	require.NoError(t, err)
	assert.True(t, out.Event.IsEarlyLeave)
	assert.False(t, out.Event.IsOvertime)
}

func TestNoActiveShiftMeansNoFlags(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()

	out, err := rec.Record(context.Background(), Request{EmployeeID: &emp, CapturedAt: at(11, 0)})
	require.NoError(t, err)
	assert.False(t, out.Event.IsLate)
	assert.Nil(t, out.Event.ShiftID)
}

func TestMalformedShiftTimesStillRecord(t *testing.T) {
	shift := testShift()
	shift.StartTime = "not-a-time"
	shift.EndTime = "also-not"
	store := &memStore{shift: shift}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	out, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, StatusClockIn, out.Status)
	assert.False(t, out.Event.IsLate)

	out, err = rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(18, 0)})
	require.NoError(t, err)
	assert.Equal(t, StatusClockOut, out.Status)
	assert.False(t, out.Event.IsEarlyLeave)
	assert.False(t, out.Event.IsOvertime)
}

func TestUnmatchedCaptureRecordsAnonymousIn(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := rec.Record(ctx, Request{CapturedAt: at(9, i), DeviceID: "kiosk-2"})
		require.NoError(t, err)
		assert.Equal(t, StatusClockIn, out.Status)
		assert.Nil(t, out.Event.EmployeeID)
		assert.Equal(t, models.EventTypeIn, out.Event.EventType)
		assert.Equal(t, "Unknown", out.Event.DisplayName)
		assert.False(t, out.Event.IsLate, "no shift logic for unmatched captures")
		assert.Nil(t, out.Event.ShiftID)
	}
	assert.Len(t, store.events, 3, "every unmatched capture is kept for auditing")
}

func TestDayBoundaryIsLocalMidnight(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	_, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(23, 59)})
	require.NoError(t, err)

	out, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(23, 59).Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, StatusClockIn, out.Status, "00:01 next day starts a fresh day")
}

func TestDayStatus(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	state, _, err := rec.DayStatus(ctx, emp, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, DayStateNoEvents, state)

	_, err = rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(8, 0)})
	require.NoError(t, err)
	state, _, err = rec.DayStatus(ctx, emp, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, DayStateAwaitingOut, state)

	_, err = rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(17, 0)})
	require.NoError(t, err)
	state, events, err := rec.DayStatus(ctx, emp, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, DayStateComplete, state)
	assert.Len(t, events, 2)
}

func TestConcurrentCapturesSingleInSingleOut(t *testing.T) {
	store := &memStore{shift: testShift()}
	rec := NewRecorder(store, time.UTC)
	emp := uuid.New()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := rec.Record(ctx, Request{EmployeeID: &emp, CapturedAt: at(8, 0).Add(time.Duration(i) * time.Second)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ins, outs := 0, 0
	for _, ev := range store.events {
		switch ev.EventType {
		case models.EventTypeIn:
			ins++
		case models.EventTypeOut:
			outs++
		}
	}
	assert.Equal(t, 1, ins, "exactly one IN regardless of contention")
	assert.LessOrEqual(t, outs, 1)
	assert.Len(t, store.events, ins+outs)
}
