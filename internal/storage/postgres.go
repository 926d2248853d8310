package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/clockd/internal/attendance"
	"github.com/your-org/clockd/internal/config"
	"github.com/your-org/clockd/internal/match"
	"github.com/your-org/clockd/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Employees ---

func (s *PostgresStore) CreateEmployee(ctx context.Context, code, name string, metadata json.RawMessage) (*models.Employee, error) {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	e := &models.Employee{
		ID:       uuid.New(),
		Code:     code,
		Name:     name,
		Metadata: metadata,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO employees (id, code, name, metadata) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		e.ID, e.Code, e.Name, e.Metadata,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e := &models.Employee{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, metadata, created_at, updated_at FROM employees WHERE id = $1`, id,
	).Scan(&e.ID, &e.Code, &e.Name, &e.Metadata, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, metadata, created_at, updated_at FROM employees ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Metadata, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

func (s *PostgresStore) CountProfiles(ctx context.Context, employeeID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_profiles WHERE employee_id = $1`, employeeID,
	).Scan(&count)
	return count, err
}

// --- Face profiles ---

func (s *PostgresStore) AddFaceProfile(ctx context.Context, employeeID uuid.UUID, vector []float64, quality float32, sourceKey string) (*models.FaceProfile, error) {
	fp := &models.FaceProfile{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Vector:     vector,
		Quality:    quality,
		SourceKey:  sourceKey,
	}
	vec := pgvector.NewVector(toFloat32(vector))
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_profiles (id, employee_id, embedding, quality, source_key) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		fp.ID, fp.EmployeeID, vec, fp.Quality, fp.SourceKey,
	).Scan(&fp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add face profile: %w", err)
	}
	return fp, nil
}

func (s *PostgresStore) DeleteFaceProfile(ctx context.Context, employeeID, profileID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM face_profiles WHERE id = $1 AND employee_id = $2`, profileID, employeeID)
	if err != nil {
		return fmt.Errorf("delete face profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face profile not found")
	}
	return nil
}

func (s *PostgresStore) ListFaceProfiles(ctx context.Context, employeeID uuid.UUID) ([]models.FaceProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employee_id, quality, source_key, created_at FROM face_profiles WHERE employee_id = $1 ORDER BY created_at DESC`,
		employeeID)
	if err != nil {
		return nil, fmt.Errorf("list face profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.FaceProfile
	for rows.Next() {
		var fp models.FaceProfile
		if err := rows.Scan(&fp.ID, &fp.EmployeeID, &fp.Quality, &fp.SourceKey, &fp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face profile: %w", err)
		}
		profiles = append(profiles, fp)
	}
	return profiles, nil
}

// LoadProfiles returns every enrolled (employee, vector) pair for the
// matcher's full scan. Implements match.ProfileSource.
func (s *PostgresStore) LoadProfiles(ctx context.Context) ([]match.ProfileEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fp.employee_id, e.name, fp.embedding
		 FROM face_profiles fp
		 JOIN employees e ON e.id = fp.employee_id`)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	var entries []match.ProfileEntry
	for rows.Next() {
		var entry match.ProfileEntry
		var vec pgvector.Vector
		if err := rows.Scan(&entry.EmployeeID, &entry.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		entry.Vector = toFloat64(vec.Slice())
		entries = append(entries, entry)
	}
	return entries, nil
}

// NearestProfiles is a diagnostics helper: the pgvector index orders enrolled
// profiles by L2 distance to the query without pulling the whole store.
func (s *PostgresStore) NearestProfiles(ctx context.Context, vector []float64, limit int) ([]match.Candidate, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(toFloat32(vector))
	rows, err := s.pool.Query(ctx,
		`SELECT fp.employee_id, e.name, fp.embedding <-> $1 AS distance
		 FROM face_profiles fp
		 JOIN employees e ON e.id = fp.employee_id
		 ORDER BY fp.embedding <-> $1
		 LIMIT $2`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest profiles: %w", err)
	}
	defer rows.Close()

	var out []match.Candidate
	for rows.Next() {
		var c match.Candidate
		if err := rows.Scan(&c.EmployeeID, &c.Name, &c.Distance); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// --- Shift configuration ---

// ActiveShift returns the single active shift policy, or nil when none is
// configured. Implements part of attendance.Store.
func (s *PostgresStore) ActiveShift(ctx context.Context) (*models.ShiftConfig, error) {
	sc := &models.ShiftConfig{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, start_time, end_time, grace_minutes, overtime_minutes, active, created_at, updated_at
		 FROM shift_configs WHERE active ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&sc.ID, &sc.Name, &sc.StartTime, &sc.EndTime, &sc.GraceMinutes, &sc.OvertimeMinutes, &sc.Active, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active shift: %w", err)
	}
	return sc, nil
}

// SetActiveShift installs a new active shift policy, deactivating any
// previous one in the same transaction so at most one row stays active.
func (s *PostgresStore) SetActiveShift(ctx context.Context, sc *models.ShiftConfig) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE shift_configs SET active = false, updated_at = now() WHERE active`); err != nil {
		return fmt.Errorf("deactivate shifts: %w", err)
	}

	sc.ID = uuid.New()
	sc.Active = true
	err = tx.QueryRow(ctx,
		`INSERT INTO shift_configs (id, name, start_time, end_time, grace_minutes, overtime_minutes, active)
		 VALUES ($1, $2, $3, $4, $5, $6, true) RETURNING created_at, updated_at`,
		sc.ID, sc.Name, sc.StartTime, sc.EndTime, sc.GraceMinutes, sc.OvertimeMinutes,
	).Scan(&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}

	return tx.Commit(ctx)
}

// --- Attendance events ---

const eventColumns = `id, employee_id, display_name, timestamp, confidence, match_distance,
	event_type, is_late, is_early_leave, is_overtime, shift_id, device_id, snapshot_key, created_at`

func scanEvent(row pgx.Row) (models.AttendanceEvent, error) {
	var ev models.AttendanceEvent
	err := row.Scan(&ev.ID, &ev.EmployeeID, &ev.DisplayName, &ev.Timestamp, &ev.Confidence, &ev.MatchDistance,
		&ev.EventType, &ev.IsLate, &ev.IsEarlyLeave, &ev.IsOvertime, &ev.ShiftID, &ev.DeviceID, &ev.SnapshotKey, &ev.CreatedAt)
	return ev, err
}

// AppendDayEvent runs decide over the employee's events for the day and
// inserts the result, all inside one transaction holding an advisory lock
// keyed on (employee, day). Two concurrent captures therefore cannot both
// observe an empty day; a partial unique index on (employee_id, day,
// event_type) backstops the lock. Implements attendance.Store.
func (s *PostgresStore) AppendDayEvent(ctx context.Context, employeeID *uuid.UUID, window attendance.DayWindow, decide attendance.DecideFunc) (*models.AttendanceEvent, []models.AttendanceEvent, error) {
	day := window.Start.Format("2006-01-02")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var prior []models.AttendanceEvent
	if employeeID != nil {
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			employeeID.String()+":"+day,
		); err != nil {
			return nil, nil, fmt.Errorf("acquire day lock: %w", err)
		}

		rows, err := tx.Query(ctx,
			`SELECT `+eventColumns+` FROM attendance_events
			 WHERE employee_id = $1 AND day = $2 ORDER BY timestamp ASC`,
			*employeeID, day)
		if err != nil {
			return nil, nil, fmt.Errorf("load day events: %w", err)
		}
		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("scan day event: %w", err)
			}
			prior = append(prior, ev)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("iterate day events: %w", err)
		}
	}

	ev, err := decide(prior)
	if err != nil {
		return nil, nil, err
	}
	if ev == nil {
		return nil, prior, tx.Commit(ctx)
	}

	ev.CreatedAt = time.Now()
	_, err = tx.Exec(ctx,
		`INSERT INTO attendance_events
		 (id, employee_id, display_name, day, timestamp, confidence, match_distance,
		  event_type, is_late, is_early_leave, is_overtime, shift_id, device_id, snapshot_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		ev.ID, ev.EmployeeID, ev.DisplayName, day, ev.Timestamp, ev.Confidence, ev.MatchDistance,
		ev.EventType, ev.IsLate, ev.IsEarlyLeave, ev.IsOvertime, ev.ShiftID, ev.DeviceID, ev.SnapshotKey, ev.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert attendance event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return ev, prior, nil
}

// DayEvents returns one employee's events inside the window, timestamp
// ascending. Implements part of attendance.Store.
func (s *PostgresStore) DayEvents(ctx context.Context, employeeID uuid.UUID, window attendance.DayWindow) ([]models.AttendanceEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM attendance_events
		 WHERE employee_id = $1 AND day = $2 ORDER BY timestamp ASC`,
		employeeID, window.Start.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("day events: %w", err)
	}
	defer rows.Close()

	var events []models.AttendanceEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *PostgresStore) QueryEvents(ctx context.Context, from, to *time.Time, employeeID *uuid.UUID, unmatched *bool, limit, offset int) ([]models.AttendanceEvent, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if from != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}
	if employeeID != nil {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *employeeID)
		argIdx++
	}
	if unmatched != nil && *unmatched {
		baseWhere += " AND employee_id IS NULL"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM attendance_events " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT `+eventColumns+` FROM attendance_events %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.AttendanceEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

// GetEvent returns a single attendance event by ID.
func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.AttendanceEvent, error) {
	ev, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM attendance_events WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

// --- Day summaries (payroll feed) ---

// ApplyEventToSummary folds one accepted event into the (employee, day)
// summary row the payroll collaborator reads. IN keeps the earliest clock-in,
// OUT keeps the latest clock-out; worked minutes are recomputed whenever both
// ends exist.
func (s *PostgresStore) ApplyEventToSummary(ctx context.Context, msg models.EventMessage, loc *time.Location) error {
	if msg.EmployeeID == nil {
		return nil
	}
	day := msg.Timestamp.In(loc).Format("2006-01-02")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	switch msg.EventType {
	case models.EventTypeIn:
		_, err = tx.Exec(ctx,
			`INSERT INTO attendance_day_summaries (employee_id, day, clock_in, is_late, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (employee_id, day) DO UPDATE SET
			   clock_in = LEAST(attendance_day_summaries.clock_in, EXCLUDED.clock_in),
			   is_late = EXCLUDED.is_late,
			   updated_at = now()`,
			*msg.EmployeeID, day, msg.Timestamp, msg.IsLate)
	case models.EventTypeOut:
		_, err = tx.Exec(ctx,
			`INSERT INTO attendance_day_summaries (employee_id, day, clock_out, is_early_leave, is_overtime, updated_at)
			 VALUES ($1, $2, $3, $4, $5, now())
			 ON CONFLICT (employee_id, day) DO UPDATE SET
			   clock_out = GREATEST(attendance_day_summaries.clock_out, EXCLUDED.clock_out),
			   is_early_leave = EXCLUDED.is_early_leave,
			   is_overtime = EXCLUDED.is_overtime,
			   updated_at = now()`,
			*msg.EmployeeID, day, msg.Timestamp, msg.IsEarlyLeave, msg.IsOvertime)
	default:
		return fmt.Errorf("unknown event type %q", msg.EventType)
	}
	if err != nil {
		return fmt.Errorf("upsert day summary: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE attendance_day_summaries
		 SET worked_minutes = GREATEST(0, EXTRACT(EPOCH FROM (clock_out - clock_in)) / 60)::int
		 WHERE employee_id = $1 AND day = $2 AND clock_in IS NOT NULL AND clock_out IS NOT NULL`,
		*msg.EmployeeID, day); err != nil {
		return fmt.Errorf("recompute worked minutes: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListDaySummaries(ctx context.Context, from, to *time.Time, employeeID *uuid.UUID, limit, offset int) ([]models.DaySummary, error) {
	if limit <= 0 {
		limit = 50
	}

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if from != nil {
		baseWhere += fmt.Sprintf(" AND day >= $%d", argIdx)
		args = append(args, from.Format("2006-01-02"))
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND day <= $%d", argIdx)
		args = append(args, to.Format("2006-01-02"))
		argIdx++
	}
	if employeeID != nil {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *employeeID)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT employee_id, day, clock_in, clock_out, is_late, is_early_leave, is_overtime, worked_minutes, updated_at
		 FROM attendance_day_summaries %s ORDER BY day DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list day summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.DaySummary
	for rows.Next() {
		var ds models.DaySummary
		if err := rows.Scan(&ds.EmployeeID, &ds.Day, &ds.ClockIn, &ds.ClockOut,
			&ds.IsLate, &ds.IsEarlyLeave, &ds.IsOvertime, &ds.WorkedMinutes, &ds.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan day summary: %w", err)
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
