package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"actionitems-backend/internal/schedule/domain"
)

//go:embed migrations/sqlite.sql
var migrationsFS embed.FS

const scheduleColumns = `id, user_id, role_context, frequency, day_of_week, day_of_month, send_time, timezone,
	subject, message, recipients, is_active, last_run, next_run, created_at, updated_at`

// sqliteScheduleRepository implements ScheduleRepository on database/sql.
// Timestamps are stored as UTC unix nanoseconds.
type sqliteScheduleRepository struct {
	db *sql.DB
}

// NewSQLiteScheduleRepository migrates the schema and returns a SQLite-backed
// ScheduleRepository. The db handle should allow a single open connection.
func NewSQLiteScheduleRepository(ctx context.Context, db *sql.DB) (ScheduleRepository, error) {
	schema, err := migrationsFS.ReadFile("migrations/sqlite.sql")
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return nil, fmt.Errorf("migrate scheduled emails: %w", err)
	}
	return &sqliteScheduleRepository{db: db}, nil
}

func (r *sqliteScheduleRepository) Create(ctx context.Context, s *domain.ScheduledEmail) error {
	recipients, err := s.Recipients.Value()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scheduled_action_item_emails(`+scheduleColumns+`)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, string(s.RoleContext), string(s.Frequency), s.DayOfWeek, s.DayOfMonth, s.SendTime, s.Timezone,
		s.Subject, s.Message, recipients, s.IsActive, nanosPtr(s.LastRun), nanos(s.NextRun), nanos(s.CreatedAt), nanos(s.UpdatedAt),
	)
	return err
}

func (r *sqliteScheduleRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledEmail, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM scheduled_action_item_emails WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *sqliteScheduleRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error) {
	return r.query(ctx,
		`SELECT `+scheduleColumns+` FROM scheduled_action_item_emails WHERE user_id = ? ORDER BY rowid ASC`,
		userID,
	)
}

func (r *sqliteScheduleRepository) Update(ctx context.Context, id string, fn MutateFunc) (*domain.ScheduledEmail, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM scheduled_action_item_emails WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}

	recipients, err := s.Recipients.Value()
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE scheduled_action_item_emails SET
		   role_context = ?, frequency = ?, day_of_week = ?, day_of_month = ?, send_time = ?, timezone = ?,
		   subject = ?, message = ?, recipients = ?, is_active = ?, last_run = ?, next_run = ?, updated_at = ?
		 WHERE id = ?`,
		string(s.RoleContext), string(s.Frequency), s.DayOfWeek, s.DayOfMonth, s.SendTime, s.Timezone,
		s.Subject, s.Message, recipients, s.IsActive, nanosPtr(s.LastRun), nanos(s.NextRun), nanos(s.UpdatedAt),
		id,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sqliteScheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_action_item_emails WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sqliteScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledEmail, error) {
	return r.query(ctx,
		`SELECT `+scheduleColumns+` FROM scheduled_action_item_emails
		 WHERE is_active = 1 AND next_run <= ? ORDER BY next_run ASC, rowid ASC`,
		nanos(now),
	)
}

func (r *sqliteScheduleRepository) query(ctx context.Context, query string, args ...any) ([]*domain.ScheduledEmail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []*domain.ScheduledEmail{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.ScheduledEmail, error) {
	var (
		s                             domain.ScheduledEmail
		roleContext, frequency        string
		dayOfWeek, dayOfMonth         sql.NullInt64
		message                       sql.NullString
		lastRun                       sql.NullInt64
		nextRun, createdAt, updatedAt int64
	)
	err := row.Scan(
		&s.ID, &s.UserID, &roleContext, &frequency, &dayOfWeek, &dayOfMonth, &s.SendTime, &s.Timezone,
		&s.Subject, &message, &s.Recipients, &s.IsActive, &lastRun, &nextRun, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.RoleContext = domain.RoleContext(roleContext)
	s.Frequency = domain.Frequency(frequency)
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		s.DayOfWeek = &v
	}
	if dayOfMonth.Valid {
		v := int(dayOfMonth.Int64)
		s.DayOfMonth = &v
	}
	if message.Valid {
		s.Message = &message.String
	}
	if lastRun.Valid {
		t := fromNanos(lastRun.Int64)
		s.LastRun = &t
	}
	s.NextRun = fromNanos(nextRun)
	s.CreatedAt = fromNanos(createdAt)
	s.UpdatedAt = fromNanos(updatedAt)
	return &s, nil
}

func nanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func nanosPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return nanos(*t)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
