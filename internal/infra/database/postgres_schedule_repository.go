// internal/infra/database/postgres_schedule_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"birthday_notification_service/internal/domain/schedule"
	"birthday_notification_service/internal/domain/user"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// Custom errors specific to the schedule repository
var ErrOccurrenceNotFound = fmt.Errorf("scheduled occurrence not found")
var ErrDuplicateOccurrence = fmt.Errorf("duplicate scheduled occurrence (user_id, kind)")

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, o *schedule.Occurrence) error {
	query := `INSERT INTO scheduled_notifications (user_id, kind, scheduled_for, status, attempts)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, o.UserID, o.Kind, o.ScheduledFor, o.Status, o.Attempts).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueOccurrenceViolation(err) {
			return ErrDuplicateOccurrence
		}
		return fmt.Errorf("error creating scheduled occurrence: %w", err)
	}
	return nil
}

// uniqueOccurrenceConstraint enforces at most one occurrence per
// (user_id, kind); its name must match migrations/001_init.sql.
const uniqueOccurrenceConstraint = "scheduled_notifications_user_kind_unique"

func isUniqueOccurrenceViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == uniqueOccurrenceConstraint
	}
	// Errors that reached us already flattened to text.
	return strings.Contains(err.Error(), uniqueOccurrenceConstraint)
}

const occurrenceColumns = `o.id, o.user_id, o.kind, o.scheduled_for, o.status, o.attempts, o.sent_at, o.created_at, o.updated_at,
               u.id, u.first_name, u.last_name, u.birth_date, u.location, u.timezone, u.created_at, u.updated_at`

// scanOccurrence reads one joined occurrence+user row.
func scanOccurrence(row interface{ Scan(...any) error }) (*schedule.Occurrence, error) {
	o := &schedule.Occurrence{User: &user.User{}}
	err := row.Scan(
		&o.ID, &o.UserID, &o.Kind, &o.ScheduledFor, &o.Status, &o.Attempts, &o.SentAt, &o.CreatedAt, &o.UpdatedAt,
		&o.User.ID, &o.User.FirstName, &o.User.LastName, &o.User.BirthDate, &o.User.Location, &o.User.Timezone,
		&o.User.CreatedAt, &o.User.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id int64) (*schedule.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
               FROM scheduled_notifications o
               JOIN users u ON u.id = o.user_id
               WHERE o.id = $1`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOccurrenceNotFound
		}
		return nil, fmt.Errorf("error getting scheduled occurrence by ID: %w", err)
	}
	return o, nil
}

func (r *PostgresScheduleRepository) GetByUserAndKind(ctx context.Context, userID int64, kind schedule.Kind) (*schedule.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
               FROM scheduled_notifications o
               JOIN users u ON u.id = o.user_id
               WHERE o.user_id = $1 AND o.kind = $2`
	o, err := scanOccurrence(r.db.QueryRowContext(ctx, query, userID, kind))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOccurrenceNotFound
		}
		return nil, fmt.Errorf("error getting scheduled occurrence by user and kind: %w", err)
	}
	return o, nil
}

// Helper to scan multiple joined rows
func scanOccurrences(rows *sql.Rows) ([]*schedule.Occurrence, error) {
	occurrences := make([]*schedule.Occurrence, 0)
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning occurrence row: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrence rows: %w", err)
	}
	return occurrences, nil
}

func (r *PostgresScheduleRepository) FindDueInRange(ctx context.Context, from, to time.Time) ([]*schedule.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
               FROM scheduled_notifications o
               JOIN users u ON u.id = o.user_id
               WHERE o.status = $1 AND o.scheduled_for >= $2 AND o.scheduled_for <= $3
               ORDER BY o.scheduled_for ASC`
	rows, err := r.db.QueryContext(ctx, query, schedule.StatusPending, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying due occurrences: %w", err)
	}
	defer rows.Close()
	return scanOccurrences(rows)
}

func (r *PostgresScheduleRepository) FindStaleBefore(ctx context.Context, cutoff time.Time) ([]*schedule.Occurrence, error) {
	statuses := []string{
		string(schedule.StatusPending),
		string(schedule.StatusProcessing),
		string(schedule.StatusFailed),
	}
	query := `SELECT ` + occurrenceColumns + `
               FROM scheduled_notifications o
               JOIN users u ON u.id = o.user_id
               WHERE o.status = ANY($1::varchar[]) AND o.scheduled_for < $2
               ORDER BY o.scheduled_for ASC` // Process older ones first
	rows, err := r.db.QueryContext(ctx, query, pq.Array(statuses), cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying stale occurrences: %w", err)
	}
	defer rows.Close()
	return scanOccurrences(rows)
}

func (r *PostgresScheduleRepository) FindSentBefore(ctx context.Context, cutoff time.Time) ([]*schedule.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
               FROM scheduled_notifications o
               JOIN users u ON u.id = o.user_id
               WHERE o.status = $1 AND o.scheduled_for < $2
               ORDER BY o.scheduled_for ASC`
	rows, err := r.db.QueryContext(ctx, query, schedule.StatusSent, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying sent occurrences: %w", err)
	}
	defer rows.Close()
	return scanOccurrences(rows)
}

func (r *PostgresScheduleRepository) MarkProcessing(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE scheduled_notifications
               SET status = $1, updated_at = NOW()
               WHERE id = ANY($2::bigint[])`
	if _, err := r.db.ExecContext(ctx, query, schedule.StatusProcessing, pq.Array(ids)); err != nil {
		return fmt.Errorf("error marking occurrences processing: %w", err)
	}
	return nil
}

func (r *PostgresScheduleRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	return r.setStatus(ctx, id, schedule.StatusSent, sql.NullTime{Time: sentAt, Valid: true})
}

func (r *PostgresScheduleRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, schedule.StatusFailed, sql.NullTime{})
}

func (r *PostgresScheduleRepository) MarkPending(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, schedule.StatusPending, sql.NullTime{})
}

func (r *PostgresScheduleRepository) setStatus(ctx context.Context, id int64, status schedule.Status, sentAt sql.NullTime) error {
	query := `UPDATE scheduled_notifications
               SET status = $1, sent_at = COALESCE($2, sent_at), updated_at = NOW()
               WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("error setting occurrence %d status to %s: %w", id, status, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking updated rows: %w", err)
	}
	if affected == 0 {
		return ErrOccurrenceNotFound
	}
	return nil
}

func (r *PostgresScheduleRepository) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	query := `UPDATE scheduled_notifications
               SET attempts = attempts + 1, updated_at = NOW()
               WHERE id = $1
               RETURNING attempts`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrOccurrenceNotFound
		}
		return 0, fmt.Errorf("error incrementing occurrence attempts: %w", err)
	}
	return attempts, nil
}

func (r *PostgresScheduleRepository) Reschedule(ctx context.Context, id int64, newInstant time.Time) error {
	query := `UPDATE scheduled_notifications
               SET scheduled_for = $1, status = $2, attempts = 0, sent_at = NULL, updated_at = NOW()
               WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, newInstant, schedule.StatusPending, id)
	if err != nil {
		return fmt.Errorf("error rescheduling occurrence %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rescheduled rows: %w", err)
	}
	if affected == 0 {
		return ErrOccurrenceNotFound
	}
	return nil
}
