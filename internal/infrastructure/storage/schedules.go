package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

var scheduleColumns = []string{
	"job_id", "platforms", "scheduled_time", "status", "error_message",
	"created_at", "updated_at",
}

// ScheduleRepository persists deferred distribution requests, unique per
// job.
type ScheduleRepository struct {
	db *sql.DB
}

var _ ports.ScheduleStore = (*ScheduleRepository)(nil)

// NewScheduleRepository wires a sql.DB implementation.
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Upsert creates or replaces the job's pending schedule.
func (r *ScheduleRepository) Upsert(ctx context.Context, post domain.ScheduledPost) error {
	platforms, err := marshalJSON(post.Platforms)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("scheduled_posts").
		Columns("job_id", "platforms", "scheduled_time", "status").
		Values(post.JobID, platforms, post.ScheduledTime.UTC(), domain.ScheduleStatusScheduled).
		Suffix(`ON CONFLICT (job_id) DO UPDATE SET
			platforms = EXCLUDED.platforms,
			scheduled_time = EXCLUDED.scheduled_time,
			status = EXCLUDED.status,
			error_message = NULL,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// Get loads the schedule for one job, nil when absent.
func (r *ScheduleRepository) Get(ctx context.Context, jobID string) (*domain.ScheduledPost, error) {
	query, args, err := psql.Select(scheduleColumns...).
		From("scheduled_posts").
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule select: %w", err)
	}

	post, err := scanSchedule(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select schedule: %w", err)
	}
	return &post, nil
}

// Due returns pending posts whose time elapsed, oldest first, capped at
// limit to bound catch-up latency after downtime.
func (r *ScheduleRepository) Due(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	query, args, err := psql.Select(scheduleColumns...).
		From("scheduled_posts").
		Where(sq.Eq{"status": domain.ScheduleStatusScheduled}).
		Where(sq.LtOrEq{"scheduled_time": now.UTC()}).
		OrderBy("scheduled_time ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build due select: %w", err)
	}

	return r.query(ctx, query, args)
}

// List returns upcoming schedules, soonest first.
func (r *ScheduleRepository) List(ctx context.Context, limit int) ([]domain.ScheduledPost, error) {
	query, args, err := psql.Select(scheduleColumns...).
		From("scheduled_posts").
		OrderBy("scheduled_time ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule list: %w", err)
	}

	return r.query(ctx, query, args)
}

// SetStatus transitions the post when its current status is in from;
// returns false when no row matched.
func (r *ScheduleRepository) SetStatus(ctx context.Context, jobID string, from []domain.ScheduleStatus, to domain.ScheduleStatus, errMsg string) (bool, error) {
	update := psql.Update("scheduled_posts").
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"job_id": jobID})
	if len(from) > 0 {
		update = update.Where(sq.Eq{"status": from})
	}
	if errMsg != "" {
		update = update.Set("error_message", errMsg)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return false, fmt.Errorf("build schedule status update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update schedule status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Reschedule moves a scheduled or failed post to a new time and resets it
// to scheduled; returns false when the post was in neither state.
func (r *ScheduleRepository) Reschedule(ctx context.Context, jobID string, newTime time.Time) (bool, error) {
	query, args, err := psql.Update("scheduled_posts").
		Set("scheduled_time", newTime.UTC()).
		Set("status", domain.ScheduleStatusScheduled).
		Set("error_message", nil).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"job_id": jobID}).
		Where(sq.Eq{"status": []domain.ScheduleStatus{
			domain.ScheduleStatusScheduled,
			domain.ScheduleStatusFailed,
		}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build reschedule: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("reschedule: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ScheduleRepository) query(ctx context.Context, query string, args []any) ([]domain.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var posts []domain.ScheduledPost
	for rows.Next() {
		post, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}

func scanSchedule(row rowScanner) (domain.ScheduledPost, error) {
	var (
		post      domain.ScheduledPost
		platforms []byte
		errMsg    sql.NullString
	)
	if err := row.Scan(
		&post.JobID, &platforms, &post.ScheduledTime, &post.Status,
		&errMsg, &post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		return domain.ScheduledPost{}, err
	}
	post.ErrorMessage = errMsg.String
	if err := unmarshalJSON(platforms, &post.Platforms); err != nil {
		return domain.ScheduledPost{}, fmt.Errorf("decode platforms: %w", err)
	}
	return post, nil
}
