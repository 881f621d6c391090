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

var publicationColumns = []string{
	"job_id", "platform", "platform_post_id", "post_url", "published_at",
	"initial_data", "current_metrics", "last_updated",
}

// PublicationRepository persists publish receipts and engagement
// snapshots, unique per (job, platform).
type PublicationRepository struct {
	db *sql.DB
}

var _ ports.PublicationStore = (*PublicationRepository)(nil)

// NewPublicationRepository wires a sql.DB implementation.
func NewPublicationRepository(db *sql.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

// Upsert records a publish; a second call for the same (job, platform)
// overwrites the receipt fields.
func (r *PublicationRepository) Upsert(ctx context.Context, rec domain.PublicationRecord) error {
	initial, err := marshalJSON(rec.InitialData)
	if err != nil {
		return err
	}

	publishedAt := rec.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("publication_analytics").
		Columns("job_id", "platform", "platform_post_id", "post_url", "published_at", "initial_data").
		Values(rec.JobID, rec.Platform, rec.PlatformPostID, rec.PostURL, publishedAt, initial).
		Suffix(`ON CONFLICT (job_id, platform) DO UPDATE SET
			platform_post_id = EXCLUDED.platform_post_id,
			post_url = EXCLUDED.post_url,
			published_at = EXCLUDED.published_at,
			initial_data = EXCLUDED.initial_data,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build publication upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert publication: %w", err)
	}
	return nil
}

// Get loads one receipt, nil when absent.
func (r *PublicationRepository) Get(ctx context.Context, jobID, platform string) (*domain.PublicationRecord, error) {
	query, args, err := psql.Select(publicationColumns...).
		From("publication_analytics").
		Where(sq.Eq{"job_id": jobID, "platform": platform}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build publication select: %w", err)
	}

	rec, err := scanPublication(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select publication: %w", err)
	}
	return &rec, nil
}

// ByJob returns every receipt of one job, most recent publish first.
func (r *PublicationRepository) ByJob(ctx context.Context, jobID string) ([]domain.PublicationRecord, error) {
	query, args, err := psql.Select(publicationColumns...).
		From("publication_analytics").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build by-job select: %w", err)
	}
	return r.query(ctx, query, args)
}

// PublishedSince returns records published within the trailing window
// that carry a known post id, most recent first.
func (r *PublicationRepository) PublishedSince(ctx context.Context, cutoff time.Time) ([]domain.PublicationRecord, error) {
	query, args, err := psql.Select(publicationColumns...).
		From("publication_analytics").
		Where(sq.GtOrEq{"published_at": cutoff.UTC()}).
		Where(sq.NotEq{"platform_post_id": nil}).
		Where(sq.NotEq{"platform_post_id": ""}).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build published-since select: %w", err)
	}
	return r.query(ctx, query, args)
}

// UpdateMetrics overwrites the current engagement snapshot.
func (r *PublicationRepository) UpdateMetrics(ctx context.Context, jobID, platform string, metrics domain.Metrics, at time.Time) error {
	raw, err := marshalJSON(metrics)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("publication_analytics").
		Set("current_metrics", raw).
		Set("last_updated", at.UTC()).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"job_id": jobID, "platform": platform}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build metrics update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}
	return nil
}

func (r *PublicationRepository) query(ctx context.Context, query string, args []any) ([]domain.PublicationRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query publications: %w", err)
	}
	defer rows.Close()

	var records []domain.PublicationRecord
	for rows.Next() {
		rec, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

func scanPublication(row rowScanner) (domain.PublicationRecord, error) {
	var (
		rec         domain.PublicationRecord
		postID      sql.NullString
		postURL     sql.NullString
		publishedAt sql.NullTime
		lastUpdated sql.NullTime
		initial     []byte
		metrics     []byte
	)
	if err := row.Scan(
		&rec.JobID, &rec.Platform, &postID, &postURL, &publishedAt,
		&initial, &metrics, &lastUpdated,
	); err != nil {
		return domain.PublicationRecord{}, err
	}

	rec.PlatformPostID = postID.String
	rec.PostURL = postURL.String
	rec.PublishedAt = publishedAt.Time
	rec.LastUpdated = lastUpdated.Time

	if err := unmarshalJSON(initial, &rec.InitialData); err != nil {
		return domain.PublicationRecord{}, fmt.Errorf("decode initial_data: %w", err)
	}
	if err := unmarshalJSON(metrics, &rec.CurrentMetrics); err != nil {
		return domain.PublicationRecord{}, fmt.Errorf("decode current_metrics: %w", err)
	}
	return rec, nil
}
