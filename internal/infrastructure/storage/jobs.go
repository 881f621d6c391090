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

// jobColumns is the scan order shared by every job query.
var jobColumns = []string{
	"id", "source_url", "title", "source_metadata", "article_text",
	"analysis_json", "script_text", "media_url", "media_assets",
	"distribution_config", "published_urls", "status", "created_at",
	"updated_at",
}

// JobRepository persists content jobs in Postgres.
type JobRepository struct {
	db *sql.DB
}

var _ ports.JobStore = (*JobRepository)(nil)

// NewJobRepository wires a sql.DB implementation.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a freshly ingested job.
func (r *JobRepository) Create(ctx context.Context, job *domain.ContentJob) error {
	metadata, err := marshalJSON(job.SourceMetadata)
	if err != nil {
		return err
	}
	distribution, err := marshalJSON(job.Distribution)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("content_jobs").
		Columns("id", "source_url", "title", "source_metadata", "distribution_config", "status").
		Values(job.ID, job.SourceURL, job.Title, metadata, distribution, job.Status).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert job: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get loads one job or domain.ErrJobNotFound.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.ContentJob, error) {
	query, args, err := psql.Select(jobColumns...).
		From("content_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select job: %w", err)
	}

	job, err := scanJob(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// List returns the most recent jobs for the operator surface.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*domain.ContentJob, error) {
	query, args, err := psql.Select(jobColumns...).
		From("content_jobs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list jobs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.ContentJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return jobs, nil
}

// SetStatus moves the job forward, optionally stamping published URLs.
// Reaching published also records the publish timestamp.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status domain.JobStatus, publishedURLs map[string]string) error {
	update := psql.Update("content_jobs").
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})

	if publishedURLs != nil {
		urls, err := marshalJSON(publishedURLs)
		if err != nil {
			return err
		}
		update = update.Set("published_urls", urls)
	}
	if status == domain.StatusPublished {
		update = update.Set("published_at", time.Now().UTC())
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build update status: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// SaveAnalysis stores the analysis stage output and advances the job to
// analysis_complete in the same write.
func (r *JobRepository) SaveAnalysis(ctx context.Context, id string, articleText string, analysis domain.Analysis, script string) error {
	analysisJSON, err := marshalJSON(analysis)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("content_jobs").
		Set("article_text", articleText).
		Set("analysis_json", analysisJSON).
		Set("script_text", script).
		Set("status", domain.StatusAnalysisComplete).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save analysis: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// SaveMedia stores the production stage output and advances the job to
// media_complete in the same write.
func (r *JobRepository) SaveMedia(ctx context.Context, id string, mediaURL string, assets map[string]domain.MediaAsset) error {
	assetJSON, err := marshalJSON(assets)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("content_jobs").
		Set("media_url", mediaURL).
		Set("media_assets", assetJSON).
		Set("status", domain.StatusMediaComplete).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save media: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// SetDistributionConfig overwrites the job's target platforms/schedule.
func (r *JobRepository) SetDistributionConfig(ctx context.Context, id string, cfg domain.DistributionConfig) error {
	raw, err := marshalJSON(cfg)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("content_jobs").
		Set("distribution_config", raw).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set distribution: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set distribution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// rowScanner lets scanJob work for both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.ContentJob, error) {
	var (
		job          domain.ContentJob
		sourceURL    sql.NullString
		title        sql.NullString
		articleText  sql.NullString
		scriptText   sql.NullString
		mediaURL     sql.NullString
		metadata     []byte
		analysis     []byte
		assets       []byte
		distribution []byte
		published    []byte
	)

	if err := row.Scan(
		&job.ID, &sourceURL, &title, &metadata, &articleText,
		&analysis, &scriptText, &mediaURL, &assets,
		&distribution, &published, &job.Status, &job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.SourceURL = sourceURL.String
	job.Title = title.String
	job.ArticleText = articleText.String
	job.ScriptText = scriptText.String
	job.MediaURL = mediaURL.String

	if err := unmarshalJSON(metadata, &job.SourceMetadata); err != nil {
		return nil, fmt.Errorf("decode source_metadata: %w", err)
	}
	if err := unmarshalJSON(analysis, &job.Analysis); err != nil {
		return nil, fmt.Errorf("decode analysis_json: %w", err)
	}
	if err := unmarshalJSON(assets, &job.MediaAssets); err != nil {
		return nil, fmt.Errorf("decode media_assets: %w", err)
	}
	if err := unmarshalJSON(distribution, &job.Distribution); err != nil {
		return nil, fmt.Errorf("decode distribution_config: %w", err)
	}
	if err := unmarshalJSON(published, &job.PublishedURLs); err != nil {
		return nil, fmt.Errorf("decode published_urls: %w", err)
	}

	return &job, nil
}
