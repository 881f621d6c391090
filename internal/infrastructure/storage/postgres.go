package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// psql builds every query with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS content_jobs (
		id UUID PRIMARY KEY,
		source_url TEXT,
		title TEXT,
		source_metadata JSONB,
		article_text TEXT,
		analysis_json JSONB,
		script_text TEXT,
		media_url TEXT,
		media_assets JSONB,
		distribution_config JSONB,
		published_urls JSONB,
		status VARCHAR(50) NOT NULL DEFAULT 'ingested',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		published_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ingested_items (
		source_key TEXT PRIMARY KEY,
		source_url TEXT,
		title TEXT,
		ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id SERIAL PRIMARY KEY,
		job_id UUID UNIQUE NOT NULL,
		platforms JSONB NOT NULL,
		scheduled_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'scheduled',
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_time_status
		ON scheduled_posts (scheduled_time, status)`,
	`CREATE TABLE IF NOT EXISTS publication_analytics (
		id SERIAL PRIMARY KEY,
		job_id UUID NOT NULL,
		platform VARCHAR(50) NOT NULL,
		platform_post_id VARCHAR(255),
		post_url TEXT,
		published_at TIMESTAMPTZ,
		initial_data JSONB,
		current_metrics JSONB,
		last_updated TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (job_id, platform)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_publication_analytics_job_id
		ON publication_analytics (job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_publication_analytics_platform_published
		ON publication_analytics (platform, published_at)`,
}

// EnsureSchema creates the pipeline tables if they are missing. Each
// component of the original system bootstrapped its own tables; here the
// process does it once at start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// marshalJSON renders v for a JSONB column, mapping nil to SQL NULL.
func marshalJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return raw, nil
}

// unmarshalJSON fills dst from a nullable JSONB column.
func unmarshalJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
