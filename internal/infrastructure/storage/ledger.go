package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// LedgerRepository is the ingestion dedup ledger: one immutable row per
// external source item ever turned into a job.
type LedgerRepository struct {
	db *sql.DB
}

var _ ports.DedupLedger = (*LedgerRepository)(nil)

// NewLedgerRepository wires a sql.DB implementation.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Seen reports whether the source key already produced a job.
func (r *LedgerRepository) Seen(ctx context.Context, sourceKey string) (bool, error) {
	query, args, err := psql.Select("1").
		From("ingested_items").
		Where(sq.Eq{"source_key": sourceKey}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return true, nil
}

// Record writes the ledger entry; a duplicate insert is a no-op.
func (r *LedgerRepository) Record(ctx context.Context, item domain.IngestedItem) error {
	query, args, err := psql.Insert("ingested_items").
		Columns("source_key", "source_url", "title").
		Values(item.SourceKey, item.SourceURL, item.Title).
		Suffix("ON CONFLICT (source_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build ledger insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
