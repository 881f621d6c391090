package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// TrackerDeps wires the engagement analytics aggregator.
type TrackerDeps struct {
	Store     ports.PublicationStore
	Registry  ports.PublisherRegistry
	CallDelay time.Duration
	Logger    *slog.Logger
}

// Tracker records publish receipts and keeps their engagement snapshots
// fresh by calling back into the platform publishers.
type Tracker struct {
	store     ports.PublicationStore
	registry  ports.PublisherRegistry
	callDelay time.Duration
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration)
}

// NewTracker constructs the aggregator.
func NewTracker(deps TrackerDeps) *Tracker {
	return &Tracker{
		store:     deps.Store,
		registry:  deps.Registry,
		callDelay: deps.CallDelay,
		logger:    deps.Logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// TrackPublication records one publish receipt. The upsert is idempotent
// per (job, platform); tracking the same publish twice keeps the later
// receipt.
func (t *Tracker) TrackPublication(ctx context.Context, jobID string, result domain.PublishResult) error {
	publishedAt := t.now().UTC()
	if result.PublishedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, result.PublishedAt); err == nil {
			publishedAt = parsed
		}
	}

	rec := domain.PublicationRecord{
		JobID:          jobID,
		Platform:       result.Platform,
		PlatformPostID: result.ResolvePostID(),
		PostURL:        result.URL,
		PublishedAt:    publishedAt,
		InitialData:    result,
	}
	if err := t.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("track publication: %w", err)
	}
	return nil
}

// RefreshMetrics pulls the current engagement snapshot for one
// publication and overwrites the stored one. Records without a post id
// are skipped with a warning; the platform gave us nothing to query.
func (t *Tracker) RefreshMetrics(ctx context.Context, jobID, platform string) error {
	rec, err := t.store.Get(ctx, jobID, platform)
	if err != nil {
		return fmt.Errorf("load publication: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no publication for job %s on %s", jobID, platform)
	}
	if rec.PlatformPostID == "" {
		t.logger.Warn("publication has no post id, skipping refresh", "job_id", jobID, "platform", platform)
		return nil
	}

	publisher, ok := t.registry.Resolve(platform)
	if !ok {
		return fmt.Errorf("unknown platform %s", platform)
	}

	metrics, err := publisher.Analytics(ctx, rec.PlatformPostID)
	if err != nil {
		return fmt.Errorf("fetch %s analytics: %w", platform, err)
	}

	if err := t.store.UpdateMetrics(ctx, jobID, platform, metrics, t.now().UTC()); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	return nil
}

// BulkRefresh refreshes every publication of the trailing window,
// sequentially with an inter-call delay to stay inside platform rate
// limits. Per-record failures are logged and skipped. Returns the number
// of refreshed records.
func (t *Tracker) BulkRefresh(ctx context.Context, window time.Duration) int {
	cutoff := t.now().Add(-window)
	records, err := t.store.PublishedSince(ctx, cutoff)
	if err != nil {
		t.logger.Error("bulk refresh query failed", "error", err)
		return 0
	}

	refreshed := 0
	for i, rec := range records {
		if i > 0 {
			t.sleep(ctx, t.callDelay)
		}
		if ctx.Err() != nil {
			break
		}
		if err := t.RefreshMetrics(ctx, rec.JobID, rec.Platform); err != nil {
			t.logger.Warn("metric refresh skipped", "job_id", rec.JobID, "platform", rec.Platform, "error", err)
			continue
		}
		refreshed++
	}
	t.logger.Info("bulk refresh done", "candidates", len(records), "refreshed", refreshed)
	return refreshed
}

// JobRollup aggregates one job's engagement across platforms. Retweets
// fold into shares.
func (t *Tracker) JobRollup(ctx context.Context, jobID string) (domain.JobEngagement, error) {
	records, err := t.store.ByJob(ctx, jobID)
	if err != nil {
		return domain.JobEngagement{}, fmt.Errorf("load publications: %w", err)
	}

	rollup := domain.JobEngagement{
		JobID:     jobID,
		Platforms: map[string]domain.PublicationRecord{},
	}
	for _, rec := range records {
		rollup.Platforms[rec.Platform] = rec
		rollup.Views += rec.CurrentMetrics.Views()
		rollup.Likes += rec.CurrentMetrics["likes"]
		rollup.Comments += rec.CurrentMetrics["comments"]
		rollup.Shares += rec.CurrentMetrics.Shares()
		if rec.LastUpdated.After(rollup.LastUpdated) {
			rollup.LastUpdated = rec.LastUpdated
		}
	}
	return rollup, nil
}

// TopContent ranks the window's publications by engagement score,
// highest first, capped at limit.
func (t *Tracker) TopContent(ctx context.Context, window time.Duration, limit int) ([]domain.RankedPublication, error) {
	cutoff := t.now().Add(-window)
	records, err := t.store.PublishedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load window publications: %w", err)
	}

	ranked := make([]domain.RankedPublication, 0, len(records))
	for _, rec := range records {
		ranked = append(ranked, domain.RankedPublication{
			PublicationRecord: rec,
			Score:             float64(rec.EngagementScore()),
			Rate:              rec.EngagementRate(),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
