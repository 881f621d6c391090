package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// HarvesterDeps wires the ingestion stage. StoryQueue defaults to the
// conventional queue name when empty.
type HarvesterDeps struct {
	Feeds      []string
	Source     ports.FeedSource
	Ledger     ports.DedupLedger
	Jobs       ports.JobStore
	Publisher  ports.QueuePublisher
	StoryQueue string
	Logger     *slog.Logger
}

// Harvester polls external feeds and turns unseen items into content
// jobs. Items already in the dedup ledger never produce a second job.
type Harvester struct {
	feeds      []string
	source     ports.FeedSource
	ledger     ports.DedupLedger
	jobs       ports.JobStore
	publisher  ports.QueuePublisher
	storyQueue string
	logger     *slog.Logger
}

// NewHarvester constructs the ingestion stage.
func NewHarvester(deps HarvesterDeps) *Harvester {
	return &Harvester{
		feeds:      deps.Feeds,
		source:     deps.Source,
		ledger:     deps.Ledger,
		jobs:       deps.Jobs,
		publisher:  deps.Publisher,
		storyQueue: queueOrDefault(deps.StoryQueue, domain.StoryQueue),
		logger:     deps.Logger,
	}
}

// Run executes one harvest pass over every configured feed. A failing
// feed is logged and skipped; one bad source never blocks the rest.
func (h *Harvester) Run(ctx context.Context, now time.Time) {
	for _, feedURL := range h.feeds {
		created, err := h.harvestFeed(ctx, feedURL)
		if err != nil {
			h.logger.Error("feed harvest failed", "feed", feedURL, "error", err)
			continue
		}
		h.logger.Info("feed harvested", "feed", feedURL, "jobs_created", created)
	}
}

func (h *Harvester) harvestFeed(ctx context.Context, feedURL string) (int, error) {
	items, err := h.source.Fetch(ctx, feedURL)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}

	created := 0
	for _, item := range items {
		ok, err := h.ingestItem(ctx, feedURL, item)
		if err != nil {
			h.logger.Error("item ingest failed", "feed", feedURL, "item", item.ID, "error", err)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ingestItem runs the dedup check, creates the job, records the ledger
// entry and hands the story to the analysis queue. Returns false when
// the item was already ingested.
func (h *Harvester) ingestItem(ctx context.Context, feedURL string, item ports.FeedItem) (bool, error) {
	sourceKey := domain.SourceKey(feedURL, item.ID)

	seen, err := h.ledger.Seen(ctx, sourceKey)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	if seen {
		return false, nil
	}

	job := &domain.ContentJob{
		ID:        uuid.NewString(),
		SourceURL: item.Link,
		Title:     item.Title,
		SourceMetadata: map[string]any{
			"feed":      feedURL,
			"item_id":   item.ID,
			"summary":   item.Summary,
			"published": item.Published,
		},
		Status: domain.StatusIngested,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		return false, fmt.Errorf("create job: %w", err)
	}

	if err := h.ledger.Record(ctx, domain.IngestedItem{
		SourceKey: sourceKey,
		SourceURL: item.Link,
		Title:     item.Title,
	}); err != nil {
		return false, fmt.Errorf("record ledger: %w", err)
	}

	msg := domain.Message{
		JobID:          job.ID,
		SourceURL:      job.SourceURL,
		Title:          job.Title,
		SourceMetadata: job.SourceMetadata,
	}
	if err := h.publisher.Publish(ctx, h.storyQueue, msg); err != nil {
		return false, fmt.Errorf("publish story: %w", err)
	}
	return true, nil
}
