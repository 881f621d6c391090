package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// MediaStageDeps wires the media production stage. DistributionQueue
// defaults to the conventional queue name when empty.
type MediaStageDeps struct {
	Jobs              ports.JobStore
	Synthesizer       ports.MediaSynthesizer
	Store             ports.ObjectStore
	Publisher         ports.QueuePublisher
	DistributionQueue string
	Logger            *slog.Logger
}

// MediaStage consumes media messages: it renders the narration for the
// job's script, uploads it to the object store and hands the job to
// distribution. Unlike analysis, production has no degraded mode; a
// synthesis or upload failure rejects the message and parks the job for
// operator retry.
type MediaStage struct {
	jobs              ports.JobStore
	synthesizer       ports.MediaSynthesizer
	store             ports.ObjectStore
	publisher         ports.QueuePublisher
	distributionQueue string
	logger            *slog.Logger
}

// NewMediaStage constructs the stage.
func NewMediaStage(deps MediaStageDeps) *MediaStage {
	return &MediaStage{
		jobs:              deps.Jobs,
		synthesizer:       deps.Synthesizer,
		store:             deps.Store,
		publisher:         deps.Publisher,
		distributionQueue: queueOrDefault(deps.DistributionQueue, domain.DistributionQueue),
		logger:            deps.Logger,
	}
}

// HandleMedia processes one media message.
func (s *MediaStage) HandleMedia(ctx context.Context, msg domain.Message) error {
	job, err := s.jobs.Get(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	if job.Status.Rank() >= domain.StatusMediaComplete.Rank() {
		return s.publishNext(ctx, job)
	}

	script := job.ScriptText
	if script == "" {
		script = job.Analysis.Script
	}

	data, contentType, err := s.synthesizer.Synthesize(ctx, script)
	if err != nil {
		return fmt.Errorf("synthesize job %s: %w", job.ID, err)
	}

	key := fmt.Sprintf("%s/narration.wav", job.ID)
	mediaURL, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return fmt.Errorf("store media for job %s: %w", job.ID, err)
	}

	assets := map[string]domain.MediaAsset{
		"narration": {URL: mediaURL, Formats: []string{"wav"}},
	}
	if err := s.jobs.SaveMedia(ctx, job.ID, mediaURL, assets); err != nil {
		return fmt.Errorf("save media: %w", err)
	}

	job.MediaURL = mediaURL
	return s.publishNext(ctx, job)
}

func (s *MediaStage) publishNext(ctx context.Context, job *domain.ContentJob) error {
	msg := domain.Message{
		JobID:     job.ID,
		Platforms: job.Distribution.Platforms,
	}
	if err := s.publisher.Publish(ctx, s.distributionQueue, msg); err != nil {
		return fmt.Errorf("publish distribution message: %w", err)
	}
	return nil
}
