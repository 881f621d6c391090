package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// ErrScheduleNotFound signals a cancel or reschedule against a post that
// does not exist or is not in an allowed state.
var ErrScheduleNotFound = errors.New("scheduled post not found")

// PostingSchedulerDeps wires the posting scheduler. DistributionQueue
// defaults to the conventional queue name when empty.
type PostingSchedulerDeps struct {
	Store             ports.ScheduleStore
	Jobs              ports.JobStore
	Publisher         ports.QueuePublisher
	DistributionQueue string
	BatchSize         int
	Logger            *slog.Logger
}

// PostingScheduler holds deferred distribution requests and re-emits
// them onto the distribution queue once due. One active schedule exists
// per job; scheduling again replaces it.
type PostingScheduler struct {
	store             ports.ScheduleStore
	jobs              ports.JobStore
	publisher         ports.QueuePublisher
	distributionQueue string
	batchSize         int
	logger            *slog.Logger
}

// NewPostingScheduler constructs the scheduler.
func NewPostingScheduler(deps PostingSchedulerDeps) *PostingScheduler {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 10
	}
	return &PostingScheduler{
		store:             deps.Store,
		jobs:              deps.Jobs,
		publisher:         deps.Publisher,
		distributionQueue: queueOrDefault(deps.DistributionQueue, domain.DistributionQueue),
		batchSize:         batch,
		logger:            deps.Logger,
	}
}

// Schedule parks the job's distribution until publishAt and marks the
// job scheduled.
func (s *PostingScheduler) Schedule(ctx context.Context, jobID string, platforms []string, publishAt time.Time) error {
	post := domain.ScheduledPost{
		JobID:         jobID,
		Platforms:     platforms,
		ScheduledTime: publishAt,
		Status:        domain.ScheduleStatusScheduled,
	}
	if err := s.store.Upsert(ctx, post); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	if err := s.jobs.SetStatus(ctx, jobID, domain.StatusScheduled, nil); err != nil {
		return fmt.Errorf("mark job scheduled: %w", err)
	}
	return nil
}

// Cancel withdraws a pending post. Only posts still in scheduled state
// can be cancelled.
func (s *PostingScheduler) Cancel(ctx context.Context, jobID string) error {
	ok, err := s.store.SetStatus(ctx, jobID,
		[]domain.ScheduleStatus{domain.ScheduleStatusScheduled},
		domain.ScheduleStatusCancelled, "")
	if err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}
	if !ok {
		return ErrScheduleNotFound
	}
	return nil
}

// Reschedule moves a scheduled or failed post to a new time, resetting
// it to scheduled.
func (s *PostingScheduler) Reschedule(ctx context.Context, jobID string, newTime time.Time) error {
	ok, err := s.store.Reschedule(ctx, jobID, newTime)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	if !ok {
		return ErrScheduleNotFound
	}
	return nil
}

// List returns upcoming schedules for the operator surface.
func (s *PostingScheduler) List(ctx context.Context, limit int) ([]domain.ScheduledPost, error) {
	return s.store.List(ctx, limit)
}

// Poll dispatches every due post, oldest first, batch-limited. Each
// dispatched message carries the scheduled flag so distribution does not
// defer it again. A dispatch failure parks the post as failed with the
// error recorded; recovery is an operator reschedule.
func (s *PostingScheduler) Poll(ctx context.Context, now time.Time) {
	due, err := s.store.Due(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("due-post query failed", "error", err)
		return
	}

	for _, post := range due {
		s.dispatch(ctx, post)
	}
}

func (s *PostingScheduler) dispatch(ctx context.Context, post domain.ScheduledPost) {
	msg := domain.Message{
		JobID:     post.JobID,
		Platforms: post.Platforms,
		Scheduled: true,
	}
	if err := s.publisher.Publish(ctx, s.distributionQueue, msg); err != nil {
		s.logger.Error("scheduled dispatch failed", "job_id", post.JobID, "error", err)
		if _, serr := s.store.SetStatus(ctx, post.JobID,
			[]domain.ScheduleStatus{domain.ScheduleStatusScheduled},
			domain.ScheduleStatusFailed, err.Error()); serr != nil {
			s.logger.Error("cannot mark schedule failed", "job_id", post.JobID, "error", serr)
		}
		return
	}

	if _, err := s.store.SetStatus(ctx, post.JobID,
		[]domain.ScheduleStatus{domain.ScheduleStatusScheduled},
		domain.ScheduleStatusSentToQueue, ""); err != nil {
		s.logger.Error("cannot mark schedule sent", "job_id", post.JobID, "error", err)
		return
	}
	s.logger.Info("scheduled post dispatched", "job_id", post.JobID, "platforms", post.Platforms)
}
