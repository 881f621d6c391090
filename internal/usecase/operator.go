package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// ErrJobNotReady signals an operator action against a job whose status
// does not allow it.
type ErrJobNotReady struct {
	JobID  string
	Status domain.JobStatus
}

func (e ErrJobNotReady) Error() string {
	return fmt.Sprintf("job %s is %s and not ready for this action", e.JobID, e.Status)
}

// OperatorDeps wires the manual control surface. Queue names default to
// the conventional ones when empty.
type OperatorDeps struct {
	Jobs              ports.JobStore
	Publisher         ports.QueuePublisher
	Distributor       *Distributor
	StoryQueue        string
	DistributionQueue string
	Logger            *slog.Logger
}

// Operator implements the manual interventions exposed by the API:
// approving a produced job for distribution, retrying a failed job from
// the top of the pipeline and distributing with a platform override.
type Operator struct {
	jobs              ports.JobStore
	publisher         ports.QueuePublisher
	distributor       *Distributor
	storyQueue        string
	distributionQueue string
	logger            *slog.Logger
}

// NewOperator constructs the control surface.
func NewOperator(deps OperatorDeps) *Operator {
	return &Operator{
		jobs:              deps.Jobs,
		publisher:         deps.Publisher,
		distributor:       deps.Distributor,
		storyQueue:        queueOrDefault(deps.StoryQueue, domain.StoryQueue),
		distributionQueue: queueOrDefault(deps.DistributionQueue, domain.DistributionQueue),
		logger:            deps.Logger,
	}
}

// Approve enqueues a produced job for immediate distribution, bypassing
// any configured schedule time.
func (o *Operator) Approve(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Rank() < domain.StatusMediaComplete.Rank() {
		return ErrJobNotReady{JobID: jobID, Status: job.Status}
	}

	msg := domain.Message{
		JobID:     job.ID,
		Platforms: job.Distribution.Platforms,
		Scheduled: true,
	}
	if err := o.publisher.Publish(ctx, o.distributionQueue, msg); err != nil {
		return fmt.Errorf("enqueue distribution: %w", err)
	}
	o.logger.Info("job approved for distribution", "job_id", jobID)
	return nil
}

// Retry resets a job to the top of the pipeline and re-enqueues its
// story message. This is the one sanctioned backward status move.
func (o *Operator) Retry(ctx context.Context, jobID string) error {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if err := o.jobs.SetStatus(ctx, jobID, domain.StatusIngested, nil); err != nil {
		return fmt.Errorf("reset job: %w", err)
	}

	msg := domain.Message{
		JobID:          job.ID,
		SourceURL:      job.SourceURL,
		Title:          job.Title,
		SourceMetadata: job.SourceMetadata,
		Retry:          true,
	}
	if err := o.publisher.Publish(ctx, o.storyQueue, msg); err != nil {
		return fmt.Errorf("enqueue story: %w", err)
	}
	o.logger.Info("job retried", "job_id", jobID)
	return nil
}

// Distribute runs the fan-out synchronously with an optional platform
// override and returns the terminal status.
func (o *Operator) Distribute(ctx context.Context, jobID string, platforms []string) (domain.JobStatus, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Status.Rank() < domain.StatusMediaComplete.Rank() {
		return "", ErrJobNotReady{JobID: jobID, Status: job.Status}
	}
	return o.distributor.Distribute(ctx, job, platforms)
}
