package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// DistributorDeps wires the distribution stage.
type DistributorDeps struct {
	Jobs             ports.JobStore
	Registry         ports.PublisherRegistry
	Scheduler        *PostingScheduler
	Tracker          *Tracker
	DefaultPlatforms []string
	Logger           *slog.Logger
}

// Distributor fans one job out to its target platforms. Platform
// failures are isolated: every platform gets its attempt and the job's
// final status reflects the aggregate outcome.
type Distributor struct {
	jobs             ports.JobStore
	registry         ports.PublisherRegistry
	scheduler        *PostingScheduler
	tracker          *Tracker
	defaultPlatforms []string
	logger           *slog.Logger
	now              func() time.Time
}

// NewDistributor constructs the stage.
func NewDistributor(deps DistributorDeps) *Distributor {
	return &Distributor{
		jobs:             deps.Jobs,
		registry:         deps.Registry,
		scheduler:        deps.Scheduler,
		tracker:          deps.Tracker,
		defaultPlatforms: deps.DefaultPlatforms,
		logger:           deps.Logger,
		now:              time.Now,
	}
}

// HandleDistribution processes one distribution message. A job carrying
// a future schedule time is parked with the posting scheduler instead of
// publishing now; messages re-emitted by the scheduler carry the
// scheduled flag and bypass that check.
func (d *Distributor) HandleDistribution(ctx context.Context, msg domain.Message) error {
	job, err := d.jobs.Get(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	// Redelivery of a settled distribution: the fan-out already ran and
	// the posts are live. The message settles as a no-op; re-running is
	// an explicit operator action.
	if job.Status.Terminal() {
		d.logger.Info("distribution already settled", "job_id", job.ID, "status", job.Status)
		return nil
	}

	platforms := d.resolvePlatforms(msg.Platforms, job)

	if !msg.Scheduled && job.Distribution.ScheduleTime != nil && job.Distribution.ScheduleTime.After(d.now()) {
		if err := d.scheduler.Schedule(ctx, job.ID, platforms, *job.Distribution.ScheduleTime); err != nil {
			if serr := d.jobs.SetStatus(ctx, job.ID, domain.StatusScheduleFailed, nil); serr != nil {
				d.logger.Error("cannot mark schedule failure", "job_id", job.ID, "error", serr)
			}
			return fmt.Errorf("schedule job %s: %w", job.ID, err)
		}
		d.logger.Info("job deferred", "job_id", job.ID, "publish_at", job.Distribution.ScheduleTime)
		return nil
	}

	_, err = d.Distribute(ctx, job, platforms)
	return err
}

// Distribute publishes the job to every platform concurrently and
// settles the job's terminal status from the aggregate outcome. The
// returned status is one of published, partially_published or
// distribution_failed.
func (d *Distributor) Distribute(ctx context.Context, job *domain.ContentJob, platforms []string) (domain.JobStatus, error) {
	if len(platforms) == 0 {
		platforms = d.resolvePlatforms(nil, job)
	}

	var (
		mu        sync.Mutex
		published = map[string]string{}
		failures  []string
		wg        sync.WaitGroup
	)

	for _, platform := range platforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()

			result, err := d.publishOne(ctx, job, platform)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", platform, err))
				return
			}
			published[platform] = result.URL
		}(platform)
	}
	wg.Wait()

	sort.Strings(failures)
	for _, failure := range failures {
		d.logger.Warn("platform publish failed", "job_id", job.ID, "failure", failure)
	}

	status := distributionStatus(published, failures)
	if err := d.jobs.SetStatus(ctx, job.ID, status, published); err != nil {
		return status, fmt.Errorf("settle job %s: %w", job.ID, err)
	}
	d.logger.Info("distribution settled",
		"job_id", job.ID, "status", status,
		"published", len(published), "failed", len(failures))
	return status, nil
}

func (d *Distributor) publishOne(ctx context.Context, job *domain.ContentJob, platform string) (domain.PublishResult, error) {
	publisher, ok := d.registry.Resolve(platform)
	if !ok {
		return domain.PublishResult{}, fmt.Errorf("unknown platform")
	}

	result, err := publisher.Publish(ctx, Project(job, platform))
	if err != nil {
		return domain.PublishResult{}, err
	}

	if err := d.tracker.TrackPublication(ctx, job.ID, result); err != nil {
		// The post is live; a tracking failure must not turn the
		// platform outcome into a failure.
		d.logger.Error("publication tracking failed", "job_id", job.ID, "platform", platform, "error", err)
	}
	return result, nil
}

func (d *Distributor) resolvePlatforms(requested []string, job *domain.ContentJob) []string {
	if len(requested) > 0 {
		return requested
	}
	if len(job.Distribution.Platforms) > 0 {
		return job.Distribution.Platforms
	}
	return d.defaultPlatforms
}

// distributionStatus decides the terminal status purely from the outcome
// sets: no successes at all means failure, any failure beside a success
// means partial, otherwise full publish. A success with an empty URL
// still counts as a success.
func distributionStatus(published map[string]string, failures []string) domain.JobStatus {
	switch {
	case len(published) == 0:
		return domain.StatusDistributionFailed
	case len(failures) > 0:
		return domain.StatusPartiallyPublished
	default:
		return domain.StatusPublished
	}
}
