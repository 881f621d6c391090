package ports

import (
	"context"
	"time"

	"relayforge/internal/domain"
)

// Delivery is one in-flight queue message. It stays unacknowledged until
// the consumer explicitly settles it.
type Delivery struct {
	Queue string
	Body  []byte
	// Token identifies the in-flight entry for ack/reject bookkeeping.
	Token string
}

// QueueConsumer pulls deliveries from one durable queue with at most one
// unacknowledged message per consumer.
type QueueConsumer interface {
	// Receive blocks up to the given timeout; a nil delivery with nil
	// error means the queue was empty.
	Receive(ctx context.Context, queue string, timeout time.Duration) (*Delivery, error)
	// Ack settles the delivery after the handler persisted its result and
	// published downstream.
	Ack(ctx context.Context, d *Delivery) error
	// Reject drops the delivery without requeueing it; recovery is an
	// explicit operator retry.
	Reject(ctx context.Context, d *Delivery) error
	// Recover requeues deliveries a crashed consumer left in flight.
	Recover(ctx context.Context, queue string) (int, error)
}

// QueuePublisher pushes messages onto a durable queue.
type QueuePublisher interface {
	Publish(ctx context.Context, queue string, msg domain.Message) error
}

// JobStore is the canonical record of content jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.ContentJob) error
	Get(ctx context.Context, id string) (*domain.ContentJob, error)
	List(ctx context.Context, limit int) ([]*domain.ContentJob, error)
	// SetStatus moves the job to status, also stamping published URLs
	// when provided.
	SetStatus(ctx context.Context, id string, status domain.JobStatus, publishedURLs map[string]string) error
	// SaveAnalysis persists the analysis stage output in one write.
	SaveAnalysis(ctx context.Context, id string, articleText string, analysis domain.Analysis, script string) error
	// SaveMedia persists the production stage output in one write.
	SaveMedia(ctx context.Context, id string, mediaURL string, assets map[string]domain.MediaAsset) error
	SetDistributionConfig(ctx context.Context, id string, cfg domain.DistributionConfig) error
}

// DedupLedger records which external items already produced a job.
type DedupLedger interface {
	Seen(ctx context.Context, sourceKey string) (bool, error)
	Record(ctx context.Context, item domain.IngestedItem) error
}

// ScheduleStore persists deferred distribution requests.
type ScheduleStore interface {
	Upsert(ctx context.Context, post domain.ScheduledPost) error
	Get(ctx context.Context, jobID string) (*domain.ScheduledPost, error)
	// Due returns pending posts whose time elapsed, oldest first, capped
	// at limit.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error)
	List(ctx context.Context, limit int) ([]domain.ScheduledPost, error)
	// SetStatus transitions a post and returns false when no row was in
	// one of the allowed source states.
	SetStatus(ctx context.Context, jobID string, from []domain.ScheduleStatus, to domain.ScheduleStatus, errMsg string) (bool, error)
	// Reschedule moves the post to a new time, returning false when the
	// post was in neither scheduled nor failed state.
	Reschedule(ctx context.Context, jobID string, newTime time.Time) (bool, error)
}

// PublicationStore persists publish receipts and metric snapshots.
type PublicationStore interface {
	Upsert(ctx context.Context, rec domain.PublicationRecord) error
	Get(ctx context.Context, jobID, platform string) (*domain.PublicationRecord, error)
	ByJob(ctx context.Context, jobID string) ([]domain.PublicationRecord, error)
	// PublishedSince returns records published within the trailing window
	// that carry a known post id.
	PublishedSince(ctx context.Context, cutoff time.Time) ([]domain.PublicationRecord, error)
	UpdateMetrics(ctx context.Context, jobID, platform string, metrics domain.Metrics, at time.Time) error
}

// FeedItem is one entry of an external feed.
type FeedItem struct {
	ID        string
	Title     string
	Link      string
	Summary   string
	Published string
}

// FeedSource fetches items from one feed URL.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]FeedItem, error)
}

// ArticleExtractor turns a source URL into plain article text.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Analyzer is the LLM collaborator producing editorial analysis. It must
// not block the pipeline: implementations degrade to a structurally valid
// fallback instead of returning an error for upstream failures.
type Analyzer interface {
	Analyze(ctx context.Context, title, articleText string) (domain.Analysis, error)
}

// MediaSynthesizer renders media bytes from a job's script.
type MediaSynthesizer interface {
	Synthesize(ctx context.Context, script string) (data []byte, contentType string, err error)
}

// ObjectStore persists produced media and returns a public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ProjectedContent is the platform-bounded view of a job handed to a
// publisher. Built by a pure projection; publishers never see the job.
type ProjectedContent struct {
	Platform     string
	Title        string
	Text         string
	Description  string
	Caption      string
	Hashtags     []string
	Tags         []string
	MediaURL     string
	VideoURL     string
	ThumbnailURL string
	ArticleURL   string
	MediaFormat  string
}

// Publisher is one platform's publish + analytics capability.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, content ProjectedContent) (domain.PublishResult, error)
	Analytics(ctx context.Context, postID string) (domain.Metrics, error)
}

// PublisherRegistry resolves publishers by platform name.
type PublisherRegistry interface {
	Resolve(platform string) (Publisher, bool)
	Platforms() []string
}

// IntervalDriver runs a job on a fixed cadence until stopped.
type IntervalDriver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
