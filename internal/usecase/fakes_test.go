package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// fakeJobStore keeps jobs in a map and records status history.
type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*domain.ContentJob
	history map[string][]domain.JobStatus
}

func newFakeJobStore(jobs ...*domain.ContentJob) *fakeJobStore {
	s := &fakeJobStore{
		jobs:    map[string]*domain.ContentJob{},
		history: map[string][]domain.JobStatus{},
	}
	for _, job := range jobs {
		s.jobs[job.ID] = job
	}
	return s
}

func (s *fakeJobStore) Create(_ context.Context, job *domain.ContentJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) Get(_ context.Context, id string) (*domain.ContentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *fakeJobStore) List(_ context.Context, limit int) ([]*domain.ContentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*domain.ContentJob
	for _, job := range s.jobs {
		jobs = append(jobs, job)
		if len(jobs) == limit {
			break
		}
	}
	return jobs, nil
}

func (s *fakeJobStore) SetStatus(_ context.Context, id string, status domain.JobStatus, urls map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	if urls != nil {
		job.PublishedURLs = urls
	}
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *fakeJobStore) SaveAnalysis(_ context.Context, id string, text string, analysis domain.Analysis, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.ArticleText = text
	job.Analysis = analysis
	job.ScriptText = script
	job.Status = domain.StatusAnalysisComplete
	return nil
}

func (s *fakeJobStore) SaveMedia(_ context.Context, id string, mediaURL string, assets map[string]domain.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.MediaURL = mediaURL
	job.MediaAssets = assets
	job.Status = domain.StatusMediaComplete
	return nil
}

func (s *fakeJobStore) SetDistributionConfig(_ context.Context, id string, cfg domain.DistributionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Distribution = cfg
	return nil
}

func (s *fakeJobStore) statusOf(id string) domain.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id].Status
}

// fakeLedger is an in-memory dedup ledger.
type fakeLedger struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{keys: map[string]bool{}}
}

func (l *fakeLedger) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.keys[key], nil
}

func (l *fakeLedger) Record(_ context.Context, item domain.IngestedItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[item.SourceKey] = true
	return nil
}

// fakeQueue records publishes per queue.
type fakeQueue struct {
	mu        sync.Mutex
	published map[string][]domain.Message
	failNext  error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{published: map[string][]domain.Message{}}
}

func (q *fakeQueue) Publish(_ context.Context, queue string, msg domain.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext != nil {
		err := q.failNext
		q.failNext = nil
		return err
	}
	q.published[queue] = append(q.published[queue], msg)
	return nil
}

func (q *fakeQueue) messages(queue string) []domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Message(nil), q.published[queue]...)
}

// fakeScheduleStore is an in-memory schedule table.
type fakeScheduleStore struct {
	mu    sync.Mutex
	posts map[string]*domain.ScheduledPost
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{posts: map[string]*domain.ScheduledPost{}}
}

func (s *fakeScheduleStore) Upsert(_ context.Context, post domain.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.Status = domain.ScheduleStatusScheduled
	s.posts[post.JobID] = &post
	return nil
}

func (s *fakeScheduleStore) Get(_ context.Context, jobID string) (*domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[jobID]
	if !ok {
		return nil, nil
	}
	copied := *post
	return &copied, nil
}

func (s *fakeScheduleStore) Due(_ context.Context, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.ScheduledPost
	for _, post := range s.posts {
		if post.Due(now) {
			due = append(due, *post)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (s *fakeScheduleStore) List(_ context.Context, limit int) ([]domain.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []domain.ScheduledPost
	for _, post := range s.posts {
		posts = append(posts, *post)
		if len(posts) == limit {
			break
		}
	}
	return posts, nil
}

func (s *fakeScheduleStore) SetStatus(_ context.Context, jobID string, from []domain.ScheduleStatus, to domain.ScheduleStatus, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[jobID]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		allowed := false
		for _, st := range from {
			if post.Status == st {
				allowed = true
			}
		}
		if !allowed {
			return false, nil
		}
	}
	post.Status = to
	if errMsg != "" {
		post.ErrorMessage = errMsg
	}
	return true, nil
}

func (s *fakeScheduleStore) Reschedule(_ context.Context, jobID string, newTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[jobID]
	if !ok {
		return false, nil
	}
	if post.Status != domain.ScheduleStatusScheduled && post.Status != domain.ScheduleStatusFailed {
		return false, nil
	}
	post.ScheduledTime = newTime
	post.Status = domain.ScheduleStatusScheduled
	post.ErrorMessage = ""
	return true, nil
}

// fakePublicationStore is an in-memory analytics table keyed by
// (job, platform).
type fakePublicationStore struct {
	mu      sync.Mutex
	records map[string]*domain.PublicationRecord
}

func newFakePublicationStore() *fakePublicationStore {
	return &fakePublicationStore{records: map[string]*domain.PublicationRecord{}}
}

func pubKey(jobID, platform string) string { return jobID + "/" + platform }

func (s *fakePublicationStore) Upsert(_ context.Context, rec domain.PublicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pubKey(rec.JobID, rec.Platform)
	if existing, ok := s.records[key]; ok {
		rec.CurrentMetrics = existing.CurrentMetrics
		rec.LastUpdated = existing.LastUpdated
	}
	s.records[key] = &rec
	return nil
}

func (s *fakePublicationStore) Get(_ context.Context, jobID, platform string) (*domain.PublicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pubKey(jobID, platform)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *fakePublicationStore) ByJob(_ context.Context, jobID string) ([]domain.PublicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []domain.PublicationRecord
	for _, rec := range s.records {
		if rec.JobID == jobID {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (s *fakePublicationStore) PublishedSince(_ context.Context, cutoff time.Time) ([]domain.PublicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []domain.PublicationRecord
	for _, rec := range s.records {
		if rec.PlatformPostID != "" && !rec.PublishedAt.Before(cutoff) {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (s *fakePublicationStore) UpdateMetrics(_ context.Context, jobID, platform string, metrics domain.Metrics, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pubKey(jobID, platform)]
	if !ok {
		return fmt.Errorf("no record for %s/%s", jobID, platform)
	}
	rec.CurrentMetrics = metrics
	rec.LastUpdated = at
	return nil
}

// fakePublisher answers with a canned result or error.
type fakePublisher struct {
	name    string
	result  domain.PublishResult
	err     error
	metrics domain.Metrics

	mu        sync.Mutex
	published []ports.ProjectedContent
	queried   []string
}

func (p *fakePublisher) Name() string { return p.name }

func (p *fakePublisher) Publish(_ context.Context, content ports.ProjectedContent) (domain.PublishResult, error) {
	p.mu.Lock()
	p.published = append(p.published, content)
	p.mu.Unlock()
	if p.err != nil {
		return domain.PublishResult{}, p.err
	}
	result := p.result
	if result.Platform == "" {
		result.Platform = p.name
	}
	return result, nil
}

func (p *fakePublisher) Analytics(_ context.Context, postID string) (domain.Metrics, error) {
	p.mu.Lock()
	p.queried = append(p.queried, postID)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.metrics, nil
}

// fakeRegistry indexes fake publishers.
type fakeRegistry struct {
	publishers map[string]ports.Publisher
}

func newFakeRegistry(publishers ...ports.Publisher) *fakeRegistry {
	index := map[string]ports.Publisher{}
	for _, p := range publishers {
		index[p.Name()] = p
	}
	return &fakeRegistry{publishers: index}
}

func (r *fakeRegistry) Resolve(platform string) (ports.Publisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

func (r *fakeRegistry) Platforms() []string {
	var names []string
	for name := range r.publishers {
		names = append(names, name)
	}
	return names
}

// fakeFeedSource serves fixed items per feed URL.
type fakeFeedSource struct {
	items map[string][]ports.FeedItem
}

func (s *fakeFeedSource) Fetch(_ context.Context, feedURL string) ([]ports.FeedItem, error) {
	return s.items[feedURL], nil
}

// fakeExtractor returns fixed text or an error.
type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(context.Context, string) (string, error) {
	return e.text, e.err
}

// fakeAnalyzer returns a fixed analysis.
type fakeAnalyzer struct {
	analysis domain.Analysis
}

func (a *fakeAnalyzer) Analyze(context.Context, string, string) (domain.Analysis, error) {
	return a.analysis, nil
}

// fakeSynthesizer returns fixed bytes or an error.
type fakeSynthesizer struct {
	data []byte
	err  error
}

func (s *fakeSynthesizer) Synthesize(context.Context, string) ([]byte, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.data, "audio/wav", nil
}

// fakeObjectStore returns a deterministic URL per key.
type fakeObjectStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *fakeObjectStore) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return "https://assets.local/" + key, nil
}
