package domain

import (
	"errors"
	"time"
)

// ErrJobNotFound signals a permanent input failure: the referenced job
// does not exist in the store.
var ErrJobNotFound = errors.New("job not found")

// JobStatus enumerates pipeline milestones for a content job.
type JobStatus string

const (
	StatusIngested           JobStatus = "ingested"
	StatusProcessing         JobStatus = "processing"
	StatusAnalysisComplete   JobStatus = "analysis_complete"
	StatusMediaComplete      JobStatus = "media_complete"
	StatusScheduled          JobStatus = "scheduled"
	StatusPublished          JobStatus = "published"
	StatusPartiallyPublished JobStatus = "partially_published"
	StatusDistributionFailed JobStatus = "distribution_failed"
	StatusScheduleFailed     JobStatus = "schedule_failed"
)

// rank orders statuses along the forward path of the pipeline. Terminal
// distribution outcomes share a rank: a job moves between them only via
// operator retry.
var statusRank = map[JobStatus]int{
	StatusIngested:           0,
	StatusProcessing:         1,
	StatusAnalysisComplete:   2,
	StatusMediaComplete:      3,
	StatusScheduled:          4,
	StatusScheduleFailed:     4,
	StatusPublished:          5,
	StatusPartiallyPublished: 5,
	StatusDistributionFailed: 5,
}

// Rank returns the forward-progress position of a status, -1 if unknown.
func (s JobStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// CanAdvance reports whether moving from s to next keeps the monotonic
// forward invariant. Operator retry (reset to StatusIngested) is the one
// sanctioned backward move and is not expressed here.
func (s JobStatus) CanAdvance(next JobStatus) bool {
	from, to := s.Rank(), next.Rank()
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

// Terminal reports whether the status ends a distribution round.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusPublished, StatusPartiallyPublished, StatusDistributionFailed:
		return true
	}
	return false
}

// Analysis is the structured output of the analysis collaborator.
type Analysis struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Script    string   `json:"script"`
	Titles    []string `json:"titles"`
	Hashtags  []string `json:"hashtags"`
}

// MediaAsset points to one rendered artifact of a job (video, thumbnail).
type MediaAsset struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats,omitempty"`
}

// DistributionConfig selects target platforms and an optional deferred
// publish time for a job.
type DistributionConfig struct {
	Platforms    []string   `json:"platforms,omitempty"`
	ScheduleTime *time.Time `json:"schedule_time,omitempty"`
}

// ContentJob is the canonical record of one content item moving through
// the pipeline. The job store owns it; stages mutate it once per pass and
// nothing in the pipeline ever deletes it.
type ContentJob struct {
	ID             string
	SourceURL      string
	Title          string
	SourceMetadata map[string]any
	ArticleText    string
	Analysis       Analysis
	ScriptText     string
	MediaURL       string
	MediaAssets    map[string]MediaAsset
	Distribution   DistributionConfig
	PublishedURLs  map[string]string
	Status         JobStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IngestedItem is the dedup ledger entry for one external source item.
// Existence alone blocks re-ingestion; the record is never mutated.
type IngestedItem struct {
	SourceKey  string
	SourceURL  string
	Title      string
	IngestedAt time.Time
}

// SourceKey builds the composite ledger key for a feed item.
func SourceKey(feed, itemID string) string {
	return feed + "|" + itemID
}
