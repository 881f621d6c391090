package domain

import "time"

// Metrics is one engagement snapshot as reported by a platform. Keys are
// platform vocabulary (views, likes, comments, shares, retweets, ...).
type Metrics map[string]int64

// Views returns the view count, zero when absent.
func (m Metrics) Views() int64 { return m["views"] }

// Shares folds every shares-equivalent counter into one number.
func (m Metrics) Shares() int64 { return m["shares"] + m["retweets"] }

// PublishResult is the uniform outcome of one platform publish. PostID
// carries the canonical identifier when the publisher sets it; Extra
// preserves the raw platform response so the aggregator can recover an
// identifier from platform-specific field names.
type PublishResult struct {
	Platform    string         `json:"platform"`
	URL         string         `json:"url"`
	PostID      string         `json:"post_id,omitempty"`
	Status      string         `json:"status,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// postIDFields lists the identifier names platform responses are known to
// use, in resolution order.
var postIDFields = []string{"post_id", "video_id", "tweet_id", "media_id"}

// ResolvePostID returns the first non-empty identifier found in the
// result, preferring the canonical PostID field.
func (r PublishResult) ResolvePostID() string {
	if r.PostID != "" {
		return r.PostID
	}
	for _, field := range postIDFields {
		if v, ok := r.Extra[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// PublicationRecord is the durable receipt of a successful publish,
// unique per (job, platform) and enriched over time with metrics.
type PublicationRecord struct {
	JobID          string
	Platform       string
	PlatformPostID string
	PostURL        string
	PublishedAt    time.Time
	InitialData    PublishResult
	CurrentMetrics Metrics
	LastUpdated    time.Time
}

// EngagementScore weighs interactions: likes count once, comments twice,
// shares (and retweets) three times.
func (p PublicationRecord) EngagementScore() int64 {
	m := p.CurrentMetrics
	return m["likes"] + 2*m["comments"] + 3*m.Shares()
}

// EngagementRate is the score per view, zero when views are unknown.
func (p PublicationRecord) EngagementRate() float64 {
	views := p.CurrentMetrics.Views()
	if views == 0 {
		return 0
	}
	return float64(p.EngagementScore()) / float64(views)
}

// JobEngagement is the cross-platform rollup for one job.
type JobEngagement struct {
	JobID       string                       `json:"job_id"`
	Platforms   map[string]PublicationRecord `json:"platforms"`
	Views       int64                        `json:"views"`
	Likes       int64                        `json:"likes"`
	Comments    int64                        `json:"comments"`
	Shares      int64                        `json:"shares"`
	LastUpdated time.Time                    `json:"last_updated"`
}

// RankedPublication is a publication with its computed engagement rank,
// as returned by the top-content query.
type RankedPublication struct {
	PublicationRecord
	Score float64 `json:"engagement_score"`
	Rate  float64 `json:"engagement_rate"`
}
