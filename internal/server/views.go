package server

import (
	"time"

	"relayforge/internal/domain"
)

// jobView is the list-level projection of a job.
type jobView struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	SourceURL string           `json:"source_url,omitempty"`
	Status    domain.JobStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// jobDetail adds the stage outputs to the list view.
type jobDetail struct {
	jobView
	SourceMetadata map[string]any               `json:"source_metadata,omitempty"`
	Analysis       domain.Analysis              `json:"analysis"`
	ScriptText     string                       `json:"script_text,omitempty"`
	MediaURL       string                       `json:"media_url,omitempty"`
	MediaAssets    map[string]domain.MediaAsset `json:"media_assets,omitempty"`
	Distribution   domain.DistributionConfig    `json:"distribution_config"`
	PublishedURLs  map[string]string            `json:"published_urls,omitempty"`
}

func toJobView(job *domain.ContentJob) jobView {
	return jobView{
		ID:        job.ID,
		Title:     job.Title,
		SourceURL: job.SourceURL,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func toJobDetail(job *domain.ContentJob) jobDetail {
	return jobDetail{
		jobView:        toJobView(job),
		SourceMetadata: job.SourceMetadata,
		Analysis:       job.Analysis,
		ScriptText:     job.ScriptText,
		MediaURL:       job.MediaURL,
		MediaAssets:    job.MediaAssets,
		Distribution:   job.Distribution,
		PublishedURLs:  job.PublishedURLs,
	}
}
