package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"relayforge/internal/config"
	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

const linkedinAPIBaseURL = "https://api.linkedin.com/v2"

// LinkedIn publishes article shares as UGC posts.
type LinkedIn struct {
	cfg     config.LinkedInConfig
	client  *http.Client
	baseURL string
}

var _ ports.Publisher = (*LinkedIn)(nil)

// NewLinkedIn wires the publisher.
func NewLinkedIn(cfg config.LinkedInConfig, client *http.Client) *LinkedIn {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &LinkedIn{cfg: cfg, client: client, baseURL: linkedinAPIBaseURL}
}

// Name identifies the platform inside the registry.
func (l *LinkedIn) Name() string { return "linkedin" }

func (l *LinkedIn) configured() bool {
	return l.cfg.AccessToken != "" && l.cfg.AuthorURN != ""
}

// Publish creates a UGC post sharing the source article with the
// projected commentary.
func (l *LinkedIn) Publish(ctx context.Context, content ports.ProjectedContent) (domain.PublishResult, error) {
	if !l.configured() {
		return domain.PublishResult{}, ErrNotConfigured{Platform: l.Name()}
	}

	shareContent := map[string]any{
		"shareCommentary":    map[string]any{"text": content.Text},
		"shareMediaCategory": "NONE",
	}
	if content.ArticleURL != "" {
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = []map[string]any{{
			"status":      "READY",
			"originalUrl": content.ArticleURL,
			"title":       map[string]any{"text": content.Title},
		}}
	}

	body := map[string]any{
		"author":         l.cfg.AuthorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var created struct {
		ID string `json:"id"`
	}
	headers := map[string]string{
		"Authorization":             "Bearer " + l.cfg.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}
	if err := doJSON(ctx, l.client, http.MethodPost, l.baseURL+"/ugcPosts", headers, body, &created); err != nil {
		return domain.PublishResult{}, fmt.Errorf("create ugc post: %w", err)
	}
	if created.ID == "" {
		return domain.PublishResult{}, fmt.Errorf("ugc response has no id")
	}

	return domain.PublishResult{
		Platform:    l.Name(),
		URL:         fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", created.ID),
		PostID:      created.ID,
		Status:      "published",
		PublishedAt: nowStamp(),
		Extra:       map[string]any{"post_id": created.ID},
	}, nil
}

// Analytics returns the share's social counters.
func (l *LinkedIn) Analytics(ctx context.Context, postID string) (domain.Metrics, error) {
	if !l.configured() {
		return nil, ErrNotConfigured{Platform: l.Name()}
	}

	var payload struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalComments int64 `json:"aggregatedTotalComments"`
		} `json:"commentsSummary"`
	}
	headers := map[string]string{"Authorization": "Bearer " + l.cfg.AccessToken}
	statsURL := fmt.Sprintf("%s/socialActions/%s", l.baseURL, url.PathEscape(postID))
	if err := doJSON(ctx, l.client, http.MethodGet, statsURL, headers, nil, &payload); err != nil {
		return nil, err
	}

	return domain.Metrics{
		"likes":    payload.LikesSummary.TotalLikes,
		"comments": payload.CommentsSummary.TotalComments,
	}, nil
}
