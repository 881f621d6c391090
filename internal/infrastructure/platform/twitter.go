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

const twitterAPIBaseURL = "https://api.twitter.com/2"

// Twitter posts through the v2 API with a bearer token. The projection
// already fit the text into the character budget; the publisher sends it
// verbatim.
type Twitter struct {
	cfg     config.TwitterConfig
	client  *http.Client
	baseURL string
}

var _ ports.Publisher = (*Twitter)(nil)

// NewTwitter wires the publisher.
func NewTwitter(cfg config.TwitterConfig, client *http.Client) *Twitter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Twitter{cfg: cfg, client: client, baseURL: twitterAPIBaseURL}
}

// Name identifies the platform inside the registry.
func (t *Twitter) Name() string { return "twitter" }

// Publish creates the tweet.
func (t *Twitter) Publish(ctx context.Context, content ports.ProjectedContent) (domain.PublishResult, error) {
	if t.cfg.BearerToken == "" {
		return domain.PublishResult{}, ErrNotConfigured{Platform: t.Name()}
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + t.cfg.BearerToken}
	err := doJSON(ctx, t.client, http.MethodPost, t.baseURL+"/tweets", headers,
		map[string]any{"text": content.Text}, &created)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("create tweet: %w", err)
	}
	if created.Data.ID == "" {
		return domain.PublishResult{}, fmt.Errorf("tweet response has no id")
	}

	return domain.PublishResult{
		Platform:    t.Name(),
		URL:         fmt.Sprintf("https://twitter.com/i/web/status/%s", created.Data.ID),
		PostID:      created.Data.ID,
		Status:      "published",
		PublishedAt: nowStamp(),
		Extra:       map[string]any{"tweet_id": created.Data.ID},
	}, nil
}

// Analytics returns the tweet's public metrics, mapping retweets into
// their own counter so the rollup can fold them into shares.
func (t *Twitter) Analytics(ctx context.Context, postID string) (domain.Metrics, error) {
	if t.cfg.BearerToken == "" {
		return nil, ErrNotConfigured{Platform: t.Name()}
	}

	var payload struct {
		Data struct {
			PublicMetrics struct {
				ImpressionCount int64 `json:"impression_count"`
				LikeCount       int64 `json:"like_count"`
				ReplyCount      int64 `json:"reply_count"`
				RetweetCount    int64 `json:"retweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + t.cfg.BearerToken}
	tweetURL := fmt.Sprintf("%s/tweets/%s?tweet.fields=public_metrics", t.baseURL, url.PathEscape(postID))
	if err := doJSON(ctx, t.client, http.MethodGet, tweetURL, headers, nil, &payload); err != nil {
		return nil, err
	}

	m := payload.Data.PublicMetrics
	return domain.Metrics{
		"views":    m.ImpressionCount,
		"likes":    m.LikeCount,
		"comments": m.ReplyCount,
		"retweets": m.RetweetCount,
	}, nil
}
