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

const instagramGraphBaseURL = "https://graph.facebook.com/v19.0"

// Instagram publishes reels through the Graph API's two-step container
// flow: create a media container, then publish it.
type Instagram struct {
	cfg     config.InstagramConfig
	client  *http.Client
	baseURL string
}

var _ ports.Publisher = (*Instagram)(nil)

// NewInstagram wires the publisher.
func NewInstagram(cfg config.InstagramConfig, client *http.Client) *Instagram {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Instagram{cfg: cfg, client: client, baseURL: instagramGraphBaseURL}
}

// Name identifies the platform inside the registry.
func (i *Instagram) Name() string { return "instagram" }

func (i *Instagram) configured() bool {
	return i.cfg.AccessToken != "" && i.cfg.AccountID != ""
}

// Publish creates and publishes a media container for the projected
// caption and media.
func (i *Instagram) Publish(ctx context.Context, content ports.ProjectedContent) (domain.PublishResult, error) {
	if !i.configured() {
		return domain.PublishResult{}, ErrNotConfigured{Platform: i.Name()}
	}

	mediaURL := content.VideoURL
	if mediaURL == "" {
		mediaURL = content.MediaURL
	}

	var container struct {
		ID string `json:"id"`
	}
	createURL := fmt.Sprintf("%s/%s/media", i.baseURL, url.PathEscape(i.cfg.AccountID))
	err := doJSON(ctx, i.client, http.MethodPost, createURL, nil, map[string]any{
		"media_type":   "REELS",
		"video_url":    mediaURL,
		"caption":      content.Caption,
		"access_token": i.cfg.AccessToken,
	}, &container)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("create container: %w", err)
	}
	if container.ID == "" {
		return domain.PublishResult{}, fmt.Errorf("container response has no id")
	}

	var published struct {
		ID string `json:"id"`
	}
	publishURL := fmt.Sprintf("%s/%s/media_publish", i.baseURL, url.PathEscape(i.cfg.AccountID))
	err = doJSON(ctx, i.client, http.MethodPost, publishURL, nil, map[string]any{
		"creation_id":  container.ID,
		"access_token": i.cfg.AccessToken,
	}, &published)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("publish container: %w", err)
	}
	if published.ID == "" {
		return domain.PublishResult{}, fmt.Errorf("publish response has no media id")
	}

	return domain.PublishResult{
		Platform:    i.Name(),
		URL:         fmt.Sprintf("https://www.instagram.com/p/%s/", published.ID),
		PostID:      published.ID,
		Status:      "published",
		PublishedAt: nowStamp(),
		Extra:       map[string]any{"media_id": published.ID},
	}, nil
}

// Analytics returns the media object's engagement counters.
func (i *Instagram) Analytics(ctx context.Context, postID string) (domain.Metrics, error) {
	if !i.configured() {
		return nil, ErrNotConfigured{Platform: i.Name()}
	}

	var payload struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	mediaURL := fmt.Sprintf("%s/%s?fields=like_count,comments_count&access_token=%s",
		i.baseURL, url.PathEscape(postID), url.QueryEscape(i.cfg.AccessToken))
	if err := doJSON(ctx, i.client, http.MethodGet, mediaURL, nil, nil, &payload); err != nil {
		return nil, err
	}

	return domain.Metrics{
		"likes":    payload.LikeCount,
		"comments": payload.CommentsCount,
	}, nil
}
