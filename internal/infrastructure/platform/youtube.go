package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"relayforge/internal/config"
	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

const (
	youtubeTokenURL     = "https://oauth2.googleapis.com/token"
	youtubeUploadURL    = "https://www.googleapis.com/upload/youtube/v3/videos?part=snippet,status&uploadType=multipart"
	youtubeVideosURL    = "https://www.googleapis.com/youtube/v3/videos"
	youtubeWatchBaseURL = "https://www.youtube.com/watch?v="
)

// YouTube publishes videos through the Data API v3 using an OAuth
// refresh token. Uploads can run for minutes, so the client carries a
// long timeout of its own.
type YouTube struct {
	cfg    config.YouTubeConfig
	client *http.Client
}

var _ ports.Publisher = (*YouTube)(nil)

// NewYouTube wires the publisher; a nil client gets an upload-sized
// timeout.
func NewYouTube(cfg config.YouTubeConfig, client *http.Client) *YouTube {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &YouTube{cfg: cfg, client: client}
}

// Name identifies the platform inside the registry.
func (y *YouTube) Name() string { return "youtube" }

func (y *YouTube) configured() bool {
	return y.cfg.ClientID != "" && y.cfg.ClientSecret != "" && y.cfg.RefreshToken != ""
}

// Publish uploads the job's video with the projected metadata.
func (y *YouTube) Publish(ctx context.Context, content ports.ProjectedContent) (domain.PublishResult, error) {
	if !y.configured() {
		return domain.PublishResult{}, ErrNotConfigured{Platform: y.Name()}
	}

	token, err := y.accessToken(ctx)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("youtube auth: %w", err)
	}

	mediaURL := content.VideoURL
	if mediaURL == "" {
		mediaURL = content.MediaURL
	}
	media, err := y.fetchMedia(ctx, mediaURL)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("fetch media: %w", err)
	}

	videoID, err := y.upload(ctx, token, content, media)
	if err != nil {
		return domain.PublishResult{}, err
	}

	return domain.PublishResult{
		Platform:    y.Name(),
		URL:         youtubeWatchBaseURL + videoID,
		PostID:      videoID,
		Status:      "published",
		PublishedAt: nowStamp(),
		Extra:       map[string]any{"video_id": videoID},
	}, nil
}

// Analytics returns the video's statistics keyed in pipeline vocabulary.
func (y *YouTube) Analytics(ctx context.Context, postID string) (domain.Metrics, error) {
	if !y.configured() {
		return nil, ErrNotConfigured{Platform: y.Name()}
	}

	token, err := y.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}

	var payload struct {
		Items []struct {
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	statsURL := fmt.Sprintf("%s?part=statistics&id=%s", youtubeVideosURL, url.QueryEscape(postID))
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := doJSON(ctx, y.client, http.MethodGet, statsURL, headers, nil, &payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("video %s not found", postID)
	}

	stats := payload.Items[0].Statistics
	return domain.Metrics{
		"views":    parseCount(stats.ViewCount),
		"likes":    parseCount(stats.LikeCount),
		"comments": parseCount(stats.CommentCount),
	}, nil
}

func (y *YouTube) accessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {y.cfg.ClientID},
		"client_secret": {y.cfg.ClientSecret},
		"refresh_token": {y.cfg.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, youtubeTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}
	return token.AccessToken, nil
}

func (y *YouTube) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if mediaURL == "" {
		return nil, fmt.Errorf("no media url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (y *YouTube) upload(ctx context.Context, token string, content ports.ProjectedContent, media []byte) (string, error) {
	metadata := map[string]any{
		"snippet": map[string]any{
			"title":       content.Title,
			"description": content.Description,
			"tags":        content.Tags,
			"categoryId":  "25", // News & Politics
		},
		"status": map[string]any{"privacyStatus": "public"},
	}
	metaRaw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("create metadata part: %w", err)
	}
	metaPart.Write(metaRaw)

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "application/octet-stream")
	mediaPart, err := writer.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("create media part: %w", err)
	}
	mediaPart.Write(media)

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, youtubeUploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("upload response has no video id")
	}
	return uploaded.ID, nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
