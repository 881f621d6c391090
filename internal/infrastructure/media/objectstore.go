package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"relayforge/internal/config"
	"relayforge/internal/ports"
)

// HTTPObjectStore uploads media via plain HTTP PUT, the protocol spoken
// by S3-compatible gateways like MinIO in path style.
type HTTPObjectStore struct {
	endpoint      string
	bucket        string
	publicBaseURL string
	client        *http.Client
}

var _ ports.ObjectStore = (*HTTPObjectStore)(nil)

// NewHTTPObjectStore wires the store from configuration.
func NewHTTPObjectStore(cfg config.MediaConfig, client *http.Client) *HTTPObjectStore {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = cfg.Endpoint
	}
	return &HTTPObjectStore{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(publicBase, "/"),
		client:        client,
	}
}

// Put uploads the object and returns its public URL.
func (s *HTTPObjectStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	target := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("object store %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
}
