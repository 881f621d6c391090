package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"relayforge/internal/config"
	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

const articleCharBudget = 12000

// ChatGPTAnalyzer implements ports.Analyzer against an OpenAI-compatible
// chat-completion API. It never fails the pipeline: any upstream error
// degrades into a locally built, structurally complete analysis.
type ChatGPTAnalyzer struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

var _ ports.Analyzer = (*ChatGPTAnalyzer)(nil)

// NewChatGPTAnalyzer builds a client from configuration.
func NewChatGPTAnalyzer(cfg config.AnalysisConfig, logger *slog.Logger) *ChatGPTAnalyzer {
	return &ChatGPTAnalyzer{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout.Std(),
		},
		logger: logger,
	}
}

// Analyze asks the model for the editorial breakdown of one article.
func (c *ChatGPTAnalyzer) Analyze(ctx context.Context, title, articleText string) (domain.Analysis, error) {
	content, err := c.complete(ctx, title, articleText)
	if err != nil {
		c.logger.Warn("analysis degraded to local fallback", "title", title, "error", err)
		return FallbackAnalysis(title, articleText), nil
	}

	analysis, ok := parseAnalysis(content)
	if !ok {
		// The model answered but not in the requested JSON shape; keep
		// what we can as free text.
		return domain.Analysis{
			Summary: clip(content, 1000),
			Script:  clip(content, 2000),
		}, nil
	}
	return analysis, nil
}

func (c *ChatGPTAnalyzer) complete(ctx context.Context, title, articleText string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("analysis api key is not set")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": fmt.Sprintf("Title: %s\n\nArticle:\n%s", title, clip(articleText, articleCharBudget))},
		},
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion api %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// parseAnalysis accepts both the requested key_points field and the
// older bullets spelling that some prompts produce.
func parseAnalysis(content string) (domain.Analysis, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"key_points"`
		Bullets   []string `json:"bullets"`
		Script    string   `json:"script"`
		Titles    []string `json:"titles"`
		Hashtags  []string `json:"hashtags"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return domain.Analysis{}, false
	}

	points := raw.KeyPoints
	if len(points) == 0 {
		points = raw.Bullets
	}
	return domain.Analysis{
		Summary:   raw.Summary,
		KeyPoints: points,
		Script:    raw.Script,
		Titles:    raw.Titles,
		Hashtags:  raw.Hashtags,
	}, true
}

// FallbackAnalysis builds a degenerate but structurally complete
// analysis from the raw article, so downstream stages never see a hole.
func FallbackAnalysis(title, articleText string) domain.Analysis {
	preview := clip(strings.TrimSpace(articleText), 600)

	var points []string
	runes := []rune(preview)
	for i := 0; i < len(runes) && len(points) < 5; i += 120 {
		end := i + 120
		if end > len(runes) {
			end = len(runes)
		}
		points = append(points, string(runes[i:end]))
	}

	return domain.Analysis{
		Summary:   preview,
		KeyPoints: points,
		Script:    fmt.Sprintf("Title: %s\n\n%s\n\n(End)", title, preview),
		Titles:    []string{title, "Update: " + title, "Deep Dive: " + title},
		Hashtags:  []string{"#news", "#tech", "#ai", "#update", "#trending"},
	}
}

// clip caps s at n characters. Limits are character ceilings, so the cut
// lands on a rune boundary and never produces invalid UTF-8.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
