package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"relayforge/internal/ports"
)

// contentSelectors are tried in order; the first match with enough text
// wins. The body fallback keeps extraction working on unknown layouts.
var contentSelectors = []string{
	"article",
	"main",
	"div[itemprop=articleBody]",
	".article-body",
	".post-content",
	".entry-content",
	"body",
}

const minContentLength = 200

// GoqueryExtractor fetches a page and strips it down to plain article
// text, capped to a fixed byte budget.
type GoqueryExtractor struct {
	client    *http.Client
	userAgent string
	textCap   int
}

var _ ports.ArticleExtractor = (*GoqueryExtractor)(nil)

// NewGoqueryExtractor wires an HTTP client; textCap defaults to 8000.
func NewGoqueryExtractor(client *http.Client, userAgent string, textCap int) *GoqueryExtractor {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if textCap <= 0 {
		textCap = 8000
	}
	return &GoqueryExtractor{client: client, userAgent: userAgent, textCap: textCap}
}

// Extract downloads the page and returns its readable text.
func (e *GoqueryExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	doc, err := e.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, aside, form, iframe").Remove()

	var text string
	for _, selector := range contentSelectors {
		candidate := collapseWhitespace(doc.Find(selector).First().Text())
		if len(candidate) >= minContentLength {
			text = candidate
			break
		}
		if text == "" && candidate != "" {
			text = candidate
		}
	}
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", pageURL)
	}

	if len(text) > e.textCap {
		text = text[:e.textCap]
	}
	return text, nil
}

func (e *GoqueryExtractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
