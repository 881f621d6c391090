package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"relayforge/internal/ports"
)

// rssDocument covers both RSS 2.0 and Atom feeds; unknown elements are
// ignored by the decoder.
type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	ID    string `xml:"id"`
	Title string `xml:"title"`
	Link  struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Summary string `xml:"summary"`
	Updated string `xml:"updated"`
}

// RSSSource fetches and decodes one feed per call.
type RSSSource struct {
	client    *http.Client
	userAgent string
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource wires an HTTP client.
func NewRSSSource(client *http.Client, userAgent string) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSSource{client: client, userAgent: userAgent}
}

// Fetch downloads the feed and returns its items in document order.
func (s *RSSSource) Fetch(ctx context.Context, feedURL string) ([]ports.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	var doc rssDocument
	decoder := xml.NewDecoder(resp.Body)
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items := make([]ports.FeedItem, 0, len(doc.Channel.Items)+len(doc.Entries))
	for _, it := range doc.Channel.Items {
		item := ports.FeedItem{
			ID:        strings.TrimSpace(it.GUID),
			Title:     strings.TrimSpace(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Summary:   strings.TrimSpace(it.Description),
			Published: strings.TrimSpace(it.PubDate),
		}
		if item.ID == "" {
			item.ID = item.Link
		}
		items = append(items, item)
	}
	for _, en := range doc.Entries {
		item := ports.FeedItem{
			ID:        strings.TrimSpace(en.ID),
			Title:     strings.TrimSpace(en.Title),
			Link:      strings.TrimSpace(en.Link.Href),
			Summary:   strings.TrimSpace(en.Summary),
			Published: strings.TrimSpace(en.Updated),
		}
		if item.ID == "" {
			item.ID = item.Link
		}
		items = append(items, item)
	}
	return items, nil
}
