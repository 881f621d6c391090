package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"relayforge/internal/config"
	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

func TestRegistryResolvesByName(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(
		NewTwitter(config.TwitterConfig{}, nil),
		NewLinkedIn(config.LinkedInConfig{}, nil),
		NewYouTube(config.YouTubeConfig{}, nil),
	)

	if _, ok := reg.Resolve("twitter"); !ok {
		t.Fatalf("twitter must resolve")
	}
	if _, ok := reg.Resolve("myspace"); ok {
		t.Fatalf("unknown platform must not resolve")
	}

	want := []string{"linkedin", "twitter", "youtube"}
	if got := reg.Platforms(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected sorted names %v, got %v", want, got)
	}
}

func TestUnconfiguredPublishersFail(t *testing.T) {
	t.Parallel()

	publishers := []ports.Publisher{
		NewYouTube(config.YouTubeConfig{}, nil),
		NewInstagram(config.InstagramConfig{}, nil),
		NewTwitter(config.TwitterConfig{}, nil),
		NewLinkedIn(config.LinkedInConfig{}, nil),
	}

	for _, p := range publishers {
		_, err := p.Publish(context.Background(), ports.ProjectedContent{})
		var notConfigured ErrNotConfigured
		if !errors.As(err, &notConfigured) {
			t.Fatalf("%s: expected not-configured error, got %v", p.Name(), err)
		}
	}
}

func TestTwitterPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected auth %q", got)
		}
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Text != "hello world" {
			t.Errorf("unexpected text %q", body.Text)
		}
		w.Write([]byte(`{"data":{"id":"12345"}}`))
	}))
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{BearerToken: "token"}, srv.Client())
	tw.baseURL = srv.URL

	result, err := tw.Publish(context.Background(), ports.ProjectedContent{Text: "hello world"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.PostID != "12345" {
		t.Fatalf("unexpected post id %q", result.PostID)
	}
	if result.ResolvePostID() != "12345" {
		t.Fatalf("tweet id must resolve, got %q", result.ResolvePostID())
	}
}

func TestTwitterAnalyticsMapsMetrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"public_metrics":{
			"impression_count":1000,"like_count":50,"reply_count":7,"retweet_count":3}}}`))
	}))
	defer srv.Close()

	tw := NewTwitter(config.TwitterConfig{BearerToken: "token"}, srv.Client())
	tw.baseURL = srv.URL

	metrics, err := tw.Analytics(context.Background(), "12345")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	want := domain.Metrics{"views": 1000, "likes": 50, "comments": 7, "retweets": 3}
	if !reflect.DeepEqual(metrics, want) {
		t.Fatalf("expected %v, got %v", want, metrics)
	}
}

func TestInstagramPublishTwoStepFlow(t *testing.T) {
	t.Parallel()

	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/acct-1/media":
			w.Write([]byte(`{"id":"container-9"}`))
		case "/acct-1/media_publish":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["creation_id"] != "container-9" {
				t.Errorf("publish must reference the container, got %v", body["creation_id"])
			}
			w.Write([]byte(`{"id":"media-7"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ig := NewInstagram(config.InstagramConfig{AccessToken: "tok", AccountID: "acct-1"}, srv.Client())
	ig.baseURL = srv.URL

	result, err := ig.Publish(context.Background(), ports.ProjectedContent{
		Caption:  "caption",
		VideoURL: "https://assets.local/v.mp4",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.PostID != "media-7" {
		t.Fatalf("unexpected media id %q", result.PostID)
	}
	if len(calls) != 2 {
		t.Fatalf("expected container+publish calls, got %v", calls)
	}
}

func TestLinkedInPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ugcPosts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["author"] != "urn:li:person:1" {
			t.Errorf("unexpected author %v", body["author"])
		}
		w.Write([]byte(`{"id":"urn:li:share:42"}`))
	}))
	defer srv.Close()

	li := NewLinkedIn(config.LinkedInConfig{AccessToken: "tok", AuthorURN: "urn:li:person:1"}, srv.Client())
	li.baseURL = srv.URL

	result, err := li.Publish(context.Background(), ports.ProjectedContent{
		Title:      "Title",
		Text:       "commentary",
		ArticleURL: "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.PostID != "urn:li:share:42" {
		t.Fatalf("unexpected post id %q", result.PostID)
	}
}
