package domain

import "testing"

func TestResolvePostID(t *testing.T) {
	t.Parallel()

	direct := PublishResult{PostID: "direct", Extra: map[string]any{"video_id": "extra"}}
	if got := direct.ResolvePostID(); got != "direct" {
		t.Fatalf("canonical field must win, got %q", got)
	}

	video := PublishResult{Extra: map[string]any{"video_id": "v1", "tweet_id": "t1"}}
	if got := video.ResolvePostID(); got != "v1" {
		t.Fatalf("expected video_id, got %q", got)
	}

	tweet := PublishResult{Extra: map[string]any{"tweet_id": "t1"}}
	if got := tweet.ResolvePostID(); got != "t1" {
		t.Fatalf("expected tweet_id, got %q", got)
	}

	empty := PublishResult{Extra: map[string]any{"post_id": "", "other": "x"}}
	if got := empty.ResolvePostID(); got != "" {
		t.Fatalf("no identifier must resolve to empty, got %q", got)
	}
}

func TestEngagementScoreAndRate(t *testing.T) {
	t.Parallel()

	rec := PublicationRecord{CurrentMetrics: Metrics{
		"views":    100,
		"likes":    10,
		"comments": 5,
		"shares":   1,
		"retweets": 1,
	}}

	// likes + 2*comments + 3*(shares+retweets)
	if got := rec.EngagementScore(); got != 26 {
		t.Fatalf("expected score 26, got %d", got)
	}
	if got := rec.EngagementRate(); got != 0.26 {
		t.Fatalf("expected rate 0.26, got %v", got)
	}

	zero := PublicationRecord{CurrentMetrics: Metrics{"likes": 10}}
	if got := zero.EngagementRate(); got != 0 {
		t.Fatalf("rate without views must be 0, got %v", got)
	}
}

func TestMessageDecodeToleratesUnknownFields(t *testing.T) {
	t.Parallel()

	body := []byte(`{"job_id":"j1","title":"t","unexpected":{"nested":true}}`)
	msg, err := DecodeMessage(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.JobID != "j1" || msg.Title != "t" {
		t.Fatalf("unexpected message %+v", msg)
	}
}
