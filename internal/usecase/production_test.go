package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"relayforge/internal/domain"
	"relayforge/internal/logging"
)

func TestHandleMediaSavesAssetsAndPublishes(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:           "job-m1",
		ScriptText:   "narration script",
		Status:       domain.StatusAnalysisComplete,
		Distribution: domain.DistributionConfig{Platforms: []string{"youtube", "twitter"}},
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	store := &fakeObjectStore{}

	stage := NewMediaStage(MediaStageDeps{
		Jobs:        jobs,
		Synthesizer: &fakeSynthesizer{data: []byte("RIFF")},
		Store:       store,
		Publisher:   queue,
		Logger:      logging.Discard(),
	})

	if err := stage.HandleMedia(context.Background(), domain.Message{JobID: "job-m1"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := jobs.Get(context.Background(), "job-m1")
	if stored.Status != domain.StatusMediaComplete {
		t.Fatalf("expected media_complete, got %s", stored.Status)
	}
	if !strings.HasPrefix(stored.MediaURL, "https://assets.local/job-m1/") {
		t.Fatalf("unexpected media url %s", stored.MediaURL)
	}
	if _, ok := stored.MediaAssets["narration"]; !ok {
		t.Fatalf("expected narration asset, got %v", stored.MediaAssets)
	}

	msgs := queue.messages(domain.DistributionQueue)
	if len(msgs) != 1 {
		t.Fatalf("expected one distribution message, got %d", len(msgs))
	}
	if len(msgs[0].Platforms) != 2 {
		t.Fatalf("distribution message must carry the job's platforms, got %v", msgs[0].Platforms)
	}
}

func TestHandleMediaSynthesisFailureRejects(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:         "job-m2",
		ScriptText: "narration script",
		Status:     domain.StatusAnalysisComplete,
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()

	stage := NewMediaStage(MediaStageDeps{
		Jobs:        jobs,
		Synthesizer: &fakeSynthesizer{err: errors.New("voice model down")},
		Store:       &fakeObjectStore{},
		Publisher:   queue,
		Logger:      logging.Discard(),
	})

	if err := stage.HandleMedia(context.Background(), domain.Message{JobID: "job-m2"}); err == nil {
		t.Fatalf("synthesis failure must surface as a handler error")
	}

	stored, _ := jobs.Get(context.Background(), "job-m2")
	if stored.Status != domain.StatusAnalysisComplete {
		t.Fatalf("failed production must not advance the job, got %s", stored.Status)
	}
	if got := len(queue.messages(domain.DistributionQueue)); got != 0 {
		t.Fatalf("failed production must not publish downstream, got %d", got)
	}
}

func TestHandleMediaPublishesToConfiguredQueue(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:         "job-m4",
		ScriptText: "narration script",
		Status:     domain.StatusAnalysisComplete,
	}
	queue := newFakeQueue()

	stage := NewMediaStage(MediaStageDeps{
		Jobs:              newFakeJobStore(job),
		Synthesizer:       &fakeSynthesizer{data: []byte("RIFF")},
		Store:             &fakeObjectStore{},
		Publisher:         queue,
		DistributionQueue: "distribution_custom",
		Logger:            logging.Discard(),
	})

	if err := stage.HandleMedia(context.Background(), domain.Message{JobID: "job-m4"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := len(queue.messages("distribution_custom")); got != 1 {
		t.Fatalf("expected message on the configured queue, got %d", got)
	}
	if got := len(queue.messages(domain.DistributionQueue)); got != 0 {
		t.Fatalf("default queue must stay empty, got %d", got)
	}
}

func TestHandleMediaRedeliveryOnlyRepublishes(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:       "job-m3",
		MediaURL: "https://assets.local/job-m3/narration.wav",
		Status:   domain.StatusMediaComplete,
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	store := &fakeObjectStore{}

	stage := NewMediaStage(MediaStageDeps{
		Jobs:        jobs,
		Synthesizer: &fakeSynthesizer{data: []byte("RIFF")},
		Store:       store,
		Publisher:   queue,
		Logger:      logging.Discard(),
	})

	if err := stage.HandleMedia(context.Background(), domain.Message{JobID: "job-m3"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(store.keys) != 0 {
		t.Fatalf("redelivery must not re-upload, uploaded %v", store.keys)
	}
	if got := len(queue.messages(domain.DistributionQueue)); got != 1 {
		t.Fatalf("expected downstream republish, got %d", got)
	}
}
