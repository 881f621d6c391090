package usecase

import (
	"context"
	"errors"
	"testing"

	"relayforge/internal/domain"
	"relayforge/internal/logging"
)

func newTestAnalysisStage(jobs *fakeJobStore, extractor *fakeExtractor, queue *fakeQueue) *AnalysisStage {
	return NewAnalysisStage(AnalysisStageDeps{
		Jobs:      jobs,
		Extractor: extractor,
		Analyzer: &fakeAnalyzer{analysis: domain.Analysis{
			Summary: "summary",
			Script:  "script",
		}},
		Publisher: queue,
		Logger:    logging.Discard(),
	})
}

func TestHandleStorySavesAnalysisAndPublishes(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:        "job-an1",
		Title:     "Story",
		SourceURL: "https://example.com/a",
		Status:    domain.StatusIngested,
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	stage := newTestAnalysisStage(jobs, &fakeExtractor{text: "full article text"}, queue)

	if err := stage.HandleStory(context.Background(), domain.Message{JobID: "job-an1"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := jobs.Get(context.Background(), "job-an1")
	if stored.Status != domain.StatusAnalysisComplete {
		t.Fatalf("expected analysis_complete, got %s", stored.Status)
	}
	if stored.ArticleText != "full article text" || stored.ScriptText != "script" {
		t.Fatalf("unexpected stage output: %+v", stored)
	}

	msgs := queue.messages(domain.MediaQueue)
	if len(msgs) != 1 || msgs[0].JobID != "job-an1" {
		t.Fatalf("expected media message for job, got %v", msgs)
	}
}

func TestHandleStoryRedeliveryOnlyRepublishes(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:          "job-an2",
		Title:       "Story",
		ArticleText: "already analyzed",
		ScriptText:  "existing script",
		Status:      domain.StatusAnalysisComplete,
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	extractor := &fakeExtractor{text: "should not be used"}
	stage := newTestAnalysisStage(jobs, extractor, queue)

	if err := stage.HandleStory(context.Background(), domain.Message{JobID: "job-an2"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := jobs.Get(context.Background(), "job-an2")
	if stored.ArticleText != "already analyzed" {
		t.Fatalf("redelivery must not redo the work, got %q", stored.ArticleText)
	}
	if got := len(queue.messages(domain.MediaQueue)); got != 1 {
		t.Fatalf("expected downstream republish, got %d messages", got)
	}
}

func TestHandleStoryExtractionFailureFallsBack(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{
		ID:        "job-an3",
		Title:     "Story",
		SourceURL: "https://example.com/broken",
		SourceMetadata: map[string]any{
			"summary": "feed summary text",
		},
		Status: domain.StatusIngested,
	}
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	stage := newTestAnalysisStage(jobs, &fakeExtractor{err: errors.New("404")}, queue)

	if err := stage.HandleStory(context.Background(), domain.Message{JobID: "job-an3"}); err != nil {
		t.Fatalf("extraction failure must not fail the stage: %v", err)
	}

	stored, _ := jobs.Get(context.Background(), "job-an3")
	if stored.ArticleText != "feed summary text" {
		t.Fatalf("expected feed summary fallback, got %q", stored.ArticleText)
	}
	if stored.Status != domain.StatusAnalysisComplete {
		t.Fatalf("expected analysis_complete, got %s", stored.Status)
	}
}

func TestHandleStoryPublishesToConfiguredQueue(t *testing.T) {
	t.Parallel()

	job := &domain.ContentJob{ID: "job-an4", Title: "Story", Status: domain.StatusIngested}
	queue := newFakeQueue()

	stage := NewAnalysisStage(AnalysisStageDeps{
		Jobs:       newFakeJobStore(job),
		Extractor:  &fakeExtractor{text: "article"},
		Analyzer:   &fakeAnalyzer{analysis: domain.Analysis{Summary: "s", Script: "sc"}},
		Publisher:  queue,
		MediaQueue: "media_custom",
		Logger:     logging.Discard(),
	})

	if err := stage.HandleStory(context.Background(), domain.Message{JobID: "job-an4"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := len(queue.messages("media_custom")); got != 1 {
		t.Fatalf("expected message on the configured queue, got %d", got)
	}
	if got := len(queue.messages(domain.MediaQueue)); got != 0 {
		t.Fatalf("default queue must stay empty, got %d", got)
	}
}

func TestHandleStoryUnknownJobFails(t *testing.T) {
	t.Parallel()

	stage := newTestAnalysisStage(newFakeJobStore(), &fakeExtractor{text: "x"}, newFakeQueue())
	err := stage.HandleStory(context.Background(), domain.Message{JobID: "ghost"})
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found, got %v", err)
	}
}
