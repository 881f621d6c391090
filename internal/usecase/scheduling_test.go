package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"relayforge/internal/domain"
	"relayforge/internal/logging"
)

func newTestScheduler(jobs *fakeJobStore, queue *fakeQueue) (*PostingScheduler, *fakeScheduleStore) {
	store := newFakeScheduleStore()
	s := NewPostingScheduler(PostingSchedulerDeps{
		Store:     store,
		Jobs:      jobs,
		Publisher: queue,
		BatchSize: 10,
		Logger:    logging.Discard(),
	})
	return s, store
}

func TestScheduleUpsertsAndMarksJob(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s1", "youtube")
	jobs := newFakeJobStore(job)
	s, store := newTestScheduler(jobs, newFakeQueue())

	when := time.Now().Add(time.Hour)
	if err := s.Schedule(context.Background(), "job-s1", []string{"youtube"}, when); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	post, _ := store.Get(context.Background(), "job-s1")
	if post == nil || !post.ScheduledTime.Equal(when) {
		t.Fatalf("unexpected stored post: %+v", post)
	}
	if jobs.statusOf("job-s1") != domain.StatusScheduled {
		t.Fatalf("expected job scheduled, got %s", jobs.statusOf("job-s1"))
	}
}

func TestPollDispatchesDuePosts(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s2", "youtube")
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	s, store := newTestScheduler(jobs, queue)

	past := time.Now().Add(-time.Minute)
	if err := s.Schedule(context.Background(), "job-s2", []string{"youtube"}, past); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	s.Poll(context.Background(), time.Now())

	msgs := queue.messages(domain.DistributionQueue)
	if len(msgs) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(msgs))
	}
	if !msgs[0].Scheduled {
		t.Fatalf("dispatched message must carry the scheduled flag")
	}
	post, _ := store.Get(context.Background(), "job-s2")
	if post.Status != domain.ScheduleStatusSentToQueue {
		t.Fatalf("expected sent_to_queue, got %s", post.Status)
	}

	// A second poll must not dispatch again.
	s.Poll(context.Background(), time.Now())
	if got := len(queue.messages(domain.DistributionQueue)); got != 1 {
		t.Fatalf("expected no re-dispatch, got %d messages", got)
	}
}

func TestPollDispatchesToConfiguredQueue(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s6", "youtube")
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	s := NewPostingScheduler(PostingSchedulerDeps{
		Store:             newFakeScheduleStore(),
		Jobs:              jobs,
		Publisher:         queue,
		DistributionQueue: "distribution_custom",
		Logger:            logging.Discard(),
	})

	if err := s.Schedule(context.Background(), "job-s6", []string{"youtube"}, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	s.Poll(context.Background(), time.Now())

	if got := len(queue.messages("distribution_custom")); got != 1 {
		t.Fatalf("expected dispatch on the configured queue, got %d", got)
	}
	if got := len(queue.messages(domain.DistributionQueue)); got != 0 {
		t.Fatalf("default queue must stay empty, got %d", got)
	}
}

func TestPollDispatchFailureParksPost(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s3", "youtube")
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	s, store := newTestScheduler(jobs, queue)

	if err := s.Schedule(context.Background(), "job-s3", []string{"youtube"}, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	queue.failNext = errors.New("broker unavailable")
	s.Poll(context.Background(), time.Now())

	post, _ := store.Get(context.Background(), "job-s3")
	if post.Status != domain.ScheduleStatusFailed {
		t.Fatalf("expected failed, got %s", post.Status)
	}
	if post.ErrorMessage == "" {
		t.Fatalf("expected recorded error message")
	}
}

func TestCancelOnlyFromScheduled(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s4", "youtube")
	jobs := newFakeJobStore(job)
	s, store := newTestScheduler(jobs, newFakeQueue())

	if err := s.Cancel(context.Background(), "missing"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected not-found for missing post, got %v", err)
	}

	if err := s.Schedule(context.Background(), "job-s4", []string{"youtube"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.Cancel(context.Background(), "job-s4"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	post, _ := store.Get(context.Background(), "job-s4")
	if post.Status != domain.ScheduleStatusCancelled {
		t.Fatalf("expected cancelled, got %s", post.Status)
	}

	if err := s.Cancel(context.Background(), "job-s4"); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("cancel of a cancelled post must be not-found, got %v", err)
	}
}

func TestRescheduleStateRules(t *testing.T) {
	t.Parallel()

	job := mediaCompleteJob("job-s5", "youtube")
	jobs := newFakeJobStore(job)
	queue := newFakeQueue()
	s, store := newTestScheduler(jobs, queue)

	if err := s.Schedule(context.Background(), "job-s5", []string{"youtube"}, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	queue.failNext = errors.New("broker unavailable")
	s.Poll(context.Background(), time.Now())

	newTime := time.Now().Add(time.Hour)
	if err := s.Reschedule(context.Background(), "job-s5", newTime); err != nil {
		t.Fatalf("reschedule of failed post: %v", err)
	}
	post, _ := store.Get(context.Background(), "job-s5")
	if post.Status != domain.ScheduleStatusScheduled || !post.ScheduledTime.Equal(newTime) {
		t.Fatalf("unexpected post after reschedule: %+v", post)
	}
	if post.ErrorMessage != "" {
		t.Fatalf("reschedule must clear the error message")
	}

	if err := s.Cancel(context.Background(), "job-s5"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.Reschedule(context.Background(), "job-s5", newTime); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("reschedule of cancelled post must be not-found, got %v", err)
	}
}
