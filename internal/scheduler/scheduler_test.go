package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/progress"
)

func testSubmission(userID, url string) domain.JobSubmission {
	return domain.JobSubmission{
		UserID:    userID,
		TargetURL: url,
		Title:     "Backend Engineer",
		Company:   "Acme",
	}
}

func TestSubmitValidation(t *testing.T) {
	s := New(RunnerFunc(func(context.Context, domain.JobSubmission, StepReporter) error {
		return nil
	}), progress.NewBus(), nil, Options{})

	tests := []struct {
		name string
		sub  domain.JobSubmission
	}{
		{"missing user", domain.JobSubmission{TargetURL: "https://jobs.example/1"}},
		{"missing url", domain.JobSubmission{UserID: "u1"}},
		{"blank user", domain.JobSubmission{UserID: "   ", TargetURL: "https://jobs.example/1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Submit(tt.sub)
			if !errors.Is(err, domain.ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
		})
	}

	s.Wait()
	if got := len(s.records); got != 0 {
		t.Errorf("rejected submissions must not create records, found %d", got)
	}
}

func TestSubmitDedup(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		started <- struct{}{}
		<-release
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	first, err := s.Submit(testSubmission("u1", "https://jobs.example/1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !first.Accepted || first.AlreadyQueued {
		t.Fatalf("first submission should be accepted, got %+v", first)
	}
	<-started

	// Resubmission while running is rejected, not merged.
	second, err := s.Submit(testSubmission("u1", "https://jobs.example/1"))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !second.AlreadyQueued {
		t.Fatal("resubmission should report alreadyQueued")
	}
	if second.RequestID != first.RequestID {
		t.Errorf("resubmission must return the existing requestID: got %q want %q",
			second.RequestID, first.RequestID)
	}

	s.mu.Lock()
	count := len(s.records)
	s.mu.Unlock()
	if count != 1 {
		t.Errorf("expected exactly one record for the key, got %d", count)
	}

	close(release)
	s.Wait()
}

func TestSingleFlight(t *testing.T) {
	var mu sync.Mutex
	var trace []string
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		mu.Lock()
		trace = append(trace, "start:"+sub.TargetURL)
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		trace = append(trace, "end:"+sub.TargetURL)
		mu.Unlock()
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/a")); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/b")); err != nil {
		t.Fatalf("submit b: %v", err)
	}
	s.Wait()

	want := []string{
		"start:https://jobs.example/a",
		"end:https://jobs.example/a",
		"start:https://jobs.example/b",
		"end:https://jobs.example/b",
	}
	if len(trace) != len(want) {
		t.Fatalf("trace length %d, want %d: %v", len(trace), len(want), trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("jobs overlapped: trace %v, want %v", trace, want)
		}
	}
}

func TestListPendingOrdering(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		// Only the first job signals readiness; the rest run after release.
		if sub.TargetURL == "https://jobs.example/b" {
			close(started)
		}
		<-release
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	// Submitted B first so it is running, then A and C queue behind it.
	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/b")); err != nil {
		t.Fatalf("submit b: %v", err)
	}
	<-started
	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/a")); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/c")); err != nil {
		t.Fatalf("submit c: %v", err)
	}

	got := s.ListPending("u1")
	want := []string{
		"https://jobs.example/b",
		"https://jobs.example/a",
		"https://jobs.example/c",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, rec := range got {
		if rec.Key.TargetURL != want[i] {
			t.Errorf("position %d: got %s, want %s", i, rec.Key.TargetURL, want[i])
		}
	}
	if got[0].Status != domain.JobStatusRunning {
		t.Errorf("first record should be running, got %s", got[0].Status)
	}

	// Other users see nothing.
	if other := s.ListPending("u2"); len(other) != 0 {
		t.Errorf("expected no records for u2, got %d", len(other))
	}

	close(release)
	s.Wait()
}

func TestTerminalStatusAndError(t *testing.T) {
	boom := errors.New("analysis failed: upstream 503")
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		if sub.TargetURL == "https://jobs.example/bad" {
			return boom
		}
		report(domain.StepAnalyzingJob, "")
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/good")); err != nil {
		t.Fatalf("submit good: %v", err)
	}
	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/bad")); err != nil {
		t.Fatalf("submit bad: %v", err)
	}
	s.Wait()

	good, ok := s.Get(domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/good"})
	if !ok {
		t.Fatal("good record missing")
	}
	if good.Status != domain.JobStatusSuccess || good.CurrentStep != domain.StepCompleted {
		t.Errorf("good job: status=%s step=%s", good.Status, good.CurrentStep)
	}
	if good.Error != "" {
		t.Errorf("success record must not carry an error, got %q", good.Error)
	}

	bad, ok := s.Get(domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/bad"})
	if !ok {
		t.Fatal("bad record missing")
	}
	if bad.Status != domain.JobStatusError || bad.CurrentStep != domain.StepFailed {
		t.Errorf("bad job: status=%s step=%s", bad.Status, bad.CurrentStep)
	}
	if bad.Error != boom.Error() {
		t.Errorf("error message: got %q want %q", bad.Error, boom.Error())
	}
}

func TestOneFailureDoesNotHaltQueue(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		if sub.TargetURL == "https://jobs.example/1" {
			return errors.New("hard failure")
		}
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	for _, url := range []string{"https://jobs.example/1", "https://jobs.example/2"} {
		if _, err := s.Submit(testSubmission("u1", url)); err != nil {
			t.Fatalf("submit %s: %v", url, err)
		}
	}
	s.Wait()

	rec, ok := s.Get(domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/2"})
	if !ok {
		t.Fatal("second record missing")
	}
	if rec.Status != domain.JobStatusSuccess {
		t.Errorf("second job should succeed after the first failed, got %s", rec.Status)
	}
}

func TestCleanupRemovesTerminalRecords(t *testing.T) {
	runner := RunnerFunc(func(context.Context, domain.JobSubmission, StepReporter) error {
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: 20 * time.Millisecond})

	key := domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/1"}
	if _, err := s.Submit(testSubmission(key.UserID, key.TargetURL)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	if _, ok := s.Get(key); !ok {
		t.Fatal("terminal record should survive until the cleanup delay")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := s.Get(key); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("record was not cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// After cleanup the key is admissible again with a fresh requestID.
	res, err := s.Submit(testSubmission(key.UserID, key.TargetURL))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !res.Accepted || res.AlreadyQueued {
		t.Errorf("resubmission after cleanup should be accepted, got %+v", res)
	}
	s.Wait()
}

func TestCleanupIsNoopForReadmittedKey(t *testing.T) {
	runner := RunnerFunc(func(context.Context, domain.JobSubmission, StepReporter) error {
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	key := domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/1"}
	first, err := s.Submit(testSubmission(key.UserID, key.TargetURL))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	// Simulate the sweep firing after the key was recycled: replace the
	// record, then arm a zero-delay cleanup bound to the old requestID.
	s.mu.Lock()
	s.records[key].RequestID = "replacement"
	s.records[key].Status = domain.JobStatusQueued
	s.mu.Unlock()

	s.cleanupDelay = time.Millisecond
	s.scheduleCleanup(key, first.RequestID)
	time.Sleep(30 * time.Millisecond)

	if _, ok := s.Get(key); !ok {
		t.Fatal("cleanup bound to a stale requestID must not remove the record")
	}
}

func TestDrainSkipsMissingRecords(t *testing.T) {
	var calls int
	var mu sync.Mutex
	runner := RunnerFunc(func(context.Context, domain.JobSubmission, StepReporter) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	s := New(runner, progress.NewBus(), nil, Options{CleanupDelay: time.Hour})

	// A queue entry whose record vanished (race with cleanup) is skipped.
	key := domain.JobKey{UserID: "u1", TargetURL: "https://jobs.example/gone"}
	s.mu.Lock()
	s.queue = append(s.queue, key)
	s.mu.Unlock()

	s.Drain()
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("runner must not run for a missing record, ran %d times", calls)
	}
}

func TestProgressEventsReachSubscribers(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
		report(domain.StepAnalyzingJob, "")
		report(domain.StepAnalyzingJob, domain.StepDetailFallbackText)
		return nil
	})
	bus := progress.NewBus()
	s := New(runner, bus, nil, Options{CleanupDelay: time.Hour})

	ch, cancel := bus.Subscribe("u1", "")
	defer cancel()

	if _, err := s.Submit(testSubmission("u1", "https://jobs.example/1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Wait()

	var steps []string
	var statuses []domain.JobStatus
	timeout := time.After(time.Second)
	for len(statuses) < 5 {
		select {
		case ev := <-ch:
			steps = append(steps, ev.Step)
			statuses = append(statuses, ev.Status)
		case <-timeout:
			t.Fatalf("timed out after %d events: %v", len(statuses), steps)
		}
	}

	if statuses[0] != domain.JobStatusQueued {
		t.Errorf("first event should be queued, got %s", statuses[0])
	}
	if steps[1] != domain.StepStarting {
		t.Errorf("second event should be the starting step, got %s", steps[1])
	}
	last := len(statuses) - 1
	if statuses[last] != domain.JobStatusSuccess || steps[last] != domain.StepCompleted {
		t.Errorf("final event: status=%s step=%s", statuses[last], steps[last])
	}
}
