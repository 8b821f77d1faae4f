package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
	"github.com/wenqi/jobtailor/internal/progress"
)

// StepReporter lets the pipeline report stage transitions for the job it is
// executing. The scheduler updates the record and publishes the event.
type StepReporter func(step, detail string)

// Runner executes one job to completion. A nil error means success; any
// error marks the job failed with the error's message.
type Runner interface {
	Run(ctx context.Context, sub domain.JobSubmission, report StepReporter) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, sub domain.JobSubmission, report StepReporter) error

// Run calls the wrapped function.
func (f RunnerFunc) Run(ctx context.Context, sub domain.JobSubmission, report StepReporter) error {
	return f(ctx, sub, report)
}

// SubmitResult is the admission outcome for one submission.
type SubmitResult struct {
	Accepted      bool   `json:"accepted"`
	AlreadyQueued bool   `json:"already_queued"`
	RequestID     string `json:"request_id"`
}

// Options configures a Scheduler.
type Options struct {
	// CleanupDelay is how long terminal records are retained before the
	// timed sweep removes them.
	CleanupDelay time.Duration
	// BaseContext is the context jobs run under. Defaults to Background.
	BaseContext context.Context
}

// Scheduler owns all mutable queue and store state: the record table keyed
// by (userID, targetURL), the FIFO key queue, and the draining flag. It is
// the only writer of that state besides its own timed cleanup, so one mutex
// is the entire locking story.
type Scheduler struct {
	mu       sync.Mutex
	records  map[domain.JobKey]*domain.JobRecord
	payloads map[domain.JobKey]domain.JobSubmission
	queue    []domain.JobKey
	draining bool

	runner       Runner
	pub          progress.Publisher
	log          *logger.Logger
	cleanupDelay time.Duration
	baseCtx      context.Context

	// wg tracks in-flight drain loops so tests can wait for settlement.
	wg sync.WaitGroup
}

// New creates a Scheduler. The publisher is wrapped in a failsafe so
// delivery failures never reach the worker loop.
func New(runner Runner, pub progress.Publisher, log *logger.Logger, opts Options) *Scheduler {
	if log == nil {
		log = logger.GetDefault()
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = time.Minute
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &Scheduler{
		records:      make(map[domain.JobKey]*domain.JobRecord),
		payloads:     make(map[domain.JobKey]domain.JobSubmission),
		runner:       runner,
		pub:          progress.NewFailsafe(pub, log),
		log:          log,
		cleanupDelay: opts.CleanupDelay,
		baseCtx:      opts.BaseContext,
	}
}

// Submit admits a job. Resubmitting an existing key is idempotent: the
// existing requestID comes back with AlreadyQueued set and no state changes.
// Otherwise a queued record is created, the key is appended to the queue, a
// queued event is published, and a drain is kicked off.
func (s *Scheduler) Submit(sub domain.JobSubmission) (SubmitResult, error) {
	if err := sub.Validate(); err != nil {
		return SubmitResult{}, err
	}
	key := sub.Key()

	s.mu.Lock()
	if existing, ok := s.records[key]; ok {
		res := SubmitResult{AlreadyQueued: true, RequestID: existing.RequestID}
		s.mu.Unlock()
		return res, nil
	}

	now := time.Now()
	rec := &domain.JobRecord{
		Key:         key,
		RequestID:   uuid.New().String(),
		Status:      domain.JobStatusQueued,
		CurrentStep: "",
		Title:       sub.Title,
		Company:     sub.Company,
		EnqueuedAt:  now,
		UpdatedAt:   now,
	}
	s.records[key] = rec
	s.payloads[key] = sub
	s.queue = append(s.queue, key)
	ev := eventFor(rec)
	s.mu.Unlock()

	s.pub.Publish(ev)
	s.log.WithFields(logger.Fields{
		logger.FieldRequestID: rec.RequestID,
		logger.FieldUserID:    key.UserID,
		logger.FieldTargetURL: key.TargetURL,
	}).Info("Job queued")

	s.kickDrain()
	return SubmitResult{Accepted: true, RequestID: rec.RequestID}, nil
}

// Get returns a copy of the record for the key, if present.
func (s *Scheduler) Get(key domain.JobKey) (domain.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return domain.JobRecord{}, false
	}
	return *rec, true
}

// ListPending returns the user's records ordered by: running first, then
// queued in queue position order, then everything else; ties broken by
// EnqueuedAt ascending. UIs rely on this ordering being deterministic.
func (s *Scheduler) ListPending(userID string) []domain.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	queuePos := make(map[domain.JobKey]int, len(s.queue))
	for i, key := range s.queue {
		queuePos[key] = i
	}

	var out []domain.JobRecord
	for _, rec := range s.records {
		if rec.Key.UserID == userID {
			out = append(out, *rec)
		}
	}

	rank := func(r *domain.JobRecord) int {
		switch r.Status {
		case domain.JobStatusRunning:
			return 0
		case domain.JobStatusQueued:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(&out[i]), rank(&out[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 1 {
			pi, iok := queuePos[out[i].Key]
			pj, jok := queuePos[out[j].Key]
			if iok && jok && pi != pj {
				return pi < pj
			}
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// scheduleCleanup arms the timed sweep for a terminal record. The conditions
// are re-checked when the timer fires rather than cancelling proactively: if
// the key has been re-admitted under a new requestID, or is somehow no
// longer terminal, the sweep is a no-op.
func (s *Scheduler) scheduleCleanup(key domain.JobKey, requestID string) {
	time.AfterFunc(s.cleanupDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, ok := s.records[key]
		if !ok || rec.RequestID != requestID || !rec.Terminal() {
			return
		}
		delete(s.records, key)
		delete(s.payloads, key)
	})
}

// Wait blocks until all in-flight drain loops have settled. Test helper.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func eventFor(rec *domain.JobRecord) domain.ProgressEvent {
	return domain.ProgressEvent{
		UserID:     rec.Key.UserID,
		RequestID:  rec.RequestID,
		TargetURL:  rec.Key.TargetURL,
		Status:     rec.Status,
		Step:       rec.CurrentStep,
		StepDetail: rec.StepDetail,
		Error:      rec.Error,
		Title:      rec.Title,
		Company:    rec.Company,
		At:         rec.UpdatedAt,
	}
}
