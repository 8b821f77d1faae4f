package scheduler

import (
	"time"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
)

// kickDrain starts a drain loop in the background. Admissions racing each
// other may all call this; the draining guard collapses them to one loop.
func (s *Scheduler) kickDrain() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Drain()
	}()
}

// Drain executes queued jobs one at a time until the queue is empty.
// Calling it while a drain is already running is a no-op, which is the
// entire single-flight guarantee: no locking of a shared resource, just a
// boolean guard. The loop only advances after the current job's pipeline
// fully settles, so credit deductions and provider calls from two jobs are
// never interleaved.
func (s *Scheduler) Drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			// Clearing the flag and observing the empty queue happen under
			// one lock acquisition, so a concurrent Submit either enqueued
			// before this check (and we would have seen it) or will start
			// its own drain after the flag is down.
			s.draining = false
			s.mu.Unlock()
			return
		}
		key := s.queue[0]
		s.queue = s.queue[1:]

		rec, ok := s.records[key]
		if !ok || rec.Status != domain.JobStatusQueued {
			// Raced with cleanup or an inconsistent admission; skip.
			s.mu.Unlock()
			continue
		}
		rec.Status = domain.JobStatusRunning
		rec.CurrentStep = domain.StepStarting
		rec.StepDetail = ""
		rec.UpdatedAt = time.Now()
		startEv := eventFor(rec)
		requestID := rec.RequestID
		sub := s.payloads[key]
		s.mu.Unlock()

		s.pub.Publish(startEv)
		jobLog := s.log.WithFields(logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldUserID:    key.UserID,
			logger.FieldTargetURL: key.TargetURL,
		})
		jobLog.Info("Job started")
		started := time.Now()

		err := s.runner.Run(s.baseCtx, sub, s.reporter(key, requestID))

		s.mu.Lock()
		rec, ok = s.records[key]
		if ok && rec.RequestID == requestID {
			rec.UpdatedAt = time.Now()
			if err != nil {
				rec.Status = domain.JobStatusError
				rec.CurrentStep = domain.StepFailed
				rec.Error = err.Error()
			} else {
				rec.Status = domain.JobStatusSuccess
				rec.CurrentStep = domain.StepCompleted
				rec.StepDetail = ""
			}
			doneEv := eventFor(rec)
			s.mu.Unlock()
			s.pub.Publish(doneEv)
		} else {
			s.mu.Unlock()
		}

		entry := logger.With(logger.Fields{
			logger.FieldRequestID:  requestID,
			logger.FieldDurationMs: time.Since(started).Milliseconds(),
		})
		if err != nil {
			entry.WithStatus(string(domain.JobStatusError)).Error(nil, "Job failed: %v", err)
		} else {
			entry.WithStatus(string(domain.JobStatusSuccess)).Info(nil, "Job completed")
		}

		s.scheduleCleanup(key, requestID)
	}
}

// reporter binds a StepReporter to one job execution. Stale reports from a
// superseded requestID are ignored.
func (s *Scheduler) reporter(key domain.JobKey, requestID string) StepReporter {
	return func(step, detail string) {
		s.mu.Lock()
		rec, ok := s.records[key]
		if !ok || rec.RequestID != requestID {
			s.mu.Unlock()
			return
		}
		rec.CurrentStep = step
		rec.StepDetail = detail
		rec.UpdatedAt = time.Now()
		ev := eventFor(rec)
		s.mu.Unlock()
		s.pub.Publish(ev)
	}
}
