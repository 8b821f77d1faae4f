package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/progress"
	"github.com/wenqi/jobtailor/internal/scheduler"
)

// JobHandler serves job submission, status, listing, and the progress
// event stream.
type JobHandler struct {
	sched *scheduler.Scheduler
	bus   *progress.Bus
}

// NewJobHandler creates a new job handler.
func NewJobHandler(sched *scheduler.Scheduler, bus *progress.Bus) *JobHandler {
	return &JobHandler{sched: sched, bus: bus}
}

// Submit admits a job for analysis.
// POST /api/v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	var sub domain.JobSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	res, err := h.sched.Submit(sub)
	if err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if res.AlreadyQueued {
		c.JSON(http.StatusConflict, gin.H{
			"already_queued": true,
			"request_id":     res.RequestID,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"request_id": res.RequestID,
		"status":     domain.JobStatusQueued,
	})
}

// Status returns the job record for one (user, posting URL).
// GET /api/v1/jobs/status?user_id=...&target_url=...
func (h *JobHandler) Status(c *gin.Context) {
	userID := c.Query("user_id")
	targetURL := c.Query("target_url")
	if userID == "" || targetURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and target_url are required"})
		return
	}

	rec, ok := h.sched.Get(domain.JobKey{UserID: userID, TargetURL: targetURL})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no job for this key"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Pending lists a user's jobs: running first, then queued in queue order,
// then terminal records awaiting cleanup.
// GET /api/v1/jobs/pending?user_id=...
func (h *JobHandler) Pending(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	jobs := h.sched.ListPending(userID)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Events streams progress events over SSE. With a request_id the stream
// follows one job and closes on its terminal event; without one it follows
// all of the user's jobs until the client disconnects.
// GET /api/v1/jobs/events?user_id=...&request_id=...
func (h *JobHandler) Events(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	requestID := c.Query("request_id")

	ch, cancel := h.bus.Subscribe(userID, requestID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("progress", ev)
			if requestID != "" && ev.RequestID == requestID {
				if ev.Status == domain.JobStatusSuccess || ev.Status == domain.JobStatusError {
					return false
				}
			}
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
