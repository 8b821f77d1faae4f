package domain

import "time"

// JobStatus represents the lifecycle status of an analysis job.
// Values include JobStatusQueued, JobStatusRunning, JobStatusSuccess, and JobStatusError.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// Pipeline step names reported through the progress bus. CurrentStep is
// free-form by contract, but the pipeline only ever emits these.
const (
	StepStarting              = "starting"
	StepFetchingProfile       = "fetching_profile"
	StepAnalyzingJob          = "analyzing_job"
	StepCreatingChat          = "creating_chat"
	StepPersistingAnalysis    = "persisting_analysis"
	StepGeneratingCoverLetter = "generating_cover_letter"
	StepGeneratingCV          = "generating_cv"
	StepGeneratingInterviewQA = "generating_interview_qa"
	StepGeneratingPortfolio   = "generating_portfolio"
	StepCompleted             = "completed"
	StepFailed                = "failed"
)

// StepDetailFallbackText marks the second analysis attempt that uses the
// reconstructed text description instead of the primary input.
const StepDetailFallbackText = "fallback_extracted_text"

// JobKey is the logical identity of a job: one user analyzing one posting URL.
type JobKey struct {
	UserID    string `json:"user_id"`
	TargetURL string `json:"target_url"`
}

// JobRecord tracks one admitted job from submission to cleanup.
// At most one record exists per JobKey at any time.
type JobRecord struct {
	Key         JobKey    `json:"key"`
	RequestID   string    `json:"request_id"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"current_step"`
	StepDetail  string    `json:"step_detail,omitempty"`
	Error       string    `json:"error,omitempty"`

	// Display fields copied from the submission so list endpoints do not
	// need to join against anything.
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the record has reached a final status.
func (r *JobRecord) Terminal() bool {
	return r.Status == JobStatusSuccess || r.Status == JobStatusError
}

// ProgressEvent is a fire-and-forget notification published after every
// job state transition. Listeners may attach or detach at any time.
type ProgressEvent struct {
	UserID     string    `json:"user_id"`
	RequestID  string    `json:"request_id"`
	TargetURL  string    `json:"target_url"`
	Status     JobStatus `json:"status"`
	Step       string    `json:"step"`
	StepDetail string    `json:"step_detail,omitempty"`
	Error      string    `json:"error,omitempty"`
	Title      string    `json:"title,omitempty"`
	Company    string    `json:"company,omitempty"`
	At         time.Time `json:"at"`
}
