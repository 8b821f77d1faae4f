package domain

import (
	"errors"
	"strings"
)

// ErrMissingField is returned for admission errors: submissions that lack
// required identity fields are rejected synchronously, no job is created.
var ErrMissingField = errors.New("missing required field")

// JobSubmission is the payload a caller sends when requesting an analysis.
// Everything beyond UserID and TargetURL is optional context captured at the
// source; ExtractedText is the pre-extracted posting body that, when present,
// is preferred over re-fetching the bare URL.
type JobSubmission struct {
	UserID    string `json:"user_id"`
	TargetURL string `json:"target_url"`

	Title           string `json:"title,omitempty"`
	Company         string `json:"company,omitempty"`
	Location        string `json:"location,omitempty"`
	EmploymentType  string `json:"employment_type,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	Description     string `json:"description,omitempty"`
	AboutJob        string `json:"about_job,omitempty"`
	ExtractedText   string `json:"extracted_text,omitempty"`
}

// Key returns the logical job identity for this submission.
func (s *JobSubmission) Key() JobKey {
	return JobKey{UserID: s.UserID, TargetURL: s.TargetURL}
}

// HasExtractedText reports whether a non-empty extracted-text blob was
// supplied. This is the sole trigger for the analysis fallback retry.
func (s *JobSubmission) HasExtractedText() bool {
	return strings.TrimSpace(s.ExtractedText) != ""
}

// Validate checks the required identity fields.
func (s *JobSubmission) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return errors.Join(ErrMissingField, errors.New("user_id is required"))
	}
	if strings.TrimSpace(s.TargetURL) == "" {
		return errors.Join(ErrMissingField, errors.New("target_url is required"))
	}
	return nil
}
