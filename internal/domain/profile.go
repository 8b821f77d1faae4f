package domain

import "time"

// Experience is one position in a user's work history.
type Experience struct {
	Position    string `json:"position"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

// Project is a portfolio project attached to a profile.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// GenerationPrefs are the per-user switches gating each content sub-stage.
type GenerationPrefs struct {
	CoverLetter bool `json:"cover_letter"`
	TailoredCV  bool `json:"tailored_cv"`
	InterviewQA bool `json:"interview_qa"`
	Portfolio   bool `json:"portfolio"`
}

// UserProfile is the source-of-truth record the tailoring patch is merged
// onto. Missing profiles degrade quality, not correctness: the pipeline runs
// with an empty profile when lookup fails.
type UserProfile struct {
	UserID      string          `gorm:"type:text;primaryKey" json:"user_id"`
	Summary     string          `gorm:"type:text" json:"summary"`
	Skills      []string        `gorm:"serializer:json" json:"skills"`
	Experiences []Experience    `gorm:"serializer:json" json:"experiences"`
	Projects    []Project       `gorm:"serializer:json" json:"projects"`
	Prefs       GenerationPrefs `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// HasSkills reports whether the profile carries at least one skill.
// CV tailoring and interview Q&A are skipped without skills.
func (p *UserProfile) HasSkills() bool {
	return p != nil && len(p.Skills) > 0
}

// EmptyProfile returns the degraded profile used when lookup fails.
func EmptyProfile(userID string) *UserProfile {
	return &UserProfile{UserID: userID}
}
