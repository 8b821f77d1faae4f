package domain

import "time"

// AnalysisResult is the structured outcome of the primary analysis call.
type AnalysisResult struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	EmploymentType   string   `json:"employment_type"`
	ExperienceLevel  string   `json:"experience_level"`
	Summary          string   `json:"summary"`
	Responsibilities []string `json:"responsibilities"`
	Requirements     []string `json:"requirements"`
	Keywords         []string `json:"keywords"`
	MatchedSkills    []string `json:"matched_skills"`
	MissingSkills    []string `json:"missing_skills"`
}

// TargetText returns the free text of the posting used for similarity
// scoring: summary plus requirements and responsibilities.
func (a *AnalysisResult) TargetText() string {
	text := a.Summary
	for _, r := range a.Responsibilities {
		text += " " + r
	}
	for _, r := range a.Requirements {
		text += " " + r
	}
	return text
}

// Application is the persisted analysis outcome. Persistence is the one
// stage whose failure fails the whole job.
type Application struct {
	ID        string         `gorm:"type:text;primaryKey" json:"id"`
	UserID    string         `gorm:"type:text;not null;uniqueIndex:idx_applications_user_url" json:"user_id"`
	TargetURL string         `gorm:"type:text;not null;uniqueIndex:idx_applications_user_url" json:"target_url"`
	RequestID string         `gorm:"type:text;index" json:"request_id"`
	Title     string         `json:"title"`
	Company   string         `json:"company"`
	Result    AnalysisResult `gorm:"serializer:json" json:"result"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Application.
func (Application) TableName() string {
	return "applications"
}

// ChatThread is the conversational record attached to a job. Creation is
// best-effort; persistence proceeds without it.
type ChatThread struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;uniqueIndex:idx_threads_user_url" json:"user_id"`
	TargetURL string    `gorm:"type:text;not null;uniqueIndex:idx_threads_user_url" json:"target_url"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ChatThread.
func (ChatThread) TableName() string {
	return "chat_threads"
}

// Portfolio is a generated portfolio page tied to a chat thread. At most one
// portfolio is generated per thread.
type Portfolio struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	ThreadID   string    `gorm:"type:text;not null;index" json:"thread_id"`
	UserID     string    `gorm:"type:text;not null;index" json:"user_id"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Portfolio.
func (Portfolio) TableName() string {
	return "portfolios"
}

// CreditAccount holds a user's metered balance. Deductions happen strictly
// sequentially within the single-flight worker, so no optimistic-concurrency
// guard is carried beyond the repository transaction.
type CreditAccount struct {
	UserID    string    `gorm:"type:text;primaryKey" json:"user_id"`
	Balance   int64     `gorm:"default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for CreditAccount.
func (CreditAccount) TableName() string {
	return "credit_accounts"
}

// CreditEntry is one ledger line per metered operation, recorded whether or
// not the deduction was accepted.
type CreditEntry struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index" json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Accepted  bool      `json:"accepted"`
	Model     string    `json:"model,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for CreditEntry.
func (CreditEntry) TableName() string {
	return "credit_entries"
}

// UsageMetrics reports token usage of one generation call.
type UsageMetrics struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TotalTokens returns the combined token count.
func (u UsageMetrics) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// CostInfo carries the context of a deduction for the ledger.
type CostInfo struct {
	Model  string       `json:"model,omitempty"`
	Usage  UsageMetrics `json:"usage"`
	Reason string       `json:"reason,omitempty"`
}
