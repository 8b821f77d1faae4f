package pipeline

import (
	"context"

	"github.com/wenqi/jobtailor/internal/domain"
)

// AnalysisInput is the primary input of the analysis call. Text, when
// non-empty, is preferred over the bare URL since raw text avoids fragile
// re-scraping on the provider side.
type AnalysisInput struct {
	UserID    string
	TargetURL string
	Text      string
	Skills    []string
	Profile   *domain.UserProfile
}

// GenerationResult is the outcome of one content-generation call.
type GenerationResult struct {
	Content string
	Model   string
	Usage   domain.UsageMetrics
}

// CVPatchResult is the outcome of the CV-tailoring call, already parsed into
// the strict patch structure at the service boundary.
type CVPatchResult struct {
	Patch domain.CVPatch
	Model string
	Usage domain.UsageMetrics
}

// ProfileFetcher looks up the user's profile. Failure degrades the pipeline
// to an empty profile, it never aborts the job.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// Analyzer runs the external analysis call.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (*domain.AnalysisResult, error)
}

// AnalysisSaver persists the analysis outcome. This is a hard dependency:
// the job has no purpose without a persisted result.
type AnalysisSaver interface {
	SaveAnalysis(ctx context.Context, sub domain.JobSubmission, result *domain.AnalysisResult) (*domain.Application, error)
}

// ThreadCreator creates or returns the chat thread attached to a job.
type ThreadCreator interface {
	CreateOrGetThread(ctx context.Context, userID, targetURL, title, company string) (*domain.ChatThread, error)
}

// Generator runs the content-generation calls. Each method is one metered
// sub-stage with its own failure policy handled by the pipeline.
type Generator interface {
	GenerateCoverLetter(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error)
	GenerateCVPatch(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (CVPatchResult, error)
	GenerateInterviewQA(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error)
	GeneratePortfolio(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error)
}

// PortfolioStore records generated portfolios and answers the at-most-one
// existence check per thread.
type PortfolioStore interface {
	ExistsForThread(ctx context.Context, threadID string) (bool, error)
	SavePortfolio(ctx context.Context, p *domain.Portfolio) error
}

// CreditLedger deducts a pre-computed, non-negative credit amount once per
// metered operation. A false result means insufficient balance; the caller
// logs it and keeps the generated content.
type CreditLedger interface {
	Deduct(ctx context.Context, userID string, amount int64, cost domain.CostInfo) (bool, error)
}

// ArtifactStore writes generated content to object storage and returns the
// storage key.
type ArtifactStore interface {
	Put(ctx context.Context, userID, targetURL, kind string, content []byte) (string, error)
}
