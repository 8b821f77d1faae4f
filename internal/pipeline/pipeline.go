package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
	"github.com/wenqi/jobtailor/internal/tailor"
)

// Deduction reasons recorded in the credit ledger.
const (
	ReasonAnalysis    = "job_analysis"
	ReasonCoverLetter = "cover_letter"
	ReasonTailoredCV  = "tailored_cv"
	ReasonInterviewQA = "interview_qa"
	ReasonPortfolio   = "portfolio"
)

// Artifact kinds written to object storage.
const (
	ArtifactCoverLetter = "cover_letter.md"
	ArtifactTailoredCV  = "tailored_cv.json"
	ArtifactInterviewQA = "interview_qa.md"
	ArtifactPortfolio   = "portfolio.html"
)

// Costs are the pre-computed credit amounts per metered operation.
type Costs struct {
	Analysis    int64
	CoverLetter int64
	TailoredCV  int64
	InterviewQA int64
	Portfolio   int64
}

// Config holds the pipeline's behavioral knobs.
type Config struct {
	// PortfolioEnabled is the service-level switch; the per-user preference
	// gates on top of it.
	PortfolioEnabled bool
	// PortfolioDelay is the fixed pause before the portfolio call, a
	// self-imposed rate-limit guard on the slowest provider.
	PortfolioDelay time.Duration
	Costs          Costs
}

// Pipeline is the per-job state machine. Stages run in a fixed order; only
// the analysis stage (after its one fallback retry) and persistence fail the
// whole job, every other stage logs its failure and moves on.
type Pipeline struct {
	profiles   ProfileFetcher
	analyzer   Analyzer
	saver      AnalysisSaver
	threads    ThreadCreator
	generator  Generator
	reconciler *tailor.Reconciler
	portfolios PortfolioStore
	credits    CreditLedger
	artifacts  ArtifactStore
	cfg        Config
	log        *logger.Logger
}

// New creates a Pipeline. The reconciler, portfolio store, credit ledger and
// artifact store may be nil; the corresponding side effects are skipped.
func New(
	profiles ProfileFetcher,
	analyzer Analyzer,
	saver AnalysisSaver,
	threads ThreadCreator,
	generator Generator,
	reconciler *tailor.Reconciler,
	portfolios PortfolioStore,
	credits CreditLedger,
	artifacts ArtifactStore,
	cfg Config,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Pipeline{
		profiles:   profiles,
		analyzer:   analyzer,
		saver:      saver,
		threads:    threads,
		generator:  generator,
		reconciler: reconciler,
		portfolios: portfolios,
		credits:    credits,
		artifacts:  artifacts,
		cfg:        cfg,
		log:        log,
	}
}

// Run executes every stage for one submission. The report callback receives
// each stage transition before the stage starts.
func (p *Pipeline) Run(ctx context.Context, sub domain.JobSubmission, report func(step, detail string)) error {
	log := p.log.WithFields(logger.Fields{
		logger.FieldUserID:    sub.UserID,
		logger.FieldTargetURL: sub.TargetURL,
	})

	report(domain.StepFetchingProfile, "")
	profile := p.fetchProfile(ctx, sub.UserID, log)

	report(domain.StepAnalyzingJob, "")
	analysis, err := p.analyze(ctx, sub, profile, report, log)
	if err != nil {
		return fmt.Errorf("analyzing job: %w", err)
	}
	p.deduct(ctx, sub.UserID, p.cfg.Costs.Analysis, domain.CostInfo{Reason: ReasonAnalysis}, log)

	report(domain.StepCreatingChat, "")
	thread := p.createThread(ctx, sub, analysis, log)

	report(domain.StepPersistingAnalysis, "")
	if _, err := p.saver.SaveAnalysis(ctx, sub, analysis); err != nil {
		return fmt.Errorf("persisting analysis: %w", err)
	}

	p.generateContent(ctx, sub, profile, analysis, thread, report, log)
	return nil
}

// fetchProfile is best-effort: lookup failure degrades to an empty profile.
func (p *Pipeline) fetchProfile(ctx context.Context, userID string, log *logger.Logger) *domain.UserProfile {
	profile, err := p.profiles.FetchProfile(ctx, userID)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepFetchingProfile).
			Warn("Profile lookup failed, continuing with empty profile")
		return domain.EmptyProfile(userID)
	}
	if profile == nil {
		return domain.EmptyProfile(userID)
	}
	return profile
}

// analyze makes the primary analysis call and, when it fails and an
// extracted-text blob was supplied, exactly one retry with the reconstructed
// text description. A retry failure surfaces the original error.
func (p *Pipeline) analyze(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, report func(step, detail string), log *logger.Logger) (*domain.AnalysisResult, error) {
	in := AnalysisInput{
		UserID:    sub.UserID,
		TargetURL: sub.TargetURL,
		Text:      sub.ExtractedText,
		Skills:    profile.Skills,
		Profile:   profile,
	}
	result, primaryErr := p.analyzer.Analyze(ctx, in)
	if primaryErr == nil {
		return result, nil
	}
	if !sub.HasExtractedText() {
		return nil, primaryErr
	}

	log.WithError(primaryErr).Warn("Primary analysis failed, retrying with reconstructed text")
	report(domain.StepAnalyzingJob, domain.StepDetailFallbackText)
	in.Text = BuildFallbackText(sub)
	result, retryErr := p.analyzer.Analyze(ctx, in)
	if retryErr != nil {
		log.WithError(retryErr).Error("Fallback analysis failed")
		return nil, primaryErr
	}
	return result, nil
}

// createThread is best-effort: record-keeping must never block persistence.
func (p *Pipeline) createThread(ctx context.Context, sub domain.JobSubmission, analysis *domain.AnalysisResult, log *logger.Logger) *domain.ChatThread {
	if p.threads == nil {
		return nil
	}
	title, company := analysis.Title, analysis.Company
	if title == "" {
		title = sub.Title
	}
	if company == "" {
		company = sub.Company
	}
	thread, err := p.threads.CreateOrGetThread(ctx, sub.UserID, sub.TargetURL, title, company)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepCreatingChat).
			Warn("Thread creation failed, continuing without thread")
		return nil
	}
	return thread
}

// generateContent runs the preference-gated sub-stages sequentially. Each is
// soft-failure and meters its own credit deduction; one sub-stage failing
// never aborts the others.
func (p *Pipeline) generateContent(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, analysis *domain.AnalysisResult, thread *domain.ChatThread, report func(step, detail string), log *logger.Logger) {
	if profile.Prefs.CoverLetter {
		report(domain.StepGeneratingCoverLetter, "")
		p.generateCoverLetter(ctx, sub, profile, analysis, log)
	}
	if profile.Prefs.TailoredCV && profile.HasSkills() {
		report(domain.StepGeneratingCV, "")
		p.generateTailoredCV(ctx, sub, profile, analysis, log)
	}
	if profile.Prefs.InterviewQA && profile.HasSkills() {
		report(domain.StepGeneratingInterviewQA, "")
		p.generateInterviewQA(ctx, sub, profile, analysis, log)
	}
	if p.cfg.PortfolioEnabled && profile.Prefs.Portfolio && thread != nil {
		report(domain.StepGeneratingPortfolio, "")
		p.generatePortfolio(ctx, sub, profile, analysis, thread, log)
	}
}

func (p *Pipeline) generateCoverLetter(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, analysis *domain.AnalysisResult, log *logger.Logger) {
	res, err := p.generator.GenerateCoverLetter(ctx, profile, analysis)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepGeneratingCoverLetter).
			Warn("Cover letter generation failed")
		return
	}
	p.deduct(ctx, sub.UserID, p.cfg.Costs.CoverLetter, domain.CostInfo{
		Model: res.Model, Usage: res.Usage, Reason: ReasonCoverLetter,
	}, log)
	p.store(ctx, sub, ArtifactCoverLetter, []byte(res.Content), log)
}

func (p *Pipeline) generateTailoredCV(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, analysis *domain.AnalysisResult, log *logger.Logger) {
	res, err := p.generator.GenerateCVPatch(ctx, profile, analysis)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepGeneratingCV).
			Warn("CV tailoring generation failed")
		return
	}
	p.deduct(ctx, sub.UserID, p.cfg.Costs.TailoredCV, domain.CostInfo{
		Model: res.Model, Usage: res.Usage, Reason: ReasonTailoredCV,
	}, log)

	if p.reconciler == nil {
		return
	}
	reconciled := p.reconciler.Reconcile(ctx, profile, analysis, res.Patch)
	payload, err := json.Marshal(reconciled)
	if err != nil {
		log.WithError(err).Warn("Encoding tailored CV failed")
		return
	}
	p.store(ctx, sub, ArtifactTailoredCV, payload, log)
}

func (p *Pipeline) generateInterviewQA(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, analysis *domain.AnalysisResult, log *logger.Logger) {
	res, err := p.generator.GenerateInterviewQA(ctx, profile, analysis)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepGeneratingInterviewQA).
			Warn("Interview Q&A generation failed")
		return
	}
	p.deduct(ctx, sub.UserID, p.cfg.Costs.InterviewQA, domain.CostInfo{
		Model: res.Model, Usage: res.Usage, Reason: ReasonInterviewQA,
	}, log)
	p.store(ctx, sub, ArtifactInterviewQA, []byte(res.Content), log)
}

// generatePortfolio runs last. On top of the service switch and the user
// preference it is skipped when the thread already has a portfolio, and it
// waits a fixed delay before the external call.
func (p *Pipeline) generatePortfolio(ctx context.Context, sub domain.JobSubmission, profile *domain.UserProfile, analysis *domain.AnalysisResult, thread *domain.ChatThread, log *logger.Logger) {
	if p.portfolios != nil {
		exists, err := p.portfolios.ExistsForThread(ctx, thread.ID)
		if err != nil {
			log.WithError(err).Warn("Portfolio existence check failed, skipping portfolio")
			return
		}
		if exists {
			log.WithField("thread_id", thread.ID).Info("Portfolio already exists, skipping")
			return
		}
	}

	if p.cfg.PortfolioDelay > 0 {
		select {
		case <-time.After(p.cfg.PortfolioDelay):
		case <-ctx.Done():
			return
		}
	}

	res, err := p.generator.GeneratePortfolio(ctx, profile, analysis)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, domain.StepGeneratingPortfolio).
			Warn("Portfolio generation failed")
		return
	}
	p.deduct(ctx, sub.UserID, p.cfg.Costs.Portfolio, domain.CostInfo{
		Model: res.Model, Usage: res.Usage, Reason: ReasonPortfolio,
	}, log)

	key := p.store(ctx, sub, ArtifactPortfolio, []byte(res.Content), log)
	if p.portfolios == nil {
		return
	}
	if err := p.portfolios.SavePortfolio(ctx, &domain.Portfolio{
		ThreadID:   thread.ID,
		UserID:     sub.UserID,
		StorageKey: key,
	}); err != nil {
		log.WithError(err).Warn("Recording portfolio failed")
	}
}

// deduct meters one operation. A false result or an error is logged and
// never retried; generated content is kept either way.
func (p *Pipeline) deduct(ctx context.Context, userID string, amount int64, cost domain.CostInfo, log *logger.Logger) {
	if p.credits == nil || amount <= 0 {
		return
	}
	ok, err := p.credits.Deduct(ctx, userID, amount, cost)
	if err != nil {
		log.WithError(err).WithField("reason", cost.Reason).Warn("Credit deduction errored")
		return
	}
	if !ok {
		log.WithFields(logger.Fields{
			"reason": cost.Reason,
			"amount": amount,
		}).Warn("Credit deduction declined, keeping generated content")
	}
}

// store writes one artifact to object storage, returning its key. Storage
// failure is soft.
func (p *Pipeline) store(ctx context.Context, sub domain.JobSubmission, kind string, content []byte, log *logger.Logger) string {
	if p.artifacts == nil {
		return ""
	}
	key, err := p.artifacts.Put(ctx, sub.UserID, sub.TargetURL, kind, content)
	if err != nil {
		log.WithError(err).WithField("artifact", kind).Warn("Artifact upload failed")
		return ""
	}
	log.WithFields(logger.Fields{
		"artifact":       kind,
		"key":            key,
		logger.FieldSize: len(content),
	}).Debug("Artifact stored")
	return key
}
