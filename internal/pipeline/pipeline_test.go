package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/tailor"
)

// fakes implements every pipeline collaborator with recordable behavior.
type fakes struct {
	profile    *domain.UserProfile
	profileErr error

	analyzeFn    func(in AnalysisInput) (*domain.AnalysisResult, error)
	analyzeCalls []AnalysisInput

	saveErr   error
	saveCalls int

	thread    *domain.ChatThread
	threadErr error

	genErr        error
	coverLetters  int
	cvPatches     int
	interviewQAs  int
	portfolioGens int

	portfolioExists    bool
	portfolioExistsErr error
	savedPortfolios    []*domain.Portfolio

	declineCredits bool
	creditErr      error
	deductions     []domain.CostInfo

	artifactErr error
	artifacts   map[string][]byte
}

func newFakes() *fakes {
	return &fakes{
		profile: &domain.UserProfile{
			UserID:  "u1",
			Summary: "Backend engineer.",
			Skills:  []string{"Go", "SQL"},
			Experiences: []domain.Experience{
				{Position: "Engineer", Company: "Acme", Description: "Built services."},
			},
			Prefs: domain.GenerationPrefs{
				CoverLetter: true, TailoredCV: true, InterviewQA: true, Portfolio: true,
			},
		},
		thread:    &domain.ChatThread{ID: "t1", UserID: "u1"},
		artifacts: map[string][]byte{},
	}
}

func (f *fakes) FetchProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakes) Analyze(ctx context.Context, in AnalysisInput) (*domain.AnalysisResult, error) {
	f.analyzeCalls = append(f.analyzeCalls, in)
	if f.analyzeFn != nil {
		return f.analyzeFn(in)
	}
	return &domain.AnalysisResult{
		Title:    "Engineer",
		Company:  "Acme",
		Summary:  "Build backend services in Go.",
		Keywords: []string{"Go", "SQL"},
	}, nil
}

func (f *fakes) SaveAnalysis(ctx context.Context, sub domain.JobSubmission, result *domain.AnalysisResult) (*domain.Application, error) {
	f.saveCalls++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &domain.Application{UserID: sub.UserID, TargetURL: sub.TargetURL, Result: *result}, nil
}

func (f *fakes) CreateOrGetThread(ctx context.Context, userID, targetURL, title, company string) (*domain.ChatThread, error) {
	return f.thread, f.threadErr
}

func (f *fakes) GenerateCoverLetter(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error) {
	f.coverLetters++
	return GenerationResult{Content: "Dear hiring manager,", Model: "m"}, f.genErr
}

func (f *fakes) GenerateCVPatch(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (CVPatchResult, error) {
	f.cvPatches++
	return CVPatchResult{Patch: domain.CVPatch{Summary: "Tailored summary."}, Model: "m"}, f.genErr
}

func (f *fakes) GenerateInterviewQA(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error) {
	f.interviewQAs++
	return GenerationResult{Content: "Q: ... A: ...", Model: "m"}, f.genErr
}

func (f *fakes) GeneratePortfolio(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (GenerationResult, error) {
	f.portfolioGens++
	return GenerationResult{Content: "<html></html>", Model: "m"}, f.genErr
}

func (f *fakes) ExistsForThread(ctx context.Context, threadID string) (bool, error) {
	return f.portfolioExists, f.portfolioExistsErr
}

func (f *fakes) SavePortfolio(ctx context.Context, p *domain.Portfolio) error {
	f.savedPortfolios = append(f.savedPortfolios, p)
	return nil
}

func (f *fakes) Deduct(ctx context.Context, userID string, amount int64, cost domain.CostInfo) (bool, error) {
	f.deductions = append(f.deductions, cost)
	return !f.declineCredits, f.creditErr
}

func (f *fakes) Put(ctx context.Context, userID, targetURL, kind string, content []byte) (string, error) {
	if f.artifactErr != nil {
		return "", f.artifactErr
	}
	f.artifacts[kind] = content
	return "users/" + userID + "/" + kind, nil
}

func newPipeline(f *fakes, cfg Config) *Pipeline {
	return New(f, f, f, f, f, tailor.NewReconciler(nil, nil, nil), f, f, f, cfg, nil)
}

func testConfig() Config {
	return Config{
		PortfolioEnabled: true,
		Costs:            Costs{Analysis: 2, CoverLetter: 1, TailoredCV: 3, InterviewQA: 1, Portfolio: 5},
	}
}

func testSubmission() domain.JobSubmission {
	return domain.JobSubmission{
		UserID:        "u1",
		TargetURL:     "https://jobs.example/1",
		Title:         "Backend Engineer",
		Company:       "Acme",
		ExtractedText: "We are hiring a backend engineer.",
	}
}

type stepRecorder struct {
	steps []string
}

func (r *stepRecorder) report(step, detail string) {
	if detail != "" {
		step += ":" + detail
	}
	r.steps = append(r.steps, step)
}

func TestRunHappyPath(t *testing.T) {
	f := newFakes()
	rec := &stepRecorder{}

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), rec.report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		domain.StepFetchingProfile,
		domain.StepAnalyzingJob,
		domain.StepCreatingChat,
		domain.StepPersistingAnalysis,
		domain.StepGeneratingCoverLetter,
		domain.StepGeneratingCV,
		domain.StepGeneratingInterviewQA,
		domain.StepGeneratingPortfolio,
	}
	if len(rec.steps) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, rec.steps)
	}
	for i := range want {
		if rec.steps[i] != want[i] {
			t.Fatalf("step %d: expected %q, got %q", i, want[i], rec.steps[i])
		}
	}

	for _, kind := range []string{ArtifactCoverLetter, ArtifactTailoredCV, ArtifactInterviewQA, ArtifactPortfolio} {
		if _, ok := f.artifacts[kind]; !ok {
			t.Errorf("artifact %s was not stored", kind)
		}
	}
	if len(f.savedPortfolios) != 1 || f.savedPortfolios[0].ThreadID != "t1" {
		t.Errorf("expected one recorded portfolio for thread t1, got %v", f.savedPortfolios)
	}
	if len(f.deductions) != 5 {
		t.Errorf("expected 5 deductions (analysis + 4 sub-stages), got %d", len(f.deductions))
	}
}

func TestAnalysisFallbackRetry(t *testing.T) {
	primaryErr := errors.New("network error")

	t.Run("retry with reconstructed text on primary failure", func(t *testing.T) {
		f := newFakes()
		f.analyzeFn = func(in AnalysisInput) (*domain.AnalysisResult, error) {
			if len(f.analyzeCalls) == 1 {
				return nil, primaryErr
			}
			return &domain.AnalysisResult{Title: "Engineer"}, nil
		}
		sub := testSubmission()
		sub.AboutJob = "Design and run backend services."
		rec := &stepRecorder{}

		if err := newPipeline(f, testConfig()).Run(context.Background(), sub, rec.report); err != nil {
			t.Fatalf("expected fallback success, got %v", err)
		}
		if len(f.analyzeCalls) != 2 {
			t.Fatalf("expected 2 analysis calls, got %d", len(f.analyzeCalls))
		}
		if f.analyzeCalls[0].Text != sub.ExtractedText {
			t.Errorf("primary call should use the extracted text, got %q", f.analyzeCalls[0].Text)
		}
		if f.analyzeCalls[1].Text != BuildFallbackText(sub) {
			t.Errorf("retry should use the reconstructed text, got %q", f.analyzeCalls[1].Text)
		}
		found := false
		for _, s := range rec.steps {
			if s == domain.StepAnalyzingJob+":"+domain.StepDetailFallbackText {
				found = true
			}
		}
		if !found {
			t.Errorf("fallback attempt should be reported, steps: %v", rec.steps)
		}
	})

	t.Run("no retry without extracted text", func(t *testing.T) {
		f := newFakes()
		f.analyzeFn = func(in AnalysisInput) (*domain.AnalysisResult, error) {
			return nil, primaryErr
		}
		sub := testSubmission()
		sub.ExtractedText = ""

		err := newPipeline(f, testConfig()).Run(context.Background(), sub, (&stepRecorder{}).report)
		if !errors.Is(err, primaryErr) {
			t.Fatalf("expected the primary error, got %v", err)
		}
		if len(f.analyzeCalls) != 1 {
			t.Errorf("expected exactly 1 analysis call, got %d", len(f.analyzeCalls))
		}
	})

	t.Run("both attempts failing surfaces the original error", func(t *testing.T) {
		f := newFakes()
		retryErr := errors.New("rate limited")
		f.analyzeFn = func(in AnalysisInput) (*domain.AnalysisResult, error) {
			if len(f.analyzeCalls) == 1 {
				return nil, primaryErr
			}
			return nil, retryErr
		}

		err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report)
		if !errors.Is(err, primaryErr) {
			t.Fatalf("expected the original error, got %v", err)
		}
		if len(f.analyzeCalls) != 2 {
			t.Errorf("expected exactly 2 analysis calls, got %d", len(f.analyzeCalls))
		}
	})
}

func TestPersistFailureIsFatal(t *testing.T) {
	f := newFakes()
	f.saveErr = errors.New("db unavailable")

	err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report)
	if !errors.Is(err, f.saveErr) {
		t.Fatalf("expected persistence error to propagate, got %v", err)
	}
	if f.coverLetters != 0 {
		t.Error("no content generation should run after a persistence failure")
	}
}

func TestSoftStagesDoNotFailTheJob(t *testing.T) {
	f := newFakes()
	f.thread = nil
	f.threadErr = errors.New("thread service down")
	f.genErr = errors.New("generation down")

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("soft stage failures must not fail the job, got %v", err)
	}
	if f.saveCalls != 1 {
		t.Errorf("persistence should still run, got %d calls", f.saveCalls)
	}
	if len(f.artifacts) != 0 {
		t.Errorf("no artifacts expected when generation fails, got %v", f.artifacts)
	}
}

func TestEmptyProfileSkipsGatedStages(t *testing.T) {
	f := newFakes()
	f.profileErr = errors.New("not found")
	f.profile = nil

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.coverLetters != 0 || f.cvPatches != 0 || f.interviewQAs != 0 || f.portfolioGens != 0 {
		t.Error("an empty profile has no preferences set, so no generation runs")
	}
}

func TestSkillsGateCVAndInterviewQA(t *testing.T) {
	f := newFakes()
	f.profile.Skills = nil

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.coverLetters != 1 {
		t.Errorf("cover letter is not skills-gated, got %d calls", f.coverLetters)
	}
	if f.cvPatches != 0 || f.interviewQAs != 0 {
		t.Errorf("CV and interview Q&A require skills, got %d and %d calls", f.cvPatches, f.interviewQAs)
	}
}

func TestCreditDeclineKeepsContent(t *testing.T) {
	f := newFakes()
	f.declineCredits = true

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("declined deductions must not fail the job, got %v", err)
	}
	if _, ok := f.artifacts[ArtifactCoverLetter]; !ok {
		t.Error("generated content is kept when the deduction is declined")
	}
	if len(f.deductions) != 5 {
		t.Errorf("declined deductions are never retried, expected 5 calls, got %d", len(f.deductions))
	}
}

func TestPortfolioSkippedWhenExists(t *testing.T) {
	f := newFakes()
	f.portfolioExists = true

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.portfolioGens != 0 {
		t.Error("an existing portfolio must skip generation")
	}
}

func TestPortfolioSkippedWithoutThread(t *testing.T) {
	f := newFakes()
	f.thread = nil
	f.threadErr = errors.New("thread service down")

	if err := newPipeline(f, testConfig()).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.portfolioGens != 0 {
		t.Error("portfolio generation needs a thread")
	}
}

func TestPortfolioDisabledByService(t *testing.T) {
	f := newFakes()
	cfg := testConfig()
	cfg.PortfolioEnabled = false

	if err := newPipeline(f, cfg).Run(context.Background(), testSubmission(), (&stepRecorder{}).report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.portfolioGens != 0 {
		t.Error("the service-level switch overrides the user preference")
	}
}

func TestBuildFallbackText(t *testing.T) {
	tests := []struct {
		name string
		sub  domain.JobSubmission
		want string
	}{
		{
			name: "all fields",
			sub: domain.JobSubmission{
				Title:           "Backend Engineer",
				Company:         "Acme",
				Location:        "Berlin",
				EmploymentType:  "Full-time",
				ExperienceLevel: "Senior",
				Description:     "Generic description.",
				AboutJob:        "Own the payments platform.",
			},
			want: "Job Title: Backend Engineer\nCompany: Acme\nLocation: Berlin\nEmployment Type: Full-time\nExperience Level: Senior\n\nOwn the payments platform.",
		},
		{
			name: "empty fields skipped",
			sub:  domain.JobSubmission{Title: "Engineer", Description: "Body."},
			want: "Job Title: Engineer\n\nBody.",
		},
		{
			name: "description used when about-job empty",
			sub:  domain.JobSubmission{Description: "Only the description."},
			want: "Only the description.",
		},
		{
			name: "everything empty",
			sub:  domain.JobSubmission{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFallbackText(tt.sub)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if strings.Contains(got, ": \n") {
				t.Errorf("no empty labels allowed, got %q", got)
			}
		})
	}
}
