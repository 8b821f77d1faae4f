package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/wenqi/jobtailor/internal/config"
	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
	"github.com/wenqi/jobtailor/internal/pipeline"
	"github.com/wenqi/jobtailor/internal/prompts"
)

const (
	coverLetterMaxTokens = 1200
	cvPatchMaxTokens     = 2000
	interviewQAMaxTokens = 3000
	portfolioMaxTokens   = 4000
	rephraseMaxTokens    = 1500
)

// GeneratorService runs the content-generation calls. One service instance
// covers all four sub-stages plus the targeted experience rephrase; they
// share the provider and its generation timeout.
type GeneratorService struct {
	client   *resty.Client
	model    string
	endpoint string
	log      *logger.Logger
}

// NewGeneratorService creates a new generator service.
func NewGeneratorService(cfg *config.ProviderConfig, log *logger.Logger) *GeneratorService {
	if log == nil {
		log = logger.GetDefault()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &GeneratorService{
		client:   newChatClient(cfg.APIKey, cfg.Timeout()),
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		log:      log,
	}
}

// GetModel returns the model name being used.
func (s *GeneratorService) GetModel() string {
	return s.model
}

// GenerateCoverLetter produces a cover letter in markdown.
func (s *GeneratorService) GenerateCoverLetter(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (pipeline.GenerationResult, error) {
	return s.generate(ctx, prompts.CoverLetterSystemPrompt, profile, analysis, coverLetterMaxTokens)
}

// GenerateInterviewQA produces interview questions with suggested answers.
func (s *GeneratorService) GenerateInterviewQA(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (pipeline.GenerationResult, error) {
	return s.generate(ctx, prompts.InterviewQASystemPrompt, profile, analysis, interviewQAMaxTokens)
}

// GeneratePortfolio produces a self-contained portfolio HTML page.
func (s *GeneratorService) GeneratePortfolio(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (pipeline.GenerationResult, error) {
	return s.generate(ctx, prompts.PortfolioSystemPrompt, profile, analysis, portfolioMaxTokens)
}

func (s *GeneratorService) generate(ctx context.Context, system string, profile *domain.UserProfile, analysis *domain.AnalysisResult, maxTokens int) (pipeline.GenerationResult, error) {
	user, err := generationUserMessage(profile, analysis)
	if err != nil {
		return pipeline.GenerationResult{}, err
	}
	content, usage, err := chatCompletion(ctx, s.client, s.endpoint, s.model, system, user, maxTokens)
	if err != nil {
		return pipeline.GenerationResult{}, err
	}
	return pipeline.GenerationResult{
		Content: content,
		Model:   s.model,
		Usage:   usage,
	}, nil
}

// GenerateCVPatch produces the tailoring patch. A transport or API failure
// is an error; a malformed patch body is not. Reconciliation treats the zero
// patch as "change nothing" and falls back to the original profile.
func (s *GeneratorService) GenerateCVPatch(ctx context.Context, profile *domain.UserProfile, analysis *domain.AnalysisResult) (pipeline.CVPatchResult, error) {
	user, err := generationUserMessage(profile, analysis)
	if err != nil {
		return pipeline.CVPatchResult{}, err
	}
	content, usage, err := chatCompletion(ctx, s.client, s.endpoint, s.model, prompts.CVTailoringSystemPrompt, user, cvPatchMaxTokens)
	if err != nil {
		return pipeline.CVPatchResult{}, err
	}

	patch, ok := parseCVPatch(content)
	if !ok {
		s.log.WithField(logger.FieldSize, len(content)).
			Warn("CV patch response is not valid JSON, treating as empty patch")
	}
	return pipeline.CVPatchResult{
		Patch: patch,
		Model: s.model,
		Usage: usage,
	}, nil
}

// RephraseExperiences is the targeted retry for experience indices the patch
// left uncovered. Output entries outside the requested indices are dropped
// by the reconciler.
func (s *GeneratorService) RephraseExperiences(ctx context.Context, experiences []domain.Experience, indices []int) ([]domain.ExperiencePatch, error) {
	expJSON, err := json.MarshalIndent(experiences, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode experiences: %w", err)
	}
	idxParts := make([]string, len(indices))
	for i, idx := range indices {
		idxParts[i] = strconv.Itoa(idx)
	}
	user := fmt.Sprintf(prompts.RephraseUserPrompt, expJSON, strings.Join(idxParts, ", "))

	content, _, err := chatCompletion(ctx, s.client, s.endpoint, s.model, prompts.RephraseSystemPrompt, user, rephraseMaxTokens)
	if err != nil {
		return nil, err
	}

	raw := extractJSON(content)
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("rephrase response is not valid JSON")
	}
	return experiencePatches(gjson.Parse(raw).Get("experiences")), nil
}

func generationUserMessage(profile *domain.UserProfile, analysis *domain.AnalysisResult) (string, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return fmt.Sprintf(prompts.GenerationUserPrompt, profileJSON, analysisJSON), nil
}

// parseCVPatch extracts the strict patch structure from the model output.
// The second return value is false when the body was not usable JSON; the
// zero patch is returned either way.
func parseCVPatch(content string) (domain.CVPatch, bool) {
	raw := extractJSON(content)
	if raw == "" || !gjson.Valid(raw) {
		return domain.CVPatch{}, false
	}

	doc := gjson.Parse(raw)
	patch := domain.CVPatch{
		Summary:     doc.Get("summary").String(),
		Skills:      stringSlice(doc.Get("skills")),
		Highlights:  stringSlice(doc.Get("highlights")),
		Experiences: experiencePatches(doc.Get("experiences")),
	}
	if focus := doc.Get("focus_summary"); focus.Exists() && focus.Type == gjson.String {
		v := focus.String()
		patch.FocusSummary = &v
	}
	return patch, true
}

func experiencePatches(v gjson.Result) []domain.ExperiencePatch {
	if !v.IsArray() {
		return nil
	}
	var out []domain.ExperiencePatch
	for _, item := range v.Array() {
		idx := item.Get("index")
		desc := item.Get("description").String()
		if !idx.Exists() {
			continue
		}
		out = append(out, domain.ExperiencePatch{
			Index:       int(idx.Int()),
			Description: desc,
		})
	}
	return out
}
