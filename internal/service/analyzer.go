package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/wenqi/jobtailor/internal/config"
	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/pipeline"
	"github.com/wenqi/jobtailor/internal/prompts"
)

const analysisMaxTokens = 1500

// AnalyzerService runs the job analysis call against an OpenAI-compatible
// provider. It carries its own, shorter timeout than the generator.
type AnalyzerService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewAnalyzerService creates a new analyzer service.
func NewAnalyzerService(cfg *config.ProviderConfig) *AnalyzerService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &AnalyzerService{
		client:   newChatClient(cfg.APIKey, cfg.Timeout()),
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// GetModel returns the model name being used.
func (s *AnalyzerService) GetModel() string {
	return s.model
}

// Analyze runs the analysis call. The extracted text is preferred over the
// bare URL when present.
func (s *AnalyzerService) Analyze(ctx context.Context, in pipeline.AnalysisInput) (*domain.AnalysisResult, error) {
	posting := strings.TrimSpace(in.Text)
	if posting == "" {
		posting = in.TargetURL
	}
	skills := "none provided"
	if len(in.Skills) > 0 {
		skills = strings.Join(in.Skills, ", ")
	}
	user := fmt.Sprintf(prompts.AnalysisUserPrompt, skills, posting)

	content, _, err := chatCompletion(ctx, s.client, s.endpoint, s.model, prompts.AnalysisSystemPrompt, user, analysisMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(content)
}

// parseAnalysis extracts the structured analysis from the model output.
// Unlike the CV patch, a malformed analysis is an error: the job cannot
// proceed without one.
func parseAnalysis(content string) (*domain.AnalysisResult, error) {
	raw := extractJSON(content)
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("analysis response is not valid JSON")
	}

	doc := gjson.Parse(raw)
	result := &domain.AnalysisResult{
		Title:            doc.Get("title").String(),
		Company:          doc.Get("company").String(),
		Location:         doc.Get("location").String(),
		EmploymentType:   doc.Get("employment_type").String(),
		ExperienceLevel:  doc.Get("experience_level").String(),
		Summary:          doc.Get("summary").String(),
		Responsibilities: stringSlice(doc.Get("responsibilities")),
		Requirements:     stringSlice(doc.Get("requirements")),
		Keywords:         stringSlice(doc.Get("keywords")),
		MatchedSkills:    stringSlice(doc.Get("matched_skills")),
		MissingSkills:    stringSlice(doc.Get("missing_skills")),
	}

	if result.Title == "" && result.Summary == "" && len(result.Requirements) == 0 {
		return nil, fmt.Errorf("analysis response carries no usable fields")
	}
	return result, nil
}

func stringSlice(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
