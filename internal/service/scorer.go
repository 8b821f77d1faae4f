package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/wenqi/jobtailor/internal/config"
)

// ScoringService computes the semantic match sub-scores via an embedding
// API plus in-process cosine similarity. Any transport or API failure
// surfaces as an error so the caller's deterministic fallback applies.
type ScoringService struct {
	client     *resty.Client
	model      string
	endpoint   string
	dimensions int
}

// NewScoringService creates a new embedding-backed scoring service.
func NewScoringService(cfg *config.EmbeddingConfig) *ScoringService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1"
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(cfg.Timeout())

	return &ScoringService{
		client:     client,
		model:      cfg.Model,
		endpoint:   baseURL + "/embeddings",
		dimensions: cfg.Dimensions,
	}
}

// GetModel returns the model name being used.
func (s *ScoringService) GetModel() string {
	return s.model
}

// Embedding API request/response structures (Jina-compatible).
type embeddingRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// ScoreSkills rates how well the candidate skills cover the target terms.
func (s *ScoringService) ScoreSkills(ctx context.Context, candidate, target []string) (int, error) {
	return s.similarity(ctx, strings.Join(candidate, ", "), strings.Join(target, ", "))
}

// ScoreText rates the similarity of two free-text blocks.
func (s *ScoringService) ScoreText(ctx context.Context, a, b string) (int, error) {
	return s.similarity(ctx, a, b)
}

func (s *ScoringService) similarity(ctx context.Context, a, b string) (int, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, nil
	}
	vectors, err := s.embedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	cos := cosineSimilarity(vectors[0], vectors[1])
	// Text embeddings rarely go negative; clamp instead of shifting.
	score := int(math.Round(math.Max(0, cos) * 100))
	if score > 100 {
		score = 100
	}
	return score, nil
}

func (s *ScoringService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{
		Model:         s.model,
		Task:          "text-matching",
		Dimensions:    s.dimensions,
		Input:         texts,
		EmbeddingType: "float",
	}

	var resp embeddingResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < len(vectors) {
			vectors[item.Index] = item.Embedding
		}
	}
	return vectors, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
