package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wenqi/jobtailor/internal/domain"
)

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// chatCompletion sends one system+user exchange to an OpenAI-compatible
// endpoint and returns the assistant content with token usage.
func chatCompletion(ctx context.Context, client *resty.Client, endpoint, model, system, user string, maxTokens int) (string, domain.UsageMetrics, error) {
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	}

	var resp chatResponse
	httpResp, err := client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(endpoint)
	if err != nil {
		return "", domain.UsageMetrics{}, fmt.Errorf("failed to call chat API: %w", err)
	}

	usage := domain.UsageMetrics{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		} else if len(httpResp.Body()) > 0 {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		}
		return "", usage, fmt.Errorf("chat API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", usage, fmt.Errorf("chat API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("no response from chat API (status: %d)", httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, usage, nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the first JSON object in the text. Models wrap JSON output despite being
// told not to.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// newChatClient builds a resty client with auth headers and the provider's
// own timeout. Generation providers get a longer timeout than lookups.
func newChatClient(apiKey string, timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	return client
}
