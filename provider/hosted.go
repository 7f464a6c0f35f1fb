package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HostedConfig configures a metered, API-key-authenticated provider
// speaking an OpenAI-compatible chat completions API.
type HostedConfig struct {
	ProviderID string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Hosted is a reference Provider adapter for metered, hosted APIs (OpenAI,
// Anthropic-compatible proxies, and similar). Grounded on the teacher's
// OpenAI-compatible provider shape.
type Hosted struct {
	cfg HostedConfig
}

// NewHosted creates a Hosted provider.
func NewHosted(cfg HostedConfig) *Hosted {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Hosted{cfg: cfg}
}

func (h *Hosted) ID() string { return h.cfg.ProviderID }

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (h *Hosted) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload := chatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		h.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, MapHTTPError(0, err.Error(), h.cfg.ProviderID).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := ReadErrorMessage(resp.Body)
		return nil, MapHTTPError(resp.StatusCode, msg, h.cfg.ProviderID)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}

	return &ChatResponse{
		ID:      parsed.ID,
		Model:   parsed.Model,
		Content: content,
		Usage: ChatUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

func (h *Hosted) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	if h.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	}

	resp, err := h.cfg.HTTPClient.Do(req)
	if err != nil {
		return &HealthStatus{Healthy: false, Latency: time.Since(start)}, err
	}
	defer resp.Body.Close()

	return &HealthStatus{
		Healthy: resp.StatusCode < 300,
		Latency: time.Since(start),
	}, nil
}
