package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyeonseo2/hf-translation-hub/internal/postprocess"
)

const (
	defaultAnthropicModel   = "claude-sonnet-4-20250514"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultMaxTokens        = 8192
)

// AnthropicService translates via the Anthropic Messages API. It is the
// reference backend for documentation translation: the full structured
// prompt goes in as a single user message.
type AnthropicService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewAnthropicService(apiKey, baseURL, model string) *AnthropicService {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *AnthropicService) Name() string {
	return "anthropic"
}

func (s *AnthropicService) Translate(ctx context.Context, cfg Config, req Request) (*Result, error) {
	result := &Result{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, &ServiceError{Service: s.Name(), Message: "API key required"}
	}

	model := s.model
	if cfg.Model != "" {
		model = cfg.Model
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]interface{}{
		"model":      model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/messages", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, transportError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, statusError(s.Name(), resp.StatusCode, msg)
	}

	var apiResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var text string
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &ServiceError{Service: s.Name(), Message: "empty response from API", Transient: true}
	}
	if apiResp.StopReason == "max_tokens" {
		return nil, &ServiceError{Service: s.Name(), Message: "response truncated at max_tokens"}
	}

	result.TranslatedText = postprocess.Clean(text)
	result.Metadata = map[string]string{
		"model":         model,
		"input_tokens":  fmt.Sprintf("%d", apiResp.Usage.InputTokens),
		"output_tokens": fmt.Sprintf("%d", apiResp.Usage.OutputTokens),
		"stop_reason":   apiResp.StopReason,
	}
	return result, nil
}

func (s *AnthropicService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Anthropic API key not configured")
	}
	return nil
}
