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

const defaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"

// OpenRouterService translates via the OpenRouter chat-completions API.
// Useful as a low-cost fallback behind the primary backend.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenRouterService(apiKey, baseURL, model string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg Config, req Request) (*Result, error) {
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

	body := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	httpReq.Header.Set("HTTP-Referer", "https://github.com/hyeonseo2/hf-translation-hub")
	httpReq.Header.Set("X-Title", "hf-translation-hub")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, transportError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, &ServiceError{Service: s.Name(), Message: "empty response from API", Transient: true}
	}

	result.TranslatedText = postprocess.Clean(apiResp.Choices[0].Message.Content)
	result.Metadata = map[string]string{
		"model":             model,
		"prompt_tokens":     fmt.Sprintf("%d", apiResp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", apiResp.Usage.CompletionTokens),
	}
	return result, nil
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}
