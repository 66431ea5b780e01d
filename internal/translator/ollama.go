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

const defaultOllamaModel = "llama3.2"

// OllamaService translates through a local Ollama instance. Intended for
// offline experimentation; quality on long documents varies by model.
type OllamaService struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaService{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 600 * time.Second},
	}
}

func (s *OllamaService) Name() string {
	return "ollama"
}

func (s *OllamaService) Translate(ctx context.Context, cfg Config, req Request) (*Result, error) {
	result := &Result{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	model := s.model
	if cfg.Model != "" {
		model = cfg.Model
	}

	body := map[string]interface{}{
		"model":  model,
		"prompt": req.Prompt,
		"stream": false,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, transportError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(s.Name(), resp.StatusCode, "request failed")
	}

	var apiResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Response == "" {
		return nil, &ServiceError{Service: s.Name(), Message: "empty response from API", Transient: true}
	}

	result.TranslatedText = postprocess.Clean(apiResp.Response)
	result.Metadata = map[string]string{"model": model}
	return result, nil
}

func (s *OllamaService) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", s.baseURL), nil)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}
