package translator

import (
	"context"
	"time"
)

// Config carries service credentials and tuning supplied at the call site.
type Config struct {
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	MaxTokens   int           `mapstructure:"max_tokens" json:"max_tokens"`
}

// Request is the framed input for one translation call. LLM-backed
// services consume Prompt (the full instruction built by the prompt
// package); machine-translation services consume Text directly.
type Request struct {
	Prompt     string `json:"prompt"`
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	FilePath   string `json:"file_path,omitempty"`
}

// Result captures a service's output plus call metadata.
type Result struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Latency        time.Duration     `json:"latency"`
}

// Service is the capability boundary around an external translation
// backend. Implementations must honor ctx cancellation and must never
// return partial translated content alongside an error.
type Service interface {
	Name() string
	Translate(ctx context.Context, cfg Config, req Request) (*Result, error)
	IsAvailable(ctx context.Context) error
}
