package translator

import (
	"fmt"
	"sort"
)

// New builds a Service by name from the given config. Known names are
// anthropic, openrouter, ollama, and google.
func New(name string, cfg Config) (Service, error) {
	switch name {
	case "anthropic":
		return NewAnthropicService(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "openrouter":
		return NewOpenRouterService(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "ollama":
		return NewOllamaService(cfg.BaseURL, cfg.Model), nil
	case "google":
		return NewGoogleService(), nil
	default:
		return nil, fmt.Errorf("unknown translation service %q (known: %v)", name, Known())
	}
}

// Known returns the registered service names, sorted.
func Known() []string {
	names := []string{"anthropic", "openrouter", "ollama", "google"}
	sort.Strings(names)
	return names
}
