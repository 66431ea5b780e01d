package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
	"github.com/hyeonseo2/hf-translation-hub/internal/translator"
	"github.com/hyeonseo2/hf-translation-hub/internal/workflow"
)

// loadRegistry builds the project registry with any config overrides.
func loadRegistry() (*project.Registry, error) {
	return project.NewRegistry(viper.GetViper())
}

// resolveProject returns the active project config for the global flags.
func resolveProject() (*project.Config, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	return reg.Resolve(projectKey, language)
}

// openLedger opens the run database, or returns nil when disabled.
func openLedger() (*ledger.Ledger, error) {
	if dbPath == "" {
		return nil, nil
	}
	return ledger.Open(dbPath)
}

// serviceConfig reads one backend's settings from configuration. Keys
// live under the service name, e.g. anthropic.api_key, and resolve from
// the environment as HTH_ANTHROPIC_API_KEY.
func serviceConfig(name string) translator.Config {
	sub := func(key string) string { return viper.GetString(name + "." + key) }
	return translator.Config{
		APIKey:      sub("api_key"),
		Model:       sub("model"),
		BaseURL:     sub("base_url"),
		Credentials: sub("credentials"),
		ProjectID:   sub("project_id"),
		MaxTokens:   viper.GetInt(name + ".max_tokens"),
	}
}

// newService builds the configured translation backend.
func newService(name string) (translator.Service, translator.Config, error) {
	cfg := serviceConfig(name)
	svc, err := translator.New(name, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return svc, cfg, nil
}

// newPublisher builds the GitHub publisher when a token is configured.
func newPublisher(ctx context.Context) (*ghpub.Publisher, error) {
	token := viper.GetString("github.token")
	if token == "" {
		return nil, fmt.Errorf("no GitHub token configured (set github.token or HTH_GITHUB_TOKEN)")
	}
	return ghpub.New(ctx, token, log), nil
}

// newEngine assembles the pipeline for the active project. The caller
// must Close the returned ledger when non-nil.
func newEngine(serviceName string, requestsPerMinute int) (*workflow.Engine, *ledger.Ledger, translator.Config, error) {
	cfg, err := resolveProject()
	if err != nil {
		return nil, nil, translator.Config{}, err
	}
	svc, svcCfg, err := newService(serviceName)
	if err != nil {
		return nil, nil, translator.Config{}, err
	}
	led, err := openLedger()
	if err != nil {
		return nil, nil, translator.Config{}, fmt.Errorf("failed to open run database: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	return &workflow.Engine{
		Project: cfg,
		Service: svc,
		Ledger:  led,
		Limiter: limiter,
		Log:     log,
	}, led, svcCfg, nil
}
