// Package project holds the static registry of translatable documentation
// projects. The registry is loaded once at process start and is read-only
// afterward; every pipeline stage receives a *Config by reference.
package project

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrProjectNotFound is returned when a project key is not registered.
	ErrProjectNotFound = fmt.Errorf("project not found")

	// ErrUnsupportedLanguage is returned when a target language is not in the
	// project's supported set.
	ErrUnsupportedLanguage = fmt.Errorf("unsupported target language")
)

// Guidelines are project-level translation rules embedded into prompts and
// surfaced through the config endpoint.
type Guidelines struct {
	PreserveCodeBlocks bool     `json:"preserve_code_blocks" mapstructure:"preserve_code_blocks"`
	KeepEnglishTerms   []string `json:"keep_english_terms" mapstructure:"keep_english_terms"`
	StyleGuideURL      string   `json:"style_guide_url" mapstructure:"style_guide_url"`
}

// Config describes a single documentation project.
type Config struct {
	Name               string            `json:"name" mapstructure:"name"`
	RepoURL            string            `json:"repo_url" mapstructure:"repo_url"`
	DocsPath           string            `json:"docs_path" mapstructure:"docs_path"`
	SupportedLanguages []string          `json:"supported_languages" mapstructure:"supported_languages"`
	ReferencePRURL     string            `json:"reference_pr_url" mapstructure:"reference_pr_url"`
	IssueIDs           map[string]string `json:"github_issues" mapstructure:"github_issues"`
	Guidelines         Guidelines        `json:"translation_guidelines" mapstructure:"translation_guidelines"`
}

// RepoPath returns the "owner/name" part of RepoURL.
func (c *Config) RepoPath() string {
	return strings.TrimPrefix(strings.TrimSuffix(c.RepoURL, "/"), "https://github.com/")
}

// Supports reports whether lang is in the project's supported set.
func (c *Config) Supports(lang string) bool {
	for _, l := range c.SupportedLanguages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// SourceDir returns the docs directory for the source (English) tree.
func (c *Config) SourceDir() string {
	return c.DocsPath + "/en"
}

// TargetDir returns the docs directory for the given target language.
func (c *Config) TargetDir(lang string) string {
	return c.DocsPath + "/" + lang
}

var defaultLanguages = []string{"ko", "zh", "ja", "es", "fr", "de", "it", "pt"}

// Registry is the immutable project table.
type Registry struct {
	projects map[string]*Config
}

// NewRegistry returns the built-in registry, optionally extended or
// overridden by a "projects" section of the supplied viper instance. Pass
// nil to use the built-ins unchanged.
func NewRegistry(v *viper.Viper) (*Registry, error) {
	projects := map[string]*Config{
		"transformers": {
			Name:               "Transformers",
			RepoURL:            "https://github.com/huggingface/transformers",
			DocsPath:           "docs/source",
			SupportedLanguages: defaultLanguages,
			ReferencePRURL:     "https://github.com/huggingface/transformers/pull/24968",
			IssueIDs:           map[string]string{"ko": "20179"},
			Guidelines: Guidelines{
				PreserveCodeBlocks: true,
				KeepEnglishTerms:   []string{"API", "token", "embedding", "transformer", "model"},
				StyleGuideURL:      "https://github.com/huggingface/transformers/blob/main/docs/TRANSLATION_GUIDE.md",
			},
		},
		"smolagents": {
			Name:               "SmolAgents",
			RepoURL:            "https://github.com/huggingface/smolagents",
			DocsPath:           "docs/source",
			SupportedLanguages: defaultLanguages,
			ReferencePRURL:     "https://github.com/huggingface/smolagents/pull/1581",
			IssueIDs:           map[string]string{},
			Guidelines: Guidelines{
				PreserveCodeBlocks: true,
				KeepEnglishTerms:   []string{"API", "agent", "tool", "model"},
				StyleGuideURL:      "https://github.com/huggingface/smolagents/blob/main/docs/TRANSLATION_GUIDE.md",
			},
		},
	}

	if v != nil && v.IsSet("projects") {
		var overrides map[string]*Config
		if err := v.UnmarshalKey("projects", &overrides); err != nil {
			return nil, fmt.Errorf("invalid projects configuration: %w", err)
		}
		for key, cfg := range overrides {
			key = strings.ToLower(key)
			if len(cfg.SupportedLanguages) == 0 {
				cfg.SupportedLanguages = defaultLanguages
			}
			projects[key] = cfg
		}
	}

	return &Registry{projects: projects}, nil
}

// Get returns the config for a project key.
func (r *Registry) Get(key string) (*Config, error) {
	cfg, ok := r.projects[strings.ToLower(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrProjectNotFound, key, strings.Join(r.Keys(), ", "))
	}
	return cfg, nil
}

// Resolve returns the config for key and verifies lang is supported.
func (r *Registry) Resolve(key, lang string) (*Config, error) {
	cfg, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	if !cfg.Supports(lang) {
		return nil, fmt.Errorf("%w: %q for project %q (supported: %s)",
			ErrUnsupportedLanguage, lang, key, strings.Join(cfg.SupportedLanguages, ", "))
	}
	return cfg, nil
}

// Keys returns the registered project keys sorted alphabetically.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.projects))
	for k := range r.projects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LanguageName converts an ISO language code into its English display name
// ("ko" → "Korean"). Unknown codes are returned unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}
