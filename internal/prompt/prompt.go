// Package prompt composes LLM translation instructions. Building a prompt
// is a pure function of the request: same project, language, content, and
// instruction always produce the same prompt.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyeonseo2/hf-translation-hub/internal/extract"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

// Request is the value object a prompt is built from. No mutation after
// construction.
type Request struct {
	TargetLanguage        string `json:"target_language"`
	Content               string `json:"content"`
	AdditionalInstruction string `json:"additional_instruction,omitempty"`
	Project               string `json:"project"`
	FilePath              string `json:"file_path"`

	// GlossaryTerms maps source terms to their fixed target translations.
	GlossaryTerms map[string]string `json:"glossary_terms,omitempty"`
}

// Context describes what is being translated; it travels with the prompt
// so callers can log and report on it.
type Context struct {
	TargetLanguageName string `json:"target_language_name"`
	ContentType        string `json:"content_type"`
	Domain             string `json:"domain"`
	FileType           string `json:"file_type"`
	Project            string `json:"project"`
}

// Prompt is the build output: the instruction text plus its context and the
// guideline list that was applied.
type Prompt struct {
	Text       string   `json:"prompt"`
	Context    Context  `json:"context"`
	Guidelines []string `json:"guidelines"`
}

// Build composes the full translation prompt for req. cfg supplies the
// project guidelines; it may be nil when the project carries none.
func Build(req Request, cfg *project.Config) Prompt {
	langName := project.LanguageName(req.TargetLanguage)

	var sb strings.Builder
	fmt.Fprintf(&sb,
		"What do these sentences about Hugging Face %s (a machine learning library) mean in %s? ",
		projectDisplayName(cfg, req.Project), langName)
	sb.WriteString("Please do not translate the word after a 🤗 emoji as it is a product name. ")
	sb.WriteString("Output the complete markdown file, with prose translated and all other content intact. ")
	sb.WriteString("No explanations or extras, only the translated markdown. ")
	sb.WriteString("Also translate all comments within code blocks. ")
	sb.WriteString(extract.InstructionHint())

	sb.WriteString("\n\n```md\n")
	sb.WriteString(strings.TrimSpace(req.Content))
	sb.WriteString("\n```")

	if len(req.GlossaryTerms) > 0 {
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):\n")
		for _, src := range sortedKeys(req.GlossaryTerms) {
			fmt.Fprintf(&sb, "  %s → %s\n", src, req.GlossaryTerms[src])
		}
	}

	if cfg != nil && len(cfg.Guidelines.KeepEnglishTerms) > 0 {
		fmt.Fprintf(&sb, "\nKeep the following terms in English: %s.\n",
			strings.Join(cfg.Guidelines.KeepEnglishTerms, ", "))
	}

	if instr := strings.TrimSpace(req.AdditionalInstruction); instr != "" {
		fmt.Fprintf(&sb, "\n🗒️ Additional instructions: %s", instr)
	}

	return Prompt{
		Text: sb.String(),
		Context: Context{
			TargetLanguageName: langName,
			ContentType:        "technical_documentation",
			Domain:             "machine_learning",
			FileType:           fileType(req.FilePath),
			Project:            req.Project,
		},
		Guidelines: guidelines(cfg),
	}
}

func projectDisplayName(cfg *project.Config, key string) string {
	if cfg != nil && cfg.Name != "" {
		return cfg.Name
	}
	return key
}

// fileType classifies a docs path the way the reporting side groups files.
func fileType(path string) string {
	switch {
	case path == "":
		return "general_documentation"
	case strings.Contains(path, "model_doc"):
		return "model_documentation"
	case strings.Contains(path, "tutorial"):
		return "tutorial"
	case strings.Contains(path, "api"):
		return "api_reference"
	default:
		return "general_documentation"
	}
}

func guidelines(cfg *project.Config) []string {
	g := []string{
		"Preserve markdown formatting",
		"Keep technical terms in English where appropriate",
		"Maintain code block integrity",
		"Use glossary terms when available",
		"Do not translate product names after 🤗 emoji",
	}
	if cfg != nil && cfg.Guidelines.StyleGuideURL != "" {
		g = append(g, "Style guide: "+cfg.Guidelines.StyleGuideURL)
	}
	return g
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
