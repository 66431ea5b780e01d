package workflow

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hyeonseo2/hf-translation-hub/internal/toctree"
)

// updatedToctree refreshes the target language's _toctree.yml for a
// freshly translated document and returns the repo-relative path plus the
// new file content. Returns ok=false when the checkout carries no
// toctree or the document has no title to record.
func (e *Engine) updatedToctree(filePath, content string, opts Options) (string, string, bool) {
	title := docTitle(content)
	if title == "" {
		return "", "", false
	}
	local := tocLocal(filePath)

	targetRel := e.Project.TargetDir(opts.Language) + "/_toctree.yml"
	targetAbs := filepath.Join(opts.Root, filepath.FromSlash(targetRel))
	englishAbs := filepath.Join(opts.Root, filepath.FromSlash(e.Project.SourceDir()), "_toctree.yml")

	entries, err := toctree.Load(targetAbs)
	switch {
	case err == nil:
		if !toctree.MarkTranslated(entries, local, title) {
			// The entry is absent from the translated tree; realign
			// against the English one so it gets a slot.
			english, engErr := toctree.Load(englishAbs)
			if engErr != nil {
				e.Log.Warn().Err(engErr).Msg("cannot align toctree without the English tree")
				return "", "", false
			}
			titles := collectTranslatedTitles(entries)
			titles[local] = title
			entries = toctree.Merge(english, titles)
		}
	case os.IsNotExist(err):
		english, engErr := toctree.Load(englishAbs)
		if engErr != nil {
			return "", "", false
		}
		entries = toctree.Merge(english, map[string]string{local: title})
	default:
		e.Log.Warn().Err(err).Msg("failed to load target toctree")
		return "", "", false
	}

	if err := toctree.Save(targetAbs, entries); err != nil {
		e.Log.Warn().Err(err).Msg("failed to write target toctree")
		return "", "", false
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", "", false
	}
	return targetRel, string(data), true
}

// collectTranslatedTitles maps locals to titles for every entry already
// translated in the tree.
func collectTranslatedTitles(entries []toctree.Entry) map[string]string {
	titles := make(map[string]string)
	var walk func([]toctree.Entry)
	walk = func(list []toctree.Entry) {
		for _, e := range list {
			if e.Local != "" && !toctree.IsInProgress(e.Title) {
				titles[e.Local] = e.Title
			}
			walk(e.Sections)
		}
	}
	walk(entries)
	return titles
}
