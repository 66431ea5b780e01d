// Package toctree reads and rewrites Hugging Face _toctree.yml files.
//
// A translated docs tree mirrors the English table of contents. Entries
// whose document has not been translated yet carry an in-progress marker
// in the title; translating a file replaces the marker with the real
// translated title.
package toctree

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InProgressPrefix marks a table-of-contents entry whose document has not
// been translated yet.
const InProgressPrefix = "(번역중) "

// Entry is one node of a _toctree.yml document.
type Entry struct {
	Title      string  `yaml:"title"`
	Local      string  `yaml:"local,omitempty"`
	Sections   []Entry `yaml:"sections,omitempty"`
	IsExpanded *bool   `yaml:"isExpanded,omitempty"`
}

// Parse decodes a _toctree.yml document.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse toctree: %w", err)
	}
	return entries, nil
}

// Load reads and parses a _toctree.yml file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save marshals entries back to path.
func Save(path string, entries []Entry) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal toctree: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// FindTitleForLocal returns the title of the entry whose local matches,
// searching the tree depth-first.
func FindTitleForLocal(entries []Entry, local string) (string, bool) {
	for i := range entries {
		if entries[i].Local == local {
			return entries[i].Title, true
		}
		if title, ok := FindTitleForLocal(entries[i].Sections, local); ok {
			return title, true
		}
	}
	return "", false
}

// IsInProgress reports whether a title carries the in-progress marker.
func IsInProgress(title string) bool {
	return strings.HasPrefix(title, InProgressPrefix)
}

// MarkTranslated finds the entry for local and replaces its title with
// the translated title, clearing any in-progress marker. Returns false
// when no entry matches.
func MarkTranslated(entries []Entry, local, title string) bool {
	for i := range entries {
		if entries[i].Local == local {
			entries[i].Title = title
			return true
		}
		if MarkTranslated(entries[i].Sections, local, title) {
			return true
		}
	}
	return false
}

// Merge builds a target-language tree mirroring the English one. Entries
// whose local appears in titles get the translated title; the rest keep
// the English title behind the in-progress marker. Section ordering and
// nesting follow the English tree exactly.
func Merge(english []Entry, titles map[string]string) []Entry {
	merged := make([]Entry, len(english))
	for i, e := range english {
		merged[i] = Entry{
			Local:      e.Local,
			IsExpanded: e.IsExpanded,
			Sections:   Merge(e.Sections, titles),
		}
		if translated, ok := titles[e.Local]; ok && e.Local != "" {
			merged[i].Title = translated
		} else if e.Local != "" {
			merged[i].Title = InProgressPrefix + e.Title
		} else {
			// Pure section headers keep the English title until a
			// translated counterpart exists.
			merged[i].Title = e.Title
		}
	}
	return merged
}

// TranslatedLocals collects the locals of all entries without the
// in-progress marker, depth-first.
func TranslatedLocals(entries []Entry) []string {
	var locals []string
	for _, e := range entries {
		if e.Local != "" && !IsInProgress(e.Title) {
			locals = append(locals, e.Local)
		}
		locals = append(locals, TranslatedLocals(e.Sections)...)
	}
	return locals
}
