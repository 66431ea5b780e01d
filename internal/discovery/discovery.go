// Package discovery scans a documentation checkout for files that still
// need translation into a target language.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hyeonseo2/hf-translation-hub/internal/project"
	"github.com/hyeonseo2/hf-translation-hub/internal/save"
)

// Translation states for a discovered file.
const (
	StatusMissing  = "missing"
	StatusOutdated = "outdated"
	StatusUpToDate = "up_to_date"
	StatusInReview = "in_review"
)

// File is one English source document and its translation state.
type File struct {
	// Path is relative to the repository root, e.g.
	// docs/source/en/model_doc/bert.md.
	Path string `json:"path"`
	// TargetPath is where the translation lives or would live.
	TargetPath   string    `json:"target_path"`
	Status       string    `json:"status"`
	Priority     int       `json:"priority"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Statistics summarizes one scan.
type Statistics struct {
	TotalScanned int `json:"total_scanned"`
	Missing      int `json:"missing"`
	Outdated     int `json:"outdated"`
	UpToDate     int `json:"up_to_date"`
	InReview     int `json:"in_review"`
	Returned     int `json:"returned"`
}

// Options controls a scan.
type Options struct {
	// Root is the repository checkout to scan.
	Root string
	// Language is the target language code.
	Language string
	// MaxFiles caps the number of returned candidates; 0 means no cap.
	MaxFiles int
	// IncludeUpToDate keeps already-translated files in the result.
	IncludeUpToDate bool
	// InReview holds source paths that already have an open translation
	// PR and should not be picked up again.
	InReview map[string]bool
}

// Result is the output of one scan.
type Result struct {
	Files      []File     `json:"files"`
	Statistics Statistics `json:"statistics"`
}

var docExtensions = map[string]bool{".md": true, ".mdx": true}

// Scan walks the project's English docs tree and classifies every
// document against its translated counterpart. Candidates come back
// sorted by priority, highest first.
func Scan(cfg *project.Config, opts Options) (*Result, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("repository root is required")
	}
	sourceDir := filepath.Join(opts.Root, filepath.FromSlash(cfg.SourceDir()))
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, fmt.Errorf("source docs directory not found: %s", sourceDir)
	}

	var files []File
	stats := Statistics{}

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !docExtensions[filepath.Ext(path)] {
			return nil
		}

		rel, err := filepath.Rel(opts.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		stats.TotalScanned++

		info, err := d.Info()
		if err != nil {
			return err
		}

		file := File{
			Path:         rel,
			TargetPath:   filepath.ToSlash(save.TargetPath(rel, opts.Language)),
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
		}

		switch {
		case opts.InReview[rel]:
			file.Status = StatusInReview
			stats.InReview++
		default:
			file.Status = classify(opts.Root, path, file.TargetPath)
			switch file.Status {
			case StatusMissing:
				stats.Missing++
			case StatusOutdated:
				stats.Outdated++
			case StatusUpToDate:
				stats.UpToDate++
			}
		}

		if file.Status == StatusUpToDate && !opts.IncludeUpToDate {
			return nil
		}
		if file.Status == StatusInReview {
			return nil
		}

		file.Priority = priority(rel, info.Size())
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Priority != files[j].Priority {
			return files[i].Priority > files[j].Priority
		}
		return files[i].Path < files[j].Path
	})

	if opts.MaxFiles > 0 && len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
	}
	stats.Returned = len(files)

	return &Result{Files: files, Statistics: stats}, nil
}

// classify compares the source file against its translated counterpart.
// A counterpart older than the source counts as outdated.
func classify(root, sourcePath, targetRel string) string {
	targetPath := filepath.Join(root, filepath.FromSlash(targetRel))
	targetInfo, err := os.Stat(targetPath)
	if err != nil {
		return StatusMissing
	}
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return StatusMissing
	}
	if sourceInfo.ModTime().After(targetInfo.ModTime()) {
		return StatusOutdated
	}
	return StatusUpToDate
}

var numberedPrefix = regexp.MustCompile(`^\d+_`)

// priority ranks candidates for translation order. Entry-point documents
// and model pages are read most, so they go first; very large files rank
// lower since they are slower to review.
func priority(rel string, size int64) int {
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = numberedPrefix.ReplaceAllString(stem, "")

	score := 50
	switch stem {
	case "index", "quicktour", "installation", "quickstart":
		score += 40
	}
	if strings.Contains(rel, "/model_doc/") {
		score += 20
	}
	if strings.Contains(rel, "/tasks/") || strings.Contains(stem, "tutorial") {
		score += 10
	}
	if strings.Contains(rel, "/internal/") || strings.Contains(rel, "/main_classes/") {
		score -= 10
	}
	if size > 64*1024 {
		score -= 15
	} else if size > 16*1024 {
		score -= 5
	}
	return score
}
