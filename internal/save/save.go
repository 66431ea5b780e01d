// Package save writes translated documents to their language-mapped
// location, backing up prior versions and recording a metadata sidecar.
package save

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Request describes one document to persist.
type Request struct {
	// SourcePath is the original file path relative to the repository
	// root, e.g. docs/source/en/model_doc/bert.md.
	SourcePath string
	// Content is the final translated document.
	Content string
	// Language is the target language code used for path mapping.
	Language string
	// Root is the repository checkout the path is resolved against.
	Root string
	// Service and Model record which backend produced the translation.
	Service string
	Model   string
}

// Result reports where and how the document was written.
type Result struct {
	SavedPath          string `json:"saved_path"`
	BackupPath         string `json:"backup_path,omitempty"`
	MetadataPath       string `json:"metadata_path"`
	FileSize           int64  `json:"file_size"`
	Checksum           string `json:"checksum"`
	CreatedDirectories bool   `json:"created_directories"`
}

// Metadata is the .meta.json sidecar written next to each translation.
type Metadata struct {
	SourcePath   string    `json:"source_path"`
	Language     string    `json:"language"`
	Service      string    `json:"service,omitempty"`
	Model        string    `json:"model,omitempty"`
	Checksum     string    `json:"checksum"`
	FileSize     int64     `json:"file_size"`
	TranslatedAt time.Time `json:"translated_at"`
}

// TargetPath maps an English source path to its translated location.
// Paths containing a /en/ segment get it swapped for the language code;
// anything else falls back to prefixing the file name with "<lang>_".
func TargetPath(sourcePath, language string) string {
	sep := string(filepath.Separator)
	normalized := filepath.ToSlash(sourcePath)
	if strings.Contains(normalized, "/en/") {
		mapped := strings.Replace(normalized, "/en/", "/"+language+"/", 1)
		return filepath.FromSlash(mapped)
	}
	dir, name := filepath.Split(sourcePath)
	return dir + language + "_" + strings.TrimPrefix(name, sep)
}

// Checksum returns the hex sha256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Write persists the translated document. If the target already exists,
// the old version is kept as a timestamped backup next to it before the
// overwrite, identical content included.
func Write(req Request) (*Result, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("refusing to save empty content for %s", req.SourcePath)
	}
	if req.Language == "" {
		return nil, fmt.Errorf("language is required")
	}

	target := TargetPath(req.SourcePath, req.Language)
	if req.Root != "" {
		target = filepath.Join(req.Root, target)
	}

	result := &Result{
		SavedPath: target,
		Checksum:  Checksum(req.Content),
		FileSize:  int64(len(req.Content)),
	}

	dir := filepath.Dir(target)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		result.CreatedDirectories = true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if existing, err := os.ReadFile(target); err == nil {
		backup, err := backupExisting(target, existing)
		if err != nil {
			return nil, err
		}
		result.BackupPath = backup
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read existing %s: %w", target, err)
	}

	if err := os.WriteFile(target, []byte(req.Content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", target, err)
	}

	metaPath, err := writeSidecar(target, req, result)
	if err != nil {
		return nil, err
	}
	result.MetadataPath = metaPath
	return result, nil
}

// backupExisting copies the current file aside as
// <stem>_backup_<timestamp><ext> before it is overwritten.
func backupExisting(target string, content []byte) (string, error) {
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	stamp := time.Now().Format("20060102_150405")
	backup := fmt.Sprintf("%s_backup_%s%s", stem, stamp, ext)
	if err := os.WriteFile(backup, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", backup, err)
	}
	return backup, nil
}

func writeSidecar(target string, req Request, result *Result) (string, error) {
	meta := Metadata{
		SourcePath:   filepath.ToSlash(req.SourcePath),
		Language:     req.Language,
		Service:      req.Service,
		Model:        req.Model,
		Checksum:     result.Checksum,
		FileSize:     result.FileSize,
		TranslatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	path := target + ".meta.json"
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata %s: %w", path, err)
	}
	return path, nil
}

// ReadMetadata loads the sidecar for a saved translation, if present.
func ReadMetadata(savedPath string) (*Metadata, error) {
	data, err := os.ReadFile(savedPath + ".meta.json")
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s: %w", savedPath, err)
	}
	return &meta, nil
}
