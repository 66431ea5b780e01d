package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

func transformersConfig(t *testing.T) *project.Config {
	t.Helper()
	reg, err := project.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cfg, err := reg.Get("transformers")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return cfg
}

// writeDoc creates a file under root with parent directories.
func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScan_ClassifiesFiles(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)

	writeDoc(t, root, "docs/source/en/index.md", "# Index")
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", "# BERT")
	srcQuick := writeDoc(t, root, "docs/source/en/quicktour.md", "# Quick tour")
	tgtQuick := writeDoc(t, root, "docs/source/ko/quicktour.md", "# 빠른 둘러보기")

	// quicktour translated after the source changed.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(tgtQuick, old, old); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := os.Chtimes(srcQuick, now, now); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, root, "docs/source/en/installation.md", "# Install")
	tgtInstall := writeDoc(t, root, "docs/source/ko/installation.md", "# 설치")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(tgtInstall, future, future); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(cfg, Options{Root: root, Language: "ko"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.Statistics.TotalScanned != 4 {
		t.Errorf("TotalScanned = %d, want 4", result.Statistics.TotalScanned)
	}
	if result.Statistics.Missing != 2 {
		t.Errorf("Missing = %d, want 2", result.Statistics.Missing)
	}
	if result.Statistics.Outdated != 1 {
		t.Errorf("Outdated = %d, want 1", result.Statistics.Outdated)
	}
	if result.Statistics.UpToDate != 1 {
		t.Errorf("UpToDate = %d, want 1", result.Statistics.UpToDate)
	}

	// Up-to-date files are excluded by default.
	for _, f := range result.Files {
		if f.Status == StatusUpToDate {
			t.Errorf("up-to-date file returned: %+v", f)
		}
	}

	statuses := map[string]string{}
	for _, f := range result.Files {
		statuses[f.Path] = f.Status
	}
	if statuses["docs/source/en/model_doc/bert.md"] != StatusMissing {
		t.Errorf("bert.md status = %q", statuses["docs/source/en/model_doc/bert.md"])
	}
	if statuses["docs/source/en/quicktour.md"] != StatusOutdated {
		t.Errorf("quicktour.md status = %q", statuses["docs/source/en/quicktour.md"])
	}
}

func TestScan_TargetPathMapping(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", "# BERT")

	result, err := Scan(cfg, Options{Root: root, Language: "ko"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("files = %+v", result.Files)
	}
	if result.Files[0].TargetPath != "docs/source/ko/model_doc/bert.md" {
		t.Errorf("TargetPath = %q", result.Files[0].TargetPath)
	}
}

func TestScan_PriorityOrdering(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)
	writeDoc(t, root, "docs/source/en/internal/trainer_utils.md", "# Utils")
	writeDoc(t, root, "docs/source/en/index.md", "# Index")
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", "# BERT")

	result, err := Scan(cfg, Options{Root: root, Language: "ko"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 3 {
		t.Fatalf("files = %d", len(result.Files))
	}
	if result.Files[0].Path != "docs/source/en/index.md" {
		t.Errorf("index.md should rank first, got %q", result.Files[0].Path)
	}
	if result.Files[2].Path != "docs/source/en/internal/trainer_utils.md" {
		t.Errorf("internal docs should rank last, got %q", result.Files[2].Path)
	}
}

func TestScan_MaxFilesCap(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		writeDoc(t, root, "docs/source/en/"+name, "# Doc")
	}

	result, err := Scan(cfg, Options{Root: root, Language: "ko", MaxFiles: 2})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 2 {
		t.Errorf("cap not applied: %d files", len(result.Files))
	}
	if result.Statistics.Returned != 2 {
		t.Errorf("Returned = %d", result.Statistics.Returned)
	}
	if result.Statistics.TotalScanned != 4 {
		t.Errorf("TotalScanned = %d", result.Statistics.TotalScanned)
	}
}

func TestScan_InReviewExcluded(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)
	writeDoc(t, root, "docs/source/en/a.md", "# A")
	writeDoc(t, root, "docs/source/en/b.md", "# B")

	result, err := Scan(cfg, Options{
		Root:     root,
		Language: "ko",
		InReview: map[string]bool{"docs/source/en/a.md": true},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Path != "docs/source/en/b.md" {
		t.Errorf("in-review file should be excluded: %+v", result.Files)
	}
	if result.Statistics.InReview != 1 {
		t.Errorf("InReview = %d", result.Statistics.InReview)
	}
}

func TestScan_SkipsNonMarkdown(t *testing.T) {
	root := t.TempDir()
	cfg := transformersConfig(t)
	writeDoc(t, root, "docs/source/en/doc.md", "# Doc")
	writeDoc(t, root, "docs/source/en/doc.mdx", "# Doc")
	writeDoc(t, root, "docs/source/en/_toctree.yml", "- title: x")
	writeDoc(t, root, "docs/source/en/img.png", "binary")

	result, err := Scan(cfg, Options{Root: root, Language: "ko"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Statistics.TotalScanned != 2 {
		t.Errorf("only md/mdx should be scanned, got %d", result.Statistics.TotalScanned)
	}
}

func TestScan_MissingSourceDir(t *testing.T) {
	cfg := transformersConfig(t)
	if _, err := Scan(cfg, Options{Root: t.TempDir(), Language: "ko"}); err == nil {
		t.Error("expected error for missing docs tree")
	}
}
