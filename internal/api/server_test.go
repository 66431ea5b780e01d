package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

type fakePublisher struct {
	result *ghpub.Result
	got    []ghpub.Request
}

func (f *fakePublisher) Publish(_ context.Context, req ghpub.Request) *ghpub.Result {
	f.got = append(f.got, req)
	return f.result
}

func newTestServer(t *testing.T, pub Publisher) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()

	reg, err := project.NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { led.Close() })

	s := NewServer(Config{
		Registry:  reg,
		Ledger:    led,
		Publisher: pub,
		Root:      root,
		Log:       zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv, root
}

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp, env
}

func dataMap(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	m, ok := env.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is not an object: %#v", env.Data)
	}
	return m
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestSearchTranslationFiles(t *testing.T) {
	srv, root := newTestServer(t, nil)
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", "# BERT")
	writeDoc(t, root, "docs/source/en/quicktour.md", "# Quick tour")

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/search_translation_files", map[string]interface{}{
		"project":  "transformers",
		"language": "ko",
	})
	if resp.StatusCode != http.StatusOK || env.Status != statusSuccess {
		t.Fatalf("status = %d / %s", resp.StatusCode, env.Status)
	}

	data := dataMap(t, env)
	files := data["files"].([]interface{})
	if len(files) != 2 {
		t.Errorf("files = %d", len(files))
	}
	stats := data["statistics"].(map[string]interface{})
	if stats["missing"].(float64) != 2 {
		t.Errorf("statistics = %v", stats)
	}
}

func TestSearchTranslationFiles_UnknownProject(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/search_translation_files", map[string]interface{}{
		"project":  "nope",
		"language": "ko",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if env.Status != statusError || env.Error.Code != CodeNotFound {
		t.Errorf("envelope = %+v", env)
	}
}

// fakeListerPublisher also answers which files have an open PR upstream.
type fakeListerPublisher struct {
	fakePublisher
	inReview map[string]bool
}

func (f *fakeListerPublisher) InReviewPaths(_ context.Context, _ *project.Config, _ string) (map[string]bool, error) {
	return f.inReview, nil
}

func TestSearchTranslationFiles_SkipInReview(t *testing.T) {
	pub := &fakeListerPublisher{inReview: map[string]bool{
		"docs/source/en/model_doc/bert.md": true,
	}}
	srv, root := newTestServer(t, pub)
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", "# BERT")
	writeDoc(t, root, "docs/source/en/quicktour.md", "# Quick tour")

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/search_translation_files", map[string]interface{}{
		"project":        "transformers",
		"language":       "ko",
		"skip_in_review": true,
	})
	if resp.StatusCode != http.StatusOK || env.Status != statusSuccess {
		t.Fatalf("status = %d / %s", resp.StatusCode, env.Status)
	}

	data := dataMap(t, env)
	files := data["files"].([]interface{})
	if len(files) != 1 {
		t.Fatalf("files = %d, want the in-review file excluded", len(files))
	}
	first := files[0].(map[string]interface{})
	if first["path"] != "docs/source/en/quicktour.md" {
		t.Errorf("wrong file kept: %v", first["path"])
	}
	stats := data["statistics"].(map[string]interface{})
	if stats["in_review"].(float64) != 1 {
		t.Errorf("statistics = %v", stats)
	}
}

func TestSearchTranslationFiles_SkipInReviewNeedsPublisher(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/search_translation_files", map[string]interface{}{
		"project":        "transformers",
		"language":       "ko",
		"skip_in_review": true,
	})
	if resp.StatusCode != http.StatusServiceUnavailable || env.Error.Code != CodeConfiguration {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
}

func TestSearchTranslationFiles_UnsupportedLanguage(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/search_translation_files", map[string]interface{}{
		"project":  "transformers",
		"language": "xx",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != CodeConfiguration {
		t.Errorf("envelope = %+v", env)
	}
}

func TestGetFileContent(t *testing.T) {
	srv, root := newTestServer(t, nil)
	doc := "# BERT\n\n```python\nimport torch\n```\n"
	writeDoc(t, root, "docs/source/en/model_doc/bert.md", doc)

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/get_file_content", map[string]interface{}{
		"file_path": "docs/source/en/model_doc/bert.md",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data := dataMap(t, env)
	if data["content"] != doc {
		t.Errorf("content mismatch")
	}
	processed := data["processed_content"].(string)
	if !strings.Contains(processed, "[PH0]") || strings.Contains(processed, "import torch") {
		t.Errorf("processed_content should carry placeholders, not code: %q", processed)
	}
	if blocks := data["removed_blocks"].([]interface{}); len(blocks) != 1 {
		t.Errorf("removed_blocks = %v", blocks)
	}
	if _, ok := data["metadata"]; ok {
		t.Error("metadata must be opt-in")
	}
}

func TestGetFileContent_IncludeMetadata(t *testing.T) {
	srv, root := newTestServer(t, nil)
	writeDoc(t, root, "docs/source/en/index.md", "# Index\n")

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/get_file_content", map[string]interface{}{
		"file_path":        "docs/source/en/index.md",
		"include_metadata": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data := dataMap(t, env)
	meta, ok := data["metadata"].(map[string]interface{})
	if !ok {
		t.Fatalf("metadata missing: %v", data)
	}
	if meta["checksum"].(string) == "" {
		t.Error("checksum missing")
	}
	if meta["size_bytes"].(float64) != float64(len("# Index\n")) {
		t.Errorf("size_bytes = %v", meta["size_bytes"])
	}
}

func TestGetFileContent_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/get_file_content", map[string]interface{}{
		"file_path": "docs/source/en/missing.md",
	})
	if resp.StatusCode != http.StatusNotFound || env.Error.Code != CodeNotFound {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
}

func TestGenerateTranslationPrompt(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/generate_translation_prompt", map[string]interface{}{
		"project":  "transformers",
		"language": "ko",
		"content":  "# BERT\n\n```python\nimport torch\n```\n\nProse here.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data := dataMap(t, env)
	promptText := data["prompt"].(string)
	if !strings.Contains(promptText, "Korean") {
		t.Error("prompt should name the language")
	}
	if !strings.Contains(promptText, "[PH0]") {
		t.Error("prompt should embed the stripped content")
	}
	if strings.Contains(promptText, "import torch") {
		t.Error("code must not reach the prompt body")
	}
	blocks := data["removed_blocks"].([]interface{})
	if len(blocks) != 1 {
		t.Errorf("removed_blocks = %v", blocks)
	}
}

func TestValidateTranslation(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/validate_translation", map[string]interface{}{
		"original":   "# Title\n\nProse.",
		"translated": "# 제목\n\n본문.",
		"language":   "ko",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data := dataMap(t, env)
	if data["is_valid"] != true {
		t.Errorf("report = %v", data)
	}
}

func TestSaveTranslationResult(t *testing.T) {
	srv, root := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/save_translation_result", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/model_doc/bert.md",
		"content":   "# BERT\n\n번역본\n",
		"service":   "anthropic",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, envelope = %+v", resp.StatusCode, env)
	}
	data := dataMap(t, env)
	savedPath := data["saved_path"].(string)
	if !strings.HasSuffix(filepath.ToSlash(savedPath), "docs/source/ko/model_doc/bert.md") {
		t.Errorf("saved_path = %q", savedPath)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "source", "ko", "model_doc", "bert.md")); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestSaveTranslationResult_EmptyContent(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/save_translation_result", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/a.md",
		"content":   "  ",
	})
	if resp.StatusCode != http.StatusInternalServerError || env.Error.Code != CodePersistence {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
}

func TestCreateGithubPR(t *testing.T) {
	pub := &fakePublisher{result: &ghpub.Result{
		Status:   ghpub.StatusSuccess,
		PRURL:    "https://github.com/huggingface/transformers/pull/9",
		PRNumber: 9,
		Branch:   "ko-model-doc-bert",
	}}
	srv, root := newTestServer(t, pub)
	writeDoc(t, root, "docs/source/ko/model_doc/bert.md", "# BERT\n\n번역본\n")

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/create_github_pr", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/model_doc/bert.md",
	})
	if resp.StatusCode != http.StatusOK || env.Status != statusSuccess {
		t.Fatalf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
	if len(pub.got) != 1 {
		t.Fatalf("publisher calls = %d", len(pub.got))
	}
	if pub.got[0].TargetPath != "docs/source/ko/model_doc/bert.md" {
		t.Errorf("TargetPath = %q", pub.got[0].TargetPath)
	}
	// Content was read from the saved translation on disk.
	if !strings.Contains(pub.got[0].Content, "번역본") {
		t.Errorf("content = %q", pub.got[0].Content)
	}
}

func TestCreateGithubPR_PartialSuccess(t *testing.T) {
	pub := &fakePublisher{result: &ghpub.Result{
		Status:         ghpub.StatusPartialSuccess,
		Branch:         "ko-model-doc-bert",
		CompletedSteps: []string{ghpub.StepAuthenticate, ghpub.StepEnsureBranch},
		Error:          "failed to create pull request",
	}}
	srv, root := newTestServer(t, pub)
	writeDoc(t, root, "docs/source/ko/model_doc/bert.md", "# BERT\n")

	resp, env := postJSON(t, srv.URL+"/api/v1/tools/create_github_pr", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/model_doc/bert.md",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("partial success still returns 200, got %d", resp.StatusCode)
	}
	if env.Status != statusPartial {
		t.Errorf("envelope status = %s", env.Status)
	}
	if env.Error == nil || env.Error.Message == "" {
		t.Error("partial envelope must carry the error")
	}
	if env.Data == nil {
		t.Error("partial envelope must carry the completed steps")
	}
}

func TestCreateGithubPR_NoPublisher(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/create_github_pr", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/a.md",
	})
	if resp.StatusCode != http.StatusServiceUnavailable || env.Error.Code != CodeConfiguration {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
}

func TestCreateGithubPR_NoSavedTranslation(t *testing.T) {
	pub := &fakePublisher{result: &ghpub.Result{Status: ghpub.StatusSuccess}}
	srv, _ := newTestServer(t, pub)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/create_github_pr", map[string]interface{}{
		"project":   "transformers",
		"language":  "ko",
		"file_path": "docs/source/en/model_doc/bert.md",
	})
	if resp.StatusCode != http.StatusNotFound || env.Error.Code != CodeNotFound {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
	if len(pub.got) != 0 {
		t.Error("publisher must not be called without content")
	}
}

func TestGetProjectConfig(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, env := func() (*http.Response, envelope) {
		resp, err := http.Get(srv.URL + "/api/v1/tools/get_project_config?project=transformers&language=ko")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatal(err)
		}
		return resp, env
	}()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	data := dataMap(t, env)
	proj := data["project"].(map[string]interface{})
	if proj["name"] != "Transformers" {
		t.Errorf("project = %v", proj)
	}
	lang := data["language"].(map[string]interface{})
	if lang["name"] != "Korean" {
		t.Errorf("language = %v", lang)
	}
	if data["tracking_issue"] != "20179" {
		t.Errorf("tracking_issue = %v", data["tracking_issue"])
	}
}

func TestGetProjectConfig_ListsProjects(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/v1/tools/get_project_config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	data := dataMap(t, env)
	projects := data["projects"].([]interface{})
	if len(projects) < 2 {
		t.Errorf("projects = %v", projects)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, env := postJSON(t, srv.URL+"/api/v1/tools/nope", map[string]interface{}{})
	if resp.StatusCode != http.StatusNotFound || env.Error.Code != CodeNotFound {
		t.Errorf("resp = %d, envelope = %+v", resp.StatusCode, env)
	}
}
