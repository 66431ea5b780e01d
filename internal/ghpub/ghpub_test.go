package ghpub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"

	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

func TestBranchName(t *testing.T) {
	cases := map[string]string{
		"docs/source/en/model_doc/bert.md": "ko-model-doc-bert",
		"docs/source/en/quicktour.md":      "ko-quicktour",
		"docs/source/en/tasks/question_answering.md": "ko-tasks-question-answering",
	}
	for src, want := range cases {
		if got := BranchName("ko", src); got != want {
			t.Errorf("BranchName(%q) = %q, want %q", src, got, want)
		}
	}

	// Deterministic: the same input always maps to the same branch.
	if BranchName("ko", "docs/source/en/index.md") != BranchName("ko", "docs/source/en/index.md") {
		t.Error("branch name must be deterministic")
	}
}

func TestPRTitle(t *testing.T) {
	got := PRTitle("ko", "docs/source/en/model_doc/bert.md")
	want := "[i18n-KO] Translated `model_doc/bert.md` to Korean"
	if got != want {
		t.Errorf("PRTitle = %q, want %q", got, want)
	}
}

func TestCommitMessage(t *testing.T) {
	got := CommitMessage("ko", "docs/source/en/model_doc/bert.md")
	if got != "docs: ko: bert.md" {
		t.Errorf("CommitMessage = %q", got)
	}
}

func TestInReviewPaths(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/huggingface/transformers/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "open" {
			t.Errorf("expected open PRs only, got state=%q", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[
			{"number":1,"title":"[i18n-KO] Translated `+"`model_doc/bert.md`"+` to Korean"},
			{"number":2,"title":"[i18n-JA] Translated `+"`quicktour.md`"+` to Japanese"},
			{"number":3,"title":"Fix typo in README"},
			{"number":4,"title":"[i18n-KO] Translated `+"`tasks/question_answering.md`"+` to Korean"}
		]`)
	})
	pub := newTestPublisher(t, mux)

	paths, err := pub.InReviewPaths(context.Background(), transformersConfig(t), "ko")
	if err != nil {
		t.Fatalf("InReviewPaths: %v", err)
	}
	want := map[string]bool{
		"docs/source/en/model_doc/bert.md":           true,
		"docs/source/en/tasks/question_answering.md": true,
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for p := range want {
		if !paths[p] {
			t.Errorf("missing %s in %v", p, paths)
		}
	}
}

func transformersConfig(t *testing.T) *project.Config {
	t.Helper()
	reg, err := project.NewRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := reg.Get("transformers")
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// newTestPublisher wires a Publisher against a fake GitHub API.
func newTestPublisher(t *testing.T, mux *http.ServeMux) *Publisher {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base
	return NewWithClient(client, zerolog.Nop())
}

// registerHappyPath wires every endpoint of a successful first publish.
func registerHappyPath(t *testing.T, mux *http.ServeMux, branch string) {
	t.Helper()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"hyeonseo2"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers/pulls", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `[]`)
		case http.MethodPost:
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["draft"] != true {
				t.Error("PR must be created as draft")
			}
			if body["head"] != "hyeonseo2:"+branch {
				t.Errorf("unexpected head: %v", body["head"])
			}
			if body["base"] != "main" {
				t.Errorf("unexpected base: %v", body["base"])
			}
			if !strings.Contains(body["title"].(string), "[i18n-KO]") {
				t.Errorf("unexpected title: %v", body["title"])
			}
			fmt.Fprint(w, `{"number":123,"html_url":"https://github.com/huggingface/transformers/pull/123"}`)
		}
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/git/ref/heads/"+branch, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/repos/huggingface/transformers/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref":"refs/heads/main","object":{"sha":"base-sha"}}`)
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/git/refs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["ref"] != "refs/heads/"+branch {
			t.Errorf("unexpected ref: %v", body["ref"])
		}
		if body["sha"] != "base-sha" {
			t.Errorf("branch should start at the upstream head, got %v", body["sha"])
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"ref":"refs/heads/%s"}`, branch)
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/contents/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			fmt.Fprint(w, `{"content":{"path":"x"},"commit":{"sha":"new-commit-sha"}}`)
		}
	})
}

func TestPublish_Success(t *testing.T) {
	branch := "ko-model-doc-bert"
	mux := http.NewServeMux()
	registerHappyPath(t, mux, branch)
	p := newTestPublisher(t, mux)

	result := p.Publish(context.Background(), Request{
		Project:    transformersConfig(t),
		Language:   "ko",
		SourcePath: "docs/source/en/model_doc/bert.md",
		TargetPath: "docs/source/ko/model_doc/bert.md",
		Content:    "# BERT\n\n번역본\n",
	})

	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	if result.PRNumber != 123 {
		t.Errorf("PRNumber = %d", result.PRNumber)
	}
	if result.Branch != branch {
		t.Errorf("Branch = %q", result.Branch)
	}
	want := []string{StepAuthenticate, StepResolveRepository, StepEnsureBranch, StepCommitFile, StepCreatePR}
	if len(result.CompletedSteps) != len(want) {
		t.Fatalf("steps = %v", result.CompletedSteps)
	}
	for i, step := range want {
		if result.CompletedSteps[i] != step {
			t.Errorf("step %d = %q, want %q", i, result.CompletedSteps[i], step)
		}
	}
	if result.CommitSHA != "new-commit-sha" {
		t.Errorf("CommitSHA = %q", result.CommitSHA)
	}
	if len(result.FilesChanged) != 1 || result.FilesChanged[0] != "docs/source/ko/model_doc/bert.md" {
		t.Errorf("FilesChanged = %v", result.FilesChanged)
	}
}

func TestPublish_WithToctree(t *testing.T) {
	branch := "ko-quicktour"
	mux := http.NewServeMux()
	registerHappyPath(t, mux, branch)
	p := newTestPublisher(t, mux)

	result := p.Publish(context.Background(), Request{
		Project:        transformersConfig(t),
		Language:       "ko",
		SourcePath:     "docs/source/en/quicktour.md",
		TargetPath:     "docs/source/ko/quicktour.md",
		Content:        "# 빠른 둘러보기\n",
		ToctreePath:    "docs/source/ko/_toctree.yml",
		ToctreeContent: "- title: 빠른 둘러보기\n  local: quicktour\n",
	})

	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	found := false
	for _, step := range result.CompletedSteps {
		if step == StepCommitToctree {
			found = true
		}
	}
	if !found {
		t.Errorf("toctree commit missing from steps: %v", result.CompletedSteps)
	}
}

func TestPublish_ExistingPRIsReused(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"hyeonseo2"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("no new PR should be created, got %s", r.Method)
		}
		fmt.Fprint(w, `[{"number":77,"html_url":"https://github.com/huggingface/transformers/pull/77"}]`)
	})
	p := newTestPublisher(t, mux)

	result := p.Publish(context.Background(), Request{
		Project:    transformersConfig(t),
		Language:   "ko",
		SourcePath: "docs/source/en/model_doc/bert.md",
		TargetPath: "docs/source/ko/model_doc/bert.md",
		Content:    "# BERT\n",
	})

	if result.Status != StatusSuccess || !result.AlreadyExists {
		t.Fatalf("expected reuse of existing PR: %+v", result)
	}
	if result.PRNumber != 77 {
		t.Errorf("PRNumber = %d", result.PRNumber)
	}
}

func TestPublish_BadTokenFailsWithoutSteps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Bad credentials"}`)
	})
	p := newTestPublisher(t, mux)

	result := p.Publish(context.Background(), Request{
		Project:    transformersConfig(t),
		Language:   "ko",
		SourcePath: "docs/source/en/index.md",
		TargetPath: "docs/source/ko/index.md",
		Content:    "# 소개\n",
	})

	if result.Status != StatusError {
		t.Errorf("status = %s", result.Status)
	}
	if len(result.CompletedSteps) != 0 {
		t.Errorf("no steps should complete: %v", result.CompletedSteps)
	}
	if !strings.Contains(result.Error, "authentication failed") {
		t.Errorf("error should name authentication: %q", result.Error)
	}
}

func TestPublish_PRCreationFailureIsPartial(t *testing.T) {
	branch := "ko-model-doc-bert"
	mux := http.NewServeMux()
	registerHappyPath(t, mux, branch)

	// Override the pulls endpoint: listing works, creation fails.
	failing := http.NewServeMux()
	failing.HandleFunc("/repos/huggingface/transformers/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `[]`)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed"}`)
	})
	failing.HandleFunc("/", mux.ServeHTTP)
	srv := httptest.NewServer(failing)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base
	p := NewWithClient(client, zerolog.Nop())

	result := p.Publish(context.Background(), Request{
		Project:    transformersConfig(t),
		Language:   "ko",
		SourcePath: "docs/source/en/model_doc/bert.md",
		TargetPath: "docs/source/ko/model_doc/bert.md",
		Content:    "# BERT\n",
	})

	if result.Status != StatusPartialSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
	// The branch and commit survived; a rerun can pick up from there.
	wantDone := []string{StepAuthenticate, StepResolveRepository, StepEnsureBranch, StepCommitFile}
	if len(result.CompletedSteps) != len(wantDone) {
		t.Errorf("steps = %v", result.CompletedSteps)
	}
	if result.Error == "" {
		t.Error("partial result must carry the error")
	}
}

func TestPublish_ExistingBranchReused(t *testing.T) {
	branch := "ko-model-doc-bert"
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"hyeonseo2"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/huggingface/transformers/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `{"number":5,"html_url":"https://github.com/huggingface/transformers/pull/5"}`)
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/git/ref/heads/"+branch, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"ref":"refs/heads/%s","object":{"sha":"existing-sha"}}`, branch)
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/git/refs", func(w http.ResponseWriter, r *http.Request) {
		t.Error("existing branch must not be recreated")
	})
	mux.HandleFunc("/repos/hyeonseo2/transformers/contents/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			// The file already exists on the branch from a previous run.
			fmt.Fprint(w, `{"type":"file","path":"docs/source/ko/model_doc/bert.md","sha":"old-file-sha"}`)
		case http.MethodPut:
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["sha"] != "old-file-sha" {
				t.Errorf("update must carry the existing blob sha, got %v", body["sha"])
			}
			fmt.Fprint(w, `{"content":{"path":"x"}}`)
		}
	})
	p := newTestPublisher(t, mux)

	result := p.Publish(context.Background(), Request{
		Project:    transformersConfig(t),
		Language:   "ko",
		SourcePath: "docs/source/en/model_doc/bert.md",
		TargetPath: "docs/source/ko/model_doc/bert.md",
		Content:    "# BERT v2\n",
	})

	if result.Status != StatusSuccess {
		t.Fatalf("status = %s, error = %s", result.Status, result.Error)
	}
}

func TestAnalyzeReferencePR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/huggingface/transformers/pulls/24968", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"[i18n-KO] Translated tflite.md to Korean","body":"Part of #20179","labels":[{"name":"i18n"}]}`)
	})
	p := newTestPublisher(t, mux)

	ref, err := p.AnalyzeReferencePR(context.Background(), "https://github.com/huggingface/transformers/pull/24968")
	if err != nil {
		t.Fatalf("AnalyzeReferencePR: %v", err)
	}
	if !strings.Contains(ref.Title, "[i18n-KO]") {
		t.Errorf("title = %q", ref.Title)
	}
	if len(ref.Labels) != 1 || ref.Labels[0] != "i18n" {
		t.Errorf("labels = %v", ref.Labels)
	}

	if _, err := p.AnalyzeReferencePR(context.Background(), "not-a-pr-url"); err == nil {
		t.Error("expected error for malformed URL")
	}
}
