// Package workflow runs the end-to-end translation pipeline: fetch,
// protect, prompt, translate, validate, save, and optionally publish.
// Each file is processed in isolation so one failure never aborts a
// batch.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyeonseo2/hf-translation-hub/internal/extract"
	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
	"github.com/hyeonseo2/hf-translation-hub/internal/prompt"
	"github.com/hyeonseo2/hf-translation-hub/internal/save"
	"github.com/hyeonseo2/hf-translation-hub/internal/translator"
	"github.com/hyeonseo2/hf-translation-hub/internal/validate"
)

// File result statuses.
const (
	StatusCompleted = "completed"
	StatusReused    = "reused"
	StatusFailed    = "failed"
)

// Options tunes one pipeline run.
type Options struct {
	// Root is the documentation repository checkout.
	Root string
	// Language is the target language code.
	Language string
	// ServiceConfig is passed through to the translation backend.
	ServiceConfig translator.Config
	// Retry bounds the per-call retry loop.
	Retry translator.RetryPolicy
	// GateOnValidation fails a file whose validation report is invalid
	// instead of saving it. Off by default: a saved draft with issues
	// is more useful than no draft, and the report travels with the
	// result either way.
	GateOnValidation bool
	// PublishPR opens a draft pull request after saving.
	PublishPR bool
	// ForceRetranslate ignores previously recorded runs for identical
	// source content.
	ForceRetranslate bool
	// AdditionalInstruction is appended to the prompt verbatim.
	AdditionalInstruction string
	// Concurrency caps parallel files in a batch. Defaults to 2.
	Concurrency int
}

// FileResult is the outcome for a single document.
type FileResult struct {
	Path       string           `json:"path"`
	Status     string           `json:"status"`
	SavedPath  string           `json:"saved_path,omitempty"`
	BackupPath string           `json:"backup_path,omitempty"`
	Validation *validate.Report `json:"validation,omitempty"`
	PR         *ghpub.Result    `json:"pr,omitempty"`
	Service    string           `json:"service,omitempty"`
	Duration   time.Duration    `json:"duration"`
	Error      string           `json:"error,omitempty"`
}

// BatchResult aggregates a multi-file run.
type BatchResult struct {
	Results   []FileResult `json:"results"`
	Completed int          `json:"completed"`
	Reused    int          `json:"reused"`
	Failed    int          `json:"failed"`
}

// Publisher is the slice of ghpub the engine needs.
type Publisher interface {
	Publish(ctx context.Context, req ghpub.Request) *ghpub.Result
}

// Engine wires the pipeline stages together. Limiter is shared across
// all files of a batch so concurrent workers respect one API budget.
type Engine struct {
	Project   *project.Config
	Service   translator.Service
	Ledger    *ledger.Ledger
	Publisher Publisher
	Limiter   *rate.Limiter
	Log       zerolog.Logger
}

// RunFile processes one document end to end.
func (e *Engine) RunFile(ctx context.Context, filePath string, opts Options) FileResult {
	start := time.Now()
	result := FileResult{Path: filePath, Status: StatusFailed}
	defer func() { result.Duration = time.Since(start) }()

	log := e.Log.With().Str("file", filePath).Str("lang", opts.Language).Logger()

	fail := func(err error) FileResult {
		result.Error = err.Error()
		log.Error().Err(err).Msg("translation failed")
		e.recordRun(&ledger.Run{
			Project:  e.Project.Name,
			FilePath: filePath,
			Language: opts.Language,
			Service:  e.Service.Name(),
			Status:   ledger.StatusFailed,
		})
		return result
	}

	if !e.Project.Supports(opts.Language) {
		return fail(fmt.Errorf("%w: %q", project.ErrUnsupportedLanguage, opts.Language))
	}

	absPath := filepath.Join(opts.Root, filepath.FromSlash(filePath))
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return fail(fmt.Errorf("failed to read source: %w", err))
	}
	content := string(raw)
	sourceChecksum := save.Checksum(content)

	if !opts.ForceRetranslate {
		if prior := e.reusableRun(filePath, sourceChecksum, opts); prior != nil {
			log.Info().Str("run", prior.ID).Msg("source unchanged, reusing earlier translation")
			result.Status = StatusReused
			result.SavedPath = prior.SavedPath
			result.Service = prior.Service
			return result
		}
	}

	payload := extract.Protect(content)
	log.Debug().Int("protected_blocks", len(payload.Blocks)).Msg("protected structural blocks")

	glossary := e.glossary(opts.Language)
	built := prompt.Build(prompt.Request{
		TargetLanguage:        opts.Language,
		Content:               payload.Stripped,
		AdditionalInstruction: opts.AdditionalInstruction,
		Project:               e.Project.Name,
		FilePath:              filePath,
		GlossaryTerms:         glossary,
	}, e.Project)

	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	translated, err := translator.TranslateWithRetry(ctx, e.Service, opts.ServiceConfig, translator.Request{
		Prompt:     built.Text,
		Text:       payload.Stripped,
		TargetLang: opts.Language,
		FilePath:   filePath,
	}, opts.Retry, log)
	if err != nil {
		return fail(err)
	}
	result.Service = translated.ServiceName

	if missing := payload.MissingTokens(translated.TranslatedText); len(missing) > 0 {
		return fail(fmt.Errorf("translation lost protected blocks %v", missing))
	}
	restored := payload.Restore(translated.TranslatedText)

	report := validate.Check(validate.Input{
		Original:       content,
		Translated:     restored,
		TargetLanguage: opts.Language,
		Glossary:       glossary,
	})
	result.Validation = report
	if !report.IsValid {
		log.Warn().Interface("issues", report.Issues).Msg("validation found problems")
		if opts.GateOnValidation {
			return fail(fmt.Errorf("validation failed with %d issue(s)", len(report.Issues)))
		}
	}

	saved, err := save.Write(save.Request{
		SourcePath: filePath,
		Content:    restored,
		Language:   opts.Language,
		Root:       opts.Root,
		Service:    translated.ServiceName,
		Model:      translated.Metadata["model"],
	})
	if err != nil {
		return fail(err)
	}
	result.SavedPath = saved.SavedPath
	result.BackupPath = saved.BackupPath

	run := &ledger.Run{
		Project:        e.Project.Name,
		FilePath:       filePath,
		Language:       opts.Language,
		Service:        translated.ServiceName,
		Model:          translated.Metadata["model"],
		SourceChecksum: sourceChecksum,
		OutputChecksum: saved.Checksum,
		QualityScore:   report.QualityScore,
		IsValid:        report.IsValid,
		Status:         ledger.StatusSaved,
		SavedPath:      saved.SavedPath,
	}
	e.recordRun(run)

	if opts.PublishPR && e.Publisher != nil {
		if e.Limiter != nil {
			if err := e.Limiter.Wait(ctx); err != nil {
				return fail(err)
			}
		}
		pr := e.publish(ctx, filePath, restored, opts)
		result.PR = pr
		if pr.Status == ghpub.StatusError {
			result.Error = pr.Error
			return result
		}
		if pr.Status == ghpub.StatusSuccess && run.ID != "" {
			e.markPublished(run.ID)
		}
	}

	result.Status = StatusCompleted
	log.Info().
		Str("saved", saved.SavedPath).
		Float64("quality", report.QualityScore).
		Dur("took", time.Since(start)).
		Msg("translation complete")
	return result
}

// RunBatch processes files concurrently with failure isolation. The
// returned error is only ever a context error; per-file failures live in
// the results.
func (e *Engine) RunBatch(ctx context.Context, files []string, opts Options) (*BatchResult, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{Path: file, Status: StatusFailed, Error: err.Error()}
				return nil
			}
			results[i] = e.RunFile(gctx, file, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchResult{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusCompleted:
			batch.Completed++
		case StatusReused:
			batch.Reused++
		default:
			batch.Failed++
		}
	}
	return batch, nil
}

// reusableRun returns a prior successful run of this file for identical
// source content whose saved output still exists on disk.
func (e *Engine) reusableRun(filePath, sourceChecksum string, opts Options) *ledger.Run {
	if e.Ledger == nil {
		return nil
	}
	prior, err := e.Ledger.LatestForChecksum(filePath, sourceChecksum, opts.Language)
	if err != nil || prior.SavedPath == "" {
		return nil
	}
	if _, err := os.Stat(prior.SavedPath); err != nil {
		return nil
	}
	return prior
}

func (e *Engine) glossary(language string) map[string]string {
	if e.Ledger == nil {
		return nil
	}
	terms, err := e.Ledger.GlossaryFor(language)
	if err != nil {
		e.Log.Warn().Err(err).Msg("failed to load glossary")
		return nil
	}
	return terms
}

func (e *Engine) recordRun(run *ledger.Run) {
	if e.Ledger == nil {
		return
	}
	if err := e.Ledger.RecordRun(run); err != nil {
		e.Log.Warn().Err(err).Msg("failed to record run")
	}
}

func (e *Engine) markPublished(runID string) {
	if err := e.Ledger.MarkPublished(runID); err != nil {
		e.Log.Warn().Err(err).Str("run", runID).Msg("failed to mark run published")
	}
}

// publish builds the PR request, including the toctree update when the
// local checkout carries one.
func (e *Engine) publish(ctx context.Context, filePath, content string, opts Options) *ghpub.Result {
	req := ghpub.Request{
		Project:    e.Project,
		Language:   opts.Language,
		SourcePath: filePath,
		TargetPath: filepath.ToSlash(save.TargetPath(filePath, opts.Language)),
		Content:    content,
	}
	if tocPath, tocContent, ok := e.updatedToctree(filePath, content, opts); ok {
		req.ToctreePath = tocPath
		req.ToctreeContent = tocContent
	}
	return e.Publisher.Publish(ctx, req)
}

// docTitle returns the first top-level heading of a document.
func docTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// tocLocal derives the _toctree.yml local for a source path, e.g.
// docs/source/en/model_doc/bert.md becomes model_doc/bert.
func tocLocal(sourcePath string) string {
	rel := sourcePath
	if i := strings.Index(rel, "/en/"); i >= 0 {
		rel = rel[i+len("/en/"):]
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}
