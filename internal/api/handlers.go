package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hyeonseo2/hf-translation-hub/internal/discovery"
	"github.com/hyeonseo2/hf-translation-hub/internal/extract"
	"github.com/hyeonseo2/hf-translation-hub/internal/ghpub"
	"github.com/hyeonseo2/hf-translation-hub/internal/ledger"
	"github.com/hyeonseo2/hf-translation-hub/internal/project"
	"github.com/hyeonseo2/hf-translation-hub/internal/prompt"
	"github.com/hyeonseo2/hf-translation-hub/internal/save"
	"github.com/hyeonseo2/hf-translation-hub/internal/validate"
)

// resolveProject maps registry errors onto envelope errors.
func (s *Server) resolveProject(w http.ResponseWriter, key, language string) (*project.Config, bool) {
	cfg, err := s.registry.Resolve(key, language)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrProjectNotFound):
			respondError(w, http.StatusNotFound, CodeNotFound, err.Error())
		case errors.Is(err, project.ErrUnsupportedLanguage):
			respondError(w, http.StatusBadRequest, CodeConfiguration, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		}
		return nil, false
	}
	return cfg, true
}

func (s *Server) repoRoot(override string) string {
	if override != "" {
		return override
	}
	return s.root
}

func (s *Server) handleSearchFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project         string `json:"project"`
		Language        string `json:"language"`
		Root            string `json:"root,omitempty"`
		MaxFiles        int    `json:"max_files,omitempty"`
		IncludeUpToDate bool   `json:"include_up_to_date,omitempty"`
		SkipInReview    bool   `json:"skip_in_review,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	cfg, ok := s.resolveProject(w, req.Project, req.Language)
	if !ok {
		return
	}

	var inReview map[string]bool
	if req.SkipInReview {
		lister, ok := s.publisher.(InReviewLister)
		if !ok {
			respondError(w, http.StatusServiceUnavailable, CodeConfiguration,
				"skip_in_review needs GitHub publishing configured (missing token)")
			return
		}
		var err error
		inReview, err = lister.InReviewPaths(r.Context(), cfg, req.Language)
		if err != nil {
			respondError(w, http.StatusBadGateway, CodeService, err.Error())
			return
		}
	}

	result, err := discovery.Scan(cfg, discovery.Options{
		Root:            s.repoRoot(req.Root),
		Language:        req.Language,
		MaxFiles:        req.MaxFiles,
		IncludeUpToDate: req.IncludeUpToDate,
		InReview:        inReview,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleGetFileContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath        string `json:"file_path"`
		Root            string `json:"root,omitempty"`
		IncludeMetadata bool   `json:"include_metadata,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.FilePath == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "file_path is required")
		return
	}

	path := filepath.Join(s.repoRoot(req.Root), filepath.FromSlash(req.FilePath))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, CodeNotFound, "file not found: "+req.FilePath)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	content := string(data)
	payload := extract.Protect(content)
	resp := map[string]interface{}{
		"file_path":         req.FilePath,
		"content":           content,
		"processed_content": payload.Stripped,
		"removed_blocks":    payload.Blocks,
	}
	if req.IncludeMetadata {
		resp["metadata"] = map[string]interface{}{
			"size_bytes":       len(data),
			"checksum":         save.Checksum(content),
			"protected_blocks": len(payload.Blocks),
		}
	}
	respond(w, http.StatusOK, resp)
}

func (s *Server) handleGeneratePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project               string `json:"project"`
		Language              string `json:"language"`
		Content               string `json:"content"`
		FilePath              string `json:"file_path,omitempty"`
		AdditionalInstruction string `json:"additional_instruction,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "content is required")
		return
	}
	cfg, ok := s.resolveProject(w, req.Project, req.Language)
	if !ok {
		return
	}

	payload := extract.Protect(req.Content)
	built := prompt.Build(prompt.Request{
		TargetLanguage:        req.Language,
		Content:               payload.Stripped,
		AdditionalInstruction: req.AdditionalInstruction,
		Project:               req.Project,
		FilePath:              req.FilePath,
		GlossaryTerms:         s.glossary(req.Language),
	}, cfg)

	respond(w, http.StatusOK, map[string]interface{}{
		"prompt":           built.Text,
		"context":          built.Context,
		"guidelines":       built.Guidelines,
		"stripped_content": payload.Stripped,
		"removed_blocks":   payload.Blocks,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Original   string            `json:"original"`
		Translated string            `json:"translated"`
		Language   string            `json:"language"`
		Glossary   map[string]string `json:"glossary,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.Original == "" {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "original is required")
		return
	}

	glossary := req.Glossary
	if glossary == nil {
		glossary = s.glossary(req.Language)
	}
	report := validate.Check(validate.Input{
		Original:       req.Original,
		Translated:     req.Translated,
		TargetLanguage: req.Language,
		Glossary:       glossary,
	})
	respond(w, http.StatusOK, report)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project  string `json:"project"`
		Language string `json:"language"`
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
		Root     string `json:"root,omitempty"`
		Service  string `json:"service,omitempty"`
		Model    string `json:"model,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	cfg, ok := s.resolveProject(w, req.Project, req.Language)
	if !ok {
		return
	}

	result, err := save.Write(save.Request{
		SourcePath: req.FilePath,
		Content:    req.Content,
		Language:   req.Language,
		Root:       s.repoRoot(req.Root),
		Service:    req.Service,
		Model:      req.Model,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodePersistence, err.Error())
		return
	}

	if s.ledger != nil {
		run := &ledger.Run{
			Project:        cfg.Name,
			FilePath:       req.FilePath,
			Language:       req.Language,
			Service:        req.Service,
			Model:          req.Model,
			OutputChecksum: result.Checksum,
			Status:         ledger.StatusSaved,
			SavedPath:      result.SavedPath,
		}
		if err := s.ledger.RecordRun(run); err != nil {
			s.log.Warn().Err(err).Msg("failed to record run")
		}
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handleCreatePR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project  string `json:"project"`
		Language string `json:"language"`
		FilePath string `json:"file_path"`
		Content  string `json:"content,omitempty"`
		Root     string `json:"root,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if s.publisher == nil {
		respondError(w, http.StatusServiceUnavailable, CodeConfiguration, "GitHub publishing is not configured (missing token)")
		return
	}
	cfg, ok := s.resolveProject(w, req.Project, req.Language)
	if !ok {
		return
	}

	targetPath := filepath.ToSlash(save.TargetPath(req.FilePath, req.Language))
	content := req.Content
	if content == "" {
		data, err := os.ReadFile(filepath.Join(s.repoRoot(req.Root), filepath.FromSlash(targetPath)))
		if err != nil {
			respondError(w, http.StatusNotFound, CodeNotFound, "no saved translation for "+req.FilePath)
			return
		}
		content = string(data)
	}

	result := s.publisher.Publish(r.Context(), ghpub.Request{
		Project:    cfg,
		Language:   req.Language,
		SourcePath: req.FilePath,
		TargetPath: targetPath,
		Content:    content,
	})
	switch result.Status {
	case ghpub.StatusSuccess:
		respond(w, http.StatusOK, result)
	case ghpub.StatusPartialSuccess:
		respondPartial(w, result, CodeService, result.Error)
	default:
		respondError(w, http.StatusBadGateway, CodeService, result.Error)
	}
}

func (s *Server) handleProjectConfig(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("project")
	if key == "" {
		respond(w, http.StatusOK, map[string]interface{}{"projects": s.registry.Keys()})
		return
	}
	cfg, err := s.registry.Get(key)
	if err != nil {
		respondError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}

	data := map[string]interface{}{"project": cfg}
	if lang := r.URL.Query().Get("language"); lang != "" {
		if !cfg.Supports(lang) {
			respondError(w, http.StatusBadRequest, CodeConfiguration, "unsupported language: "+lang)
			return
		}
		data["language"] = map[string]string{
			"code": lang,
			"name": project.LanguageName(lang),
		}
		if issue, ok := cfg.IssueIDs[lang]; ok {
			data["tracking_issue"] = issue
		}
	}
	respond(w, http.StatusOK, data)
}

func (s *Server) glossary(language string) map[string]string {
	if s.ledger == nil {
		return nil
	}
	terms, err := s.ledger.GlossaryFor(language)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load glossary")
		return nil
	}
	return terms
}
