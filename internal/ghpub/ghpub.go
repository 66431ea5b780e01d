// Package ghpub publishes finished translations as draft pull requests
// against the upstream documentation repository, committing through the
// contributor's fork.
package ghpub

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/hyeonseo2/hf-translation-hub/internal/project"
)

// Publish step names, recorded in order as they complete.
const (
	StepAuthenticate      = "authenticate"
	StepResolveRepository = "resolve_repository"
	StepEnsureBranch      = "ensure_branch"
	StepCommitFile        = "commit_file"
	StepCommitToctree     = "commit_toctree"
	StepCreatePR          = "create_pr"
)

// Publish result statuses.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusError          = "error"
)

// Request describes one translation to publish.
type Request struct {
	Project *project.Config
	// Language is the target language code.
	Language string
	// SourcePath is the English file path relative to the repo root.
	SourcePath string
	// TargetPath is the translated file path relative to the repo root.
	TargetPath string
	// Content is the translated document to commit.
	Content string
	// ToctreePath and ToctreeContent, when set, are committed alongside
	// the document so the table of contents stays in sync.
	ToctreePath    string
	ToctreeContent string
}

// Result reports what Publish managed to do. CompletedSteps always lists
// the steps that finished, so a partial failure is resumable: rerunning
// with the same request reuses the branch and skips already-committed
// content.
type Result struct {
	Status         string   `json:"status"`
	PRURL          string   `json:"pr_url,omitempty"`
	PRNumber       int      `json:"pr_number,omitempty"`
	Branch         string   `json:"branch"`
	CommitSHA      string   `json:"commit_sha,omitempty"`
	FilesChanged   []string `json:"files_changed,omitempty"`
	CompletedSteps []string `json:"completed_steps"`
	AlreadyExists  bool     `json:"already_exists,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ReferencePR is the metadata pulled from a project's reference pull
// request, used to mirror its conventions.
type ReferencePR struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

// Publisher wraps an authenticated GitHub client.
type Publisher struct {
	client *github.Client
	log    zerolog.Logger
}

// New builds a Publisher from a personal access token.
func New(ctx context.Context, token string, log zerolog.Logger) *Publisher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Publisher{
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
		log:    log,
	}
}

// NewWithClient builds a Publisher around an existing client.
func NewWithClient(client *github.Client, log zerolog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// BranchName derives the deterministic branch for a translation. The
// same file and language always map to the same branch, which is what
// makes publishing idempotent.
func BranchName(language, sourcePath string) string {
	rel := sourcePath
	if i := strings.Index(rel, "/en/"); i >= 0 {
		rel = rel[i+len("/en/"):]
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	rel = strings.NewReplacer("/", "-", "_", "-", ".", "-").Replace(rel)
	return language + "-" + rel
}

// PRTitle follows the upstream i18n convention, e.g.
// "[i18n-KO] Translated `model_doc/bert.md` to Korean".
func PRTitle(language, sourcePath string) string {
	rel := sourcePath
	if i := strings.Index(rel, "/en/"); i >= 0 {
		rel = rel[i+len("/en/"):]
	}
	return fmt.Sprintf("[i18n-%s] Translated `%s` to %s",
		strings.ToUpper(language), rel, project.LanguageName(language))
}

// CommitMessage follows the docs commit convention.
func CommitMessage(language, sourcePath string) string {
	return fmt.Sprintf("docs: %s: %s", language, path.Base(sourcePath))
}

func prBody(cfg *project.Config, language, sourcePath string) string {
	var sb strings.Builder
	sb.WriteString("<!-- PR generated by hf-translation-hub -->\n\n")
	fmt.Fprintf(&sb, "Translated `%s` to %s.\n", sourcePath, project.LanguageName(language))
	if issue, ok := cfg.IssueIDs[language]; ok && issue != "" {
		fmt.Fprintf(&sb, "\nPart of #%s.\n", issue)
	}
	if cfg.ReferencePRURL != "" {
		fmt.Fprintf(&sb, "\nConventions follow %s.\n", cfg.ReferencePRURL)
	}
	sb.WriteString("\n## Checklist\n\n")
	sb.WriteString("- [x] Document translated\n")
	sb.WriteString("- [x] Code blocks, links, and front matter preserved\n")
	sb.WriteString("- [ ] Reviewed by a native speaker\n")
	return sb.String()
}

var prURLRe = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

var prTitleRe = regexp.MustCompile("^\\[i18n-([A-Za-z]+)\\] Translated `([^`]+)`")

// InReviewPaths lists the English source paths that already have an open
// i18n pull request upstream for the target language, keyed the way the
// discovery scanner keys files. Feeding this into a scan keeps documents
// someone is already translating out of the candidate list.
func (p *Publisher) InReviewPaths(ctx context.Context, cfg *project.Config, language string) (map[string]bool, error) {
	upstream := strings.SplitN(cfg.RepoPath(), "/", 2)
	if len(upstream) != 2 {
		return nil, fmt.Errorf("invalid upstream repository: %s", cfg.RepoPath())
	}
	prefix := fmt.Sprintf("[i18n-%s]", strings.ToUpper(language))

	paths := make(map[string]bool)
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, upstream[0], upstream[1], opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list open pull requests: %w", err)
		}
		for _, pr := range prs {
			title := pr.GetTitle()
			if !strings.HasPrefix(title, prefix) {
				continue
			}
			m := prTitleRe.FindStringSubmatch(title)
			if m == nil {
				continue
			}
			paths[cfg.SourceDir()+"/"+m[2]] = true
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return paths, nil
}

// AnalyzeReferencePR fetches a project's reference PR so its title and
// label conventions can be reported to callers.
func (p *Publisher) AnalyzeReferencePR(ctx context.Context, prURL string) (*ReferencePR, error) {
	m := prURLRe.FindStringSubmatch(prURL)
	if m == nil {
		return nil, fmt.Errorf("unrecognized pull request URL: %s", prURL)
	}
	number, _ := strconv.Atoi(m[3])
	pr, _, err := p.client.PullRequests.Get(ctx, m[1], m[2], number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference PR: %w", err)
	}
	ref := &ReferencePR{
		Title: pr.GetTitle(),
		Body:  pr.GetBody(),
	}
	for _, label := range pr.Labels {
		ref.Labels = append(ref.Labels, label.GetName())
	}
	return ref, nil
}

// Publish pushes the translated document to a fork branch and opens a
// draft PR against upstream. Every step that completes is recorded even
// when a later one fails.
func (p *Publisher) Publish(ctx context.Context, req Request) *Result {
	branch := BranchName(req.Language, req.SourcePath)
	result := &Result{Status: StatusError, Branch: branch, CompletedSteps: []string{}}

	fail := func(err error) *Result {
		result.Error = err.Error()
		if len(result.CompletedSteps) > 0 {
			result.Status = StatusPartialSuccess
		}
		p.log.Error().Err(err).Str("branch", branch).Msg("publish failed")
		return result
	}
	done := func(step string) {
		result.CompletedSteps = append(result.CompletedSteps, step)
		p.log.Debug().Str("step", step).Str("branch", branch).Msg("publish step complete")
	}

	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return fail(fmt.Errorf("authentication failed (check the GitHub token): %w", err))
	}
	forkOwner := user.GetLogin()
	done(StepAuthenticate)

	upstream := strings.SplitN(req.Project.RepoPath(), "/", 2)
	if len(upstream) != 2 {
		return fail(fmt.Errorf("invalid upstream repository: %s", req.Project.RepoPath()))
	}
	upstreamOwner, repo := upstream[0], upstream[1]

	repoInfo, _, err := p.client.Repositories.Get(ctx, upstreamOwner, repo)
	if err != nil {
		return fail(fmt.Errorf("failed to resolve %s/%s: %w", upstreamOwner, repo, err))
	}
	baseBranch := repoInfo.GetDefaultBranch()
	done(StepResolveRepository)

	// An open PR for this head means the work is already published.
	existing, _, err := p.client.PullRequests.List(ctx, upstreamOwner, repo, &github.PullRequestListOptions{
		Head:  forkOwner + ":" + branch,
		State: "open",
	})
	if err == nil && len(existing) > 0 {
		result.Status = StatusSuccess
		result.AlreadyExists = true
		result.PRURL = existing[0].GetHTMLURL()
		result.PRNumber = existing[0].GetNumber()
		return result
	}

	if err := p.ensureBranch(ctx, forkOwner, upstreamOwner, repo, branch, baseBranch); err != nil {
		return fail(err)
	}
	done(StepEnsureBranch)

	message := CommitMessage(req.Language, req.SourcePath)
	sha, err := p.commitFile(ctx, forkOwner, repo, branch, req.TargetPath, req.Content, message)
	if err != nil {
		return fail(fmt.Errorf("failed to commit %s: %w", req.TargetPath, err))
	}
	result.CommitSHA = sha
	result.FilesChanged = append(result.FilesChanged, req.TargetPath)
	done(StepCommitFile)

	if req.ToctreePath != "" {
		tocMessage := fmt.Sprintf("docs: %s: update _toctree.yml", req.Language)
		sha, err := p.commitFile(ctx, forkOwner, repo, branch, req.ToctreePath, req.ToctreeContent, tocMessage)
		if err != nil {
			return fail(fmt.Errorf("failed to commit toctree: %w", err))
		}
		result.CommitSHA = sha
		result.FilesChanged = append(result.FilesChanged, req.ToctreePath)
		done(StepCommitToctree)
	}

	pr, _, err := p.client.PullRequests.Create(ctx, upstreamOwner, repo, &github.NewPullRequest{
		Title:               github.String(PRTitle(req.Language, req.SourcePath)),
		Head:                github.String(forkOwner + ":" + branch),
		Base:                github.String(baseBranch),
		Body:                github.String(prBody(req.Project, req.Language, req.SourcePath)),
		Draft:               github.Bool(true),
		MaintainerCanModify: github.Bool(true),
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create pull request: %w", err))
	}
	done(StepCreatePR)

	result.Status = StatusSuccess
	result.PRURL = pr.GetHTMLURL()
	result.PRNumber = pr.GetNumber()
	p.log.Info().Str("pr", result.PRURL).Msg("draft pull request created")
	return result
}

// ensureBranch creates the work branch on the fork from the upstream
// default branch head. An existing branch is reused as-is.
func (p *Publisher) ensureBranch(ctx context.Context, forkOwner, upstreamOwner, repo, branch, baseBranch string) error {
	if _, resp, err := p.client.Git.GetRef(ctx, forkOwner, repo, "heads/"+branch); err == nil {
		return nil
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to check branch %s: %w", branch, err)
	}

	base, _, err := p.client.Git.GetRef(ctx, upstreamOwner, repo, "heads/"+baseBranch)
	if err != nil {
		return fmt.Errorf("failed to resolve base branch %s: %w", baseBranch, err)
	}
	_, _, err = p.client.Git.CreateRef(ctx, forkOwner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: base.Object.SHA},
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

// commitFile creates or updates one file on the branch and returns the
// resulting commit SHA.
func (p *Publisher) commitFile(ctx context.Context, owner, repo, branch, filePath, content, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	var commit *github.RepositoryContentResponse
	current, _, resp, err := p.client.Repositories.GetContents(ctx, owner, repo, filePath, &github.RepositoryContentGetOptions{Ref: branch})
	switch {
	case err == nil && current != nil:
		opts.SHA = current.SHA
		commit, _, err = p.client.Repositories.UpdateFile(ctx, owner, repo, filePath, opts)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		commit, _, err = p.client.Repositories.CreateFile(ctx, owner, repo, filePath, opts)
	default:
		return "", err
	}
	if err != nil {
		return "", err
	}
	return commit.GetSHA(), nil
}
