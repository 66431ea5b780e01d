// Package ledger persists translation run history and the per-language
// glossary in a local SQLite database. Runs are append-only: re-running a
// file records a new row keyed by the source checksum, so the full
// version history of every translated document stays queryable.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("ledger: not found")

// Run is one recorded translation attempt for a source file.
type Run struct {
	ID             string
	Project        string
	FilePath       string
	Language       string
	Service        string
	Model          string
	SourceChecksum string
	OutputChecksum string
	QualityScore   float64
	IsValid        bool
	Status         string
	SavedPath      string
	CreatedAt      time.Time
}

// Run statuses.
const (
	StatusTranslated = "translated"
	StatusSaved      = "saved"
	StatusPublished  = "published"
	StatusFailed     = "failed"
)

// Term is one glossary entry for a language.
type Term struct {
	Language   string
	SourceTerm string
	TargetTerm string
}

// Ledger wraps the SQLite handle.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS translation_runs (
	id              TEXT PRIMARY KEY,
	project         TEXT NOT NULL,
	file_path       TEXT NOT NULL,
	language        TEXT NOT NULL,
	service         TEXT NOT NULL,
	model           TEXT,
	source_checksum TEXT NOT NULL,
	output_checksum TEXT,
	quality_score   REAL,
	is_valid        INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	saved_path      TEXT,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_file ON translation_runs(file_path, language, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_checksum ON translation_runs(source_checksum, language);

CREATE TABLE IF NOT EXISTS glossary (
	language    TEXT NOT NULL,
	source_term TEXT NOT NULL,
	target_term TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (language, source_term)
);
`

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun appends a run row. A missing ID or timestamp is filled in.
func (l *Ledger) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(`
		INSERT INTO translation_runs
		(id, project, file_path, language, service, model, source_checksum,
		 output_checksum, quality_score, is_valid, status, saved_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.FilePath, run.Language, run.Service, run.Model,
		run.SourceChecksum, run.OutputChecksum, run.QualityScore,
		boolToInt(run.IsValid), run.Status, run.SavedPath, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run for a file and language.
func (l *Ledger) LatestRun(filePath, language string) (*Run, error) {
	row := l.db.QueryRow(`
		SELECT id, project, file_path, language, service, model, source_checksum,
		       output_checksum, quality_score, is_valid, status, saved_path, created_at
		FROM translation_runs
		WHERE file_path = ? AND language = ?
		ORDER BY created_at DESC LIMIT 1`, filePath, language)
	return scanRun(row)
}

// LatestForChecksum returns the most recent successful run of this file
// whose source checksum matches. The path constraint matters: two files
// with identical content each need their own saved output, so a run for
// one never satisfies the other.
func (l *Ledger) LatestForChecksum(filePath, sourceChecksum, language string) (*Run, error) {
	row := l.db.QueryRow(`
		SELECT id, project, file_path, language, service, model, source_checksum,
		       output_checksum, quality_score, is_valid, status, saved_path, created_at
		FROM translation_runs
		WHERE file_path = ? AND source_checksum = ? AND language = ? AND status != ?
		ORDER BY created_at DESC LIMIT 1`, filePath, sourceChecksum, language, StatusFailed)
	return scanRun(row)
}

// RunsForFile returns the full run history for a file, newest first.
func (l *Ledger) RunsForFile(filePath, language string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(`
		SELECT id, project, file_path, language, service, model, source_checksum,
		       output_checksum, quality_score, is_valid, status, saved_path, created_at
		FROM translation_runs
		WHERE file_path = ? AND language = ?
		ORDER BY created_at DESC LIMIT ?`, filePath, language, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// RecentRuns returns the newest runs across all files.
func (l *Ledger) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`
		SELECT id, project, file_path, language, service, model, source_checksum,
		       output_checksum, quality_score, is_valid, status, saved_path, created_at
		FROM translation_runs
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// MarkPublished updates a run's status after its PR was created.
func (l *Ledger) MarkPublished(runID string) error {
	res, err := l.db.Exec(`UPDATE translation_runs SET status = ? WHERE id = ?`, StatusPublished, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertTerm adds or replaces a glossary entry.
func (l *Ledger) UpsertTerm(term Term) error {
	_, err := l.db.Exec(`
		INSERT INTO glossary (language, source_term, target_term, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(language, source_term)
		DO UPDATE SET target_term = excluded.target_term, updated_at = excluded.updated_at`,
		term.Language, term.SourceTerm, term.TargetTerm, time.Now().UTC())
	return err
}

// DeleteTerm removes a glossary entry.
func (l *Ledger) DeleteTerm(language, sourceTerm string) error {
	res, err := l.db.Exec(`DELETE FROM glossary WHERE language = ? AND source_term = ?`, language, sourceTerm)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GlossaryFor returns the source→target term map for a language.
func (l *Ledger) GlossaryFor(language string) (map[string]string, error) {
	rows, err := l.db.Query(`SELECT source_term, target_term FROM glossary WHERE language = ?`, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var isValid int
	err := row.Scan(&run.ID, &run.Project, &run.FilePath, &run.Language,
		&run.Service, &run.Model, &run.SourceChecksum, &run.OutputChecksum,
		&run.QualityScore, &isValid, &run.Status, &run.SavedPath, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.IsValid = isValid != 0
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
