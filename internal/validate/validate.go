// Package validate checks a translated document against its English
// source: markdown structure, preserved links and code blocks, length
// sanity, and glossary adherence.
package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Severity levels for reported issues. Only errors make a document
// invalid; warnings lower the quality score.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one problem found in the translated document.
type Issue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Formatting summarizes the structural checks.
type Formatting struct {
	MarkdownValid    bool `json:"markdown_valid"`
	HeadersPreserved bool `json:"headers_preserved"`
	LinksPreserved   bool `json:"links_preserved"`
	CodeBlocksIntact bool `json:"code_blocks_intact"`
}

// Statistics carries the measured counts behind the checks.
type Statistics struct {
	OriginalLength   int     `json:"original_length"`
	TranslatedLength int     `json:"translated_length"`
	LengthRatio      float64 `json:"length_ratio"`
	HeaderCount      int     `json:"header_count"`
	LinkCount        int     `json:"link_count"`
	CodeBlockCount   int     `json:"code_block_count"`
}

// Report is the full validation result for one document pair.
type Report struct {
	IsValid      bool       `json:"is_valid"`
	QualityScore float64    `json:"quality_score"`
	Issues       []Issue    `json:"issues"`
	Suggestions  []string   `json:"suggestions"`
	Formatting   Formatting `json:"formatting"`
	Statistics   Statistics `json:"statistics"`
}

// Input pairs an original document with its candidate translation.
type Input struct {
	Original       string
	Translated     string
	TargetLanguage string
	Glossary       map[string]string
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// docShape is the structural fingerprint of one markdown document.
type docShape struct {
	headingLevels []int
	linkDests     []string
	codeBlocks    int
	imageDests    []string
}

func parseShape(doc string) docShape {
	source := []byte(doc)
	root := md.Parser().Parse(text.NewReader(source))

	var shape docShape
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			shape.headingLevels = append(shape.headingLevels, v.Level)
		case *ast.Link:
			shape.linkDests = append(shape.linkDests, string(v.Destination))
		case *ast.AutoLink:
			shape.linkDests = append(shape.linkDests, string(v.URL(source)))
		case *ast.Image:
			shape.imageDests = append(shape.imageDests, string(v.Destination))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			shape.codeBlocks++
		}
		return ast.WalkContinue, nil
	})
	return shape
}

// Check validates translated against original and returns a full report.
// An identity translation (translated == original) is structurally valid
// by construction and scores 1.0.
func Check(in Input) *Report {
	report := &Report{
		IsValid:      true,
		QualityScore: 1.0,
		Issues:       []Issue{},
		Suggestions:  []string{},
	}

	if strings.TrimSpace(in.Translated) == "" {
		report.addIssue(SeverityError, "empty_translation", "translated document is empty")
		report.finalize()
		return report
	}

	orig := parseShape(in.Original)
	trans := parseShape(in.Translated)

	report.Statistics = Statistics{
		OriginalLength:   len(in.Original),
		TranslatedLength: len(in.Translated),
		HeaderCount:      len(trans.headingLevels),
		LinkCount:        len(trans.linkDests),
		CodeBlockCount:   trans.codeBlocks,
	}
	if len(in.Original) > 0 {
		report.Statistics.LengthRatio = roundRatio(float64(len(in.Translated)) / float64(len(in.Original)))
	}

	report.Formatting.MarkdownValid = checkFenceBalance(report, in.Translated)
	report.Formatting.HeadersPreserved = checkHeaders(report, orig, trans)
	report.Formatting.LinksPreserved = checkLinks(report, orig, trans)
	report.Formatting.CodeBlocksIntact = checkCodeBlocks(report, orig, trans)
	checkLengthRatio(report, in)
	checkGlossary(report, in)

	report.finalize()
	return report
}

func (r *Report) addIssue(severity, code, message string) {
	r.Issues = append(r.Issues, Issue{Severity: severity, Code: code, Message: message})
}

func (r *Report) suggest(s string) {
	r.Suggestions = append(r.Suggestions, s)
}

// finalize derives IsValid and QualityScore from the collected issues.
func (r *Report) finalize() {
	score := 1.0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityError:
			r.IsValid = false
			score -= 0.25
		case SeverityWarning:
			score -= 0.1
		}
	}
	r.QualityScore = math.Max(0, roundRatio(score))
}

func checkFenceBalance(r *Report, translated string) bool {
	if strings.Count(translated, "```")%2 != 0 {
		r.addIssue(SeverityError, "unbalanced_fences", "document has an odd number of ``` fences")
		r.suggest("check for a truncated or split code block")
		return false
	}
	return true
}

func checkHeaders(r *Report, orig, trans docShape) bool {
	if len(orig.headingLevels) != len(trans.headingLevels) {
		r.addIssue(SeverityError, "header_count_mismatch",
			fmt.Sprintf("original has %d headers, translation has %d", len(orig.headingLevels), len(trans.headingLevels)))
		r.suggest("every original header should appear translated, at the same level")
		return false
	}
	for i := range orig.headingLevels {
		if orig.headingLevels[i] != trans.headingLevels[i] {
			r.addIssue(SeverityError, "header_level_mismatch",
				fmt.Sprintf("header %d changed level from H%d to H%d", i+1, orig.headingLevels[i], trans.headingLevels[i]))
			return false
		}
	}
	return true
}

func checkLinks(r *Report, orig, trans docShape) bool {
	origDests := destSet(orig.linkDests, orig.imageDests)
	transDests := destSet(trans.linkDests, trans.imageDests)

	var missing []string
	for dest := range origDests {
		if _, ok := transDests[dest]; !ok {
			missing = append(missing, dest)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		r.addIssue(SeverityError, "links_missing",
			fmt.Sprintf("link targets missing from translation: %s", strings.Join(missing, ", ")))
		r.suggest("link and image URLs must be carried over verbatim")
		return false
	}
	return true
}

func checkCodeBlocks(r *Report, orig, trans docShape) bool {
	if orig.codeBlocks != trans.codeBlocks {
		r.addIssue(SeverityError, "code_block_count_mismatch",
			fmt.Sprintf("original has %d code blocks, translation has %d", orig.codeBlocks, trans.codeBlocks))
		return false
	}
	return true
}

// Length-ratio bounds for CJK targets are looser on the low side since
// Korean and Japanese translations of English prose run shorter in bytes
// of text but longer in UTF-8 encoding; the combined effect stays within
// these bounds in practice.
const (
	minLengthRatio = 0.3
	maxLengthRatio = 3.0
)

func checkLengthRatio(r *Report, in Input) {
	if len(in.Original) == 0 || in.Translated == in.Original {
		return
	}
	ratio := float64(len(in.Translated)) / float64(len(in.Original))
	if ratio < minLengthRatio {
		r.addIssue(SeverityWarning, "translation_too_short",
			fmt.Sprintf("translation is %.0f%% of the original length", ratio*100))
		r.suggest("verify no sections were dropped")
	} else if ratio > maxLengthRatio {
		r.addIssue(SeverityWarning, "translation_too_long",
			fmt.Sprintf("translation is %.1fx the original length", ratio))
		r.suggest("check for duplicated or untranslated passages left alongside the translation")
	}
}

func checkGlossary(r *Report, in Input) {
	if len(in.Glossary) == 0 || in.Translated == in.Original {
		return
	}
	var violated []string
	for src, tgt := range in.Glossary {
		if strings.Contains(in.Original, src) && !strings.Contains(in.Translated, tgt) {
			violated = append(violated, fmt.Sprintf("%s → %s", src, tgt))
		}
	}
	if len(violated) > 0 {
		sort.Strings(violated)
		r.addIssue(SeverityWarning, "glossary_deviation",
			fmt.Sprintf("glossary terms not applied: %s", strings.Join(violated, "; ")))
		r.suggest("apply the project glossary consistently")
	}
}

func destSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, d := range list {
			set[d] = struct{}{}
		}
	}
	return set
}

func roundRatio(v float64) float64 {
	return math.Round(v*100) / 100
}
