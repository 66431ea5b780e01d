// Package postprocess removes common LLM artifacts from translation output.
//
// It is applied to the raw text returned by any LLM-backed service before
// the result flows into placeholder restoration and validation.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text and returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Markdown fence unwrapping (the prompt asks for a ```md body; some
//     models echo the fence around the whole document)
//  4. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = unwrapMarkdownFence(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Anchored to the start and requiring a colon to
// reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:complete |translated )?(?:translation|markdown|document|file)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:translated )?(?:translation|markdown file|document)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:complete |translated )?(?:translation|markdown|document)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: markdown fence unwrap ---

// unwrapMarkdownFence strips a single outer ```md / ```markdown / ``` fence
// when the model wrapped the whole document in one. Inner fences belong to
// the document and are left alone.
func unwrapMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)

	var opener string
	for _, candidate := range []string{"```md\n", "```markdown\n", "```\n"} {
		if strings.HasPrefix(trimmed, candidate) {
			opener = candidate
			break
		}
	}
	if opener == "" || !strings.HasSuffix(trimmed, "```") || len(trimmed) < len(opener)+3 {
		return text
	}

	body := trimmed[len(opener) : len(trimmed)-len("```")]

	// An unbalanced fence count means the trailing ``` closes an inner
	// block, not the wrapper.
	if strings.Count(body, "```")%2 != 0 {
		return text
	}
	return strings.TrimSpace(body)
}

// --- Phase 4: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the
// entire text is wrapped in them (a common LLM artifact).
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
