// Package extract protects non-translatable regions of a markdown document
// (front matter, fenced code blocks, tables, directive comments) during
// translation by replacing them with numbered markers ([PH0], [PH1], …)
// that LLMs are instructed to preserve. After translation, Restore
// substitutes the markers back at their exact positions.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
)

// BlockType identifies the kind of protected region.
type BlockType string

const (
	BlockFrontMatter BlockType = "front_matter"
	BlockCode        BlockType = "code_block"
	BlockTable       BlockType = "table"
	BlockDirective   BlockType = "directive"
)

// Block is one protected region in emission order.
type Block struct {
	Type     BlockType `json:"type"`
	Original string    `json:"original_text"`
	Token    string    `json:"placeholder_token"`
}

// Payload carries a document through the translation step: the raw input,
// the stripped text handed to the translator, and the protected blocks.
type Payload struct {
	Raw      string  `json:"raw_content"`
	Stripped string  `json:"stripped_content"`
	Blocks   []Block `json:"removed_blocks"`
}

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// markdown tables: one or more consecutive |-delimited lines
	reTable = regexp.MustCompile(`(?m)(?:^[ \t]*\|[^\n]*\n?)+`)

	// directive comments: <!-- ... --> (may span lines)
	reDirective = regexp.MustCompile(`(?s)<!--.*?-->`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces every non-translatable region of doc with a numbered
// placeholder and records the originals in emission order. Front matter is
// captured first, then fenced code (so table rows inside code stay part of
// their code block), then tables, then directive comments.
func Protect(doc string) *Payload {
	p := &Payload{Raw: doc}
	text := doc
	counter := 0

	capture := func(typ BlockType) func(string) string {
		return func(match string) string {
			token := fmt.Sprintf("[PH%d]", counter)
			p.Blocks = append(p.Blocks, Block{Type: typ, Original: match, Token: token})
			counter++
			return token
		}
	}

	if fm := frontMatterPrefix(text); fm != "" {
		token := fmt.Sprintf("[PH%d]", counter)
		p.Blocks = append(p.Blocks, Block{Type: BlockFrontMatter, Original: fm, Token: token})
		counter++
		text = token + text[len(fm):]
	}

	text = reFencedCode.ReplaceAllStringFunc(text, capture(BlockCode))
	text = reTable.ReplaceAllStringFunc(text, capture(BlockTable))
	text = reDirective.ReplaceAllStringFunc(text, capture(BlockDirective))

	p.Stripped = text
	return p
}

// frontMatterPrefix returns the exact leading YAML front matter of doc,
// including its delimiters, or "" when the document has none.
func frontMatterPrefix(doc string) string {
	var matter map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader([]byte(doc)), &matter)
	if err != nil || len(rest) == len(doc) {
		return ""
	}
	return doc[:len(doc)-len(rest)]
}

// Restore substitutes [PHn] markers in translated back with the originals
// captured by Protect. A captured block may itself contain markers for
// earlier captures (a code fence inside a directive comment), so
// substitution repeats until no marker expands further. Markers with
// indices outside the captured range are left as-is; markers the
// translator dropped simply stay absent.
func (p *Payload) Restore(translated string) string {
	text := translated
	// Block i can only reference tokens with indices below i, so each
	// pass strictly shrinks the reachable set and this terminates.
	for range p.Blocks {
		next := rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
			sub := rePlaceholder.FindStringSubmatch(match)
			idx, err := strconv.Atoi(sub[1])
			if err != nil || idx < 0 || idx >= len(p.Blocks) {
				return match
			}
			return p.Blocks[idx].Original
		})
		if next == text {
			break
		}
		text = next
	}
	return text
}

// MissingTokens returns the indices of placeholders created by Protect that
// no longer appear in text. Tokens captured inside another block's original
// never surface in the stripped text, so their presence rides on the
// enclosing block and they are not reported. A non-empty result means the
// translator dropped or mangled a protected region; the validator fails
// on it.
func (p *Payload) MissingTokens(text string) []int {
	nested := p.nestedTokens()
	var missing []int
	for i, b := range p.Blocks {
		if nested[i] {
			continue
		}
		if !strings.Contains(text, b.Token) {
			missing = append(missing, i)
		}
	}
	return missing
}

// nestedTokens reports which block indices have their token embedded in a
// later block's original text.
func (p *Payload) nestedTokens() map[int]bool {
	nested := make(map[int]bool)
	for i, b := range p.Blocks {
		for j, other := range p.Blocks {
			if i == j {
				continue
			}
			if strings.Contains(other.Original, b.Token) {
				nested[i] = true
				break
			}
		}
	}
	return nested
}

// CountByType returns how many protected blocks of the given type were
// captured.
func (p *Payload) CountByType(typ BlockType) int {
	n := 0
	for _, b := range p.Blocks {
		if b.Type == typ {
			n++
		}
	}
	return n
}

// TokenCount counts [PHn] markers present in text.
func TokenCount(text string) int {
	return len(rePlaceholder.FindAllString(text, -1))
}

// InstructionHint returns a sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Preserve all [PHn] markers exactly as they appear; do not translate, move, or remove them."
}
