package plaintext

import (
	"regexp"
	"strings"
	"unicode"
)

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Paragraphs splits page text on blank lines and collapses whitespace inside
// each paragraph. Invalid UTF-8 and control characters are dropped. HTML
// input is reduced to its visible text first, one paragraph per block element.
func (e *Extractor) Paragraphs(text string) []string {
	text = strings.ToValidUTF8(text, "")
	if looksLikeHTML(text) {
		text = htmlToText(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	blocks := blankLines.Split(text, -1)
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && !unicode.IsSpace(r) {
				return -1
			}
			return r
		}, block)
		paragraph := strings.Join(strings.Fields(cleaned), " ")
		if paragraph != "" {
			out = append(out, paragraph)
		}
	}
	return out
}
