package chunking

import (
	"regexp"
	"strings"
)

const (
	minParagraphChars = 10
	maxParagraphChars = 1000
)

var defaultNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)contest`),
	regexp.MustCompile(`(?i)enter to win`),
	regexp.MustCompile(`(?i)follow us`),
	regexp.MustCompile(`(?i)terms-and-conditions`),
	regexp.MustCompile(`(?i)promotion`),
	regexp.MustCompile(`(?i)facebook\.com`),
	regexp.MustCompile(`(?i)instagram\.com`),
	regexp.MustCompile(`[#@]`),
}

// ParagraphFilter drops scraped boilerplate before packing: paragraphs outside
// the length bounds and ones matching a noise pattern.
type ParagraphFilter struct {
	MinChars int
	MaxChars int
	Noise    []*regexp.Regexp
}

func DefaultParagraphFilter() *ParagraphFilter {
	return &ParagraphFilter{
		MinChars: minParagraphChars,
		MaxChars: maxParagraphChars,
		Noise:    defaultNoisePatterns,
	}
}

// Keep reports whether the whitespace-collapsed paragraph survives.
func (f *ParagraphFilter) Keep(paragraph string) bool {
	norm := strings.Join(strings.Fields(paragraph), " ")
	n := runeLen(norm)
	if n == 0 || n < f.MinChars {
		return false
	}
	if f.MaxChars > 0 && n > f.MaxChars {
		return false
	}
	for _, re := range f.Noise {
		if re.MatchString(norm) {
			return false
		}
	}
	return true
}
