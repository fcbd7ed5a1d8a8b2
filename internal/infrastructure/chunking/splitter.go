package chunking

import "strings"

const DefaultMaxChars = 700

type Splitter struct {
	ChunkSize int
	Overlap   int
	// Filter, when set, runs on every paragraph before packing.
	Filter *ParagraphFilter
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Pack drops blank and case-insensitive duplicate paragraphs, then greedily
// joins the rest with single spaces into chunks of at most ChunkSize runes.
// A paragraph longer than ChunkSize is cut with Split.
func (s *Splitter) Pack(paragraphs []string) []string {
	seen := make(map[string]struct{}, len(paragraphs))
	out := make([]string, 0)
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, raw := range paragraphs {
		paragraph := strings.TrimSpace(raw)
		key := strings.ToLower(paragraph)
		if key == "" {
			continue
		}
		if s.Filter != nil && !s.Filter.Keep(paragraph) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		pieces := []string{paragraph}
		if runeLen(paragraph) > s.ChunkSize {
			pieces = s.Split(paragraph)
		}
		for _, piece := range pieces {
			n := runeLen(piece)
			if currentLen > 0 && currentLen+1+n > s.ChunkSize {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(piece)
			currentLen += n
		}
	}
	flush()
	return out
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
