package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPackDedupsCaseInsensitive(t *testing.T) {
	s := NewSplitter(700, 0)
	got := s.Pack([]string{"Aero is bubbly.", "  ", "aero is bubbly.", "KitKat has wafers."})
	if len(got) != 1 || got[0] != "Aero is bubbly. KitKat has wafers." {
		t.Fatalf("unexpected chunks %q", got)
	}
}

func TestPackRespectsLimit(t *testing.T) {
	s := NewSplitter(20, 0)
	got := s.Pack([]string{"0123456789", "abcdefghi", "second chunk"})
	want := []string{"0123456789 abcdefghi", "second chunk"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
	for _, chunk := range got {
		if utf8.RuneCountInString(chunk) > 20 {
			t.Fatalf("chunk over limit: %q", chunk)
		}
	}
}

func TestPackSplitsOversizedParagraph(t *testing.T) {
	s := NewSplitter(10, 0)
	got := s.Pack([]string{strings.Repeat("x", 25)})
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %q", got)
	}
	for _, chunk := range got {
		if utf8.RuneCountInString(chunk) > 10 {
			t.Fatalf("chunk over limit: %q", chunk)
		}
	}
}

func TestPackEmpty(t *testing.T) {
	if got := NewSplitter(0, 0).Pack(nil); len(got) != 0 {
		t.Fatalf("expected no chunks, got %q", got)
	}
}

func TestSplitWithOverlap(t *testing.T) {
	got := NewSplitter(4, 2).Split("abcdefgh")
	want := []string{"abcd", "cdef", "efgh"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParagraphFilterDropsNoiseAndBounds(t *testing.T) {
	f := DefaultParagraphFilter()

	tests := []struct {
		paragraph string
		want      bool
	}{
		{"Boost is a complete nutritional drink.", true},
		{"Too short", false},
		{strings.Repeat("a", 1001), false},
		{strings.Repeat("a", 1000), true},
		{"Enter to WIN a year of chocolate!", false},
		{"Read the full Terms-and-Conditions here.", false},
		{"Follow us on instagram.com/aero today", false},
		{"Share your recipe with #KitKatBreak", false},
		{"Questions? Email hello@example.com now", false},
		{"  Aero   bubbles melt\n in your mouth.  ", true},
	}
	for _, tt := range tests {
		if got := f.Keep(tt.paragraph); got != tt.want {
			t.Fatalf("Keep(%.40q) = %v, want %v", tt.paragraph, got, tt.want)
		}
	}
}

func TestPackAppliesFilter(t *testing.T) {
	s := NewSplitter(700, 0)
	s.Filter = DefaultParagraphFilter()

	got := s.Pack([]string{"Aero has light bubbles.", "Enter our contest!", "ok", "KitKat has four fingers."})
	if len(got) != 1 || got[0] != "Aero has light bubbles. KitKat has four fingers." {
		t.Fatalf("unexpected chunks %q", got)
	}
}
