package pattern_test

import (
	"testing"

	"airlift/internal/pattern"
)

func TestMatches(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		glob     string
		want     bool
	}{
		{"case insensitive", "Show.MP3", "*.mp3", true},
		{"anchored suffix", "Show.mp3x", "*.mp3", false},
		{"anchored prefix", "xMorningShow_Ep1.mp3", "MorningShow_*.mp3", false},
		{"star run", "MorningShow_Ep1.mp3", "MorningShow_*.mp3", true},
		{"star matches empty", "MorningShow_.mp3", "MorningShow_*.mp3", true},
		{"question single char", "ep1.wav", "ep?.wav", true},
		{"question not two chars", "ep12.wav", "ep?.wav", false},
		{"literal dot", "showamp3", "show.mp3", false},
		{"brace group", "news.flac", "{news,sports}.flac", true},
		{"brace group miss", "talk.flac", "{news,sports}.flac", false},
		{"plain literal", "exact.aac", "exact.aac", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pattern.Matches(tc.filename, tc.glob)
			if err != nil {
				t.Fatalf("Matches(%q, %q): %v", tc.filename, tc.glob, err)
			}
			if got != tc.want {
				t.Fatalf("Matches(%q, %q) = %v, want %v", tc.filename, tc.glob, got, tc.want)
			}
		})
	}
}

func TestMalformedPatternIsNoMatchNotPanic(t *testing.T) {
	ok, err := pattern.Matches("anything.mp3", "{news,sports.mp3")
	if err == nil {
		t.Fatal("expected error for unbalanced brace group")
	}
	if ok {
		t.Fatal("malformed pattern must not match")
	}

	ok, err = pattern.Matches("anything.mp3", "news}.mp3")
	if err == nil || ok {
		t.Fatalf("expected unbalanced close brace to fail: ok=%v err=%v", ok, err)
	}
}

func TestFindMatchFirstWins(t *testing.T) {
	globs := []string{"*.wav", "MorningShow_*.mp3", "*.mp3"}
	if idx := pattern.FindMatch("MorningShow_Ep1.mp3", globs); idx != 1 {
		t.Fatalf("expected first matching pattern index 1, got %d", idx)
	}
	if idx := pattern.FindMatch("other.mp3", globs); idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}
	if idx := pattern.FindMatch("notes.txt", globs); idx != -1 {
		t.Fatalf("expected -1 for no match, got %d", idx)
	}
}

func TestFindMatchSkipsMalformed(t *testing.T) {
	globs := []string{"{bad", "*.mp3"}
	if idx := pattern.FindMatch("show.mp3", globs); idx != 1 {
		t.Fatalf("expected malformed pattern skipped, got %d", idx)
	}
}
