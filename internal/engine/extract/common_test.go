package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRefContextTruncatesOnRuneBoundary(t *testing.T) {
	// The leading ASCII byte misaligns the two-byte runes against the
	// length cap, so a naive cut would land mid-sequence.
	long := "x" + strings.Repeat("é", contextMaxLen)
	got := refContext(7, long)

	if !utf8.ValidString(got) {
		t.Fatalf("context is not valid UTF-8: %q", got)
	}
	if !strings.HasPrefix(got, "line 7: ") {
		t.Errorf("context = %q, want line prefix", got)
	}
}

func TestRefContextShortTextUntouched(t *testing.T) {
	if got := refContext(3, "  velocity = speed  "); got != "line 3: velocity = speed" {
		t.Errorf("context = %q", got)
	}
}
