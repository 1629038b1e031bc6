package streak

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Sanitize("a\r\nb\rc", 2000))
}

func TestSanitizeTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "deep work", Sanitize("deep work \t\n", 2000))
	// leading and internal whitespace is preserved
	assert.Equal(t, "  a  b", Sanitize("  a  b", 2000))
}

func TestSanitizeStripsControlAndZeroWidth(t *testing.T) {
	assert.Equal(t, "ab", Sanitize("a\x00\x07b", 2000))
	assert.Equal(t, "ab", Sanitize("a\u200bb", 2000))
	assert.Equal(t, "ab", Sanitize("a\ufeffb", 2000))
	// tab and newline survive
	assert.Equal(t, "a\tb\nc", Sanitize("a\tb\nc", 2000))
}

func TestSanitizeStripsFormatRunes(t *testing.T) {
	// soft hyphen, word joiner and bidi marks are format-class too
	assert.Equal(t, "cooperate", Sanitize("co\u00adoperate", 2000))
	assert.Equal(t, "ab", Sanitize("a\u2060b", 2000))
	assert.Equal(t, "ab", Sanitize("a\u200eb", 2000))
}

func TestSanitizeNFKC(t *testing.T) {
	// fullwidth forms fold to ASCII under NFKC
	assert.Equal(t, "ABC", Sanitize("ＡＢＣ", 2000))
	// precomposed and combining sequences converge
	assert.Equal(t, Sanitize("é", 2000), Sanitize("é", 2000))
}

func TestSanitizeTruncatesRunes(t *testing.T) {
	got := Sanitize(strings.Repeat("日", 30), 10)
	assert.Equal(t, 10, len([]rune(got)))

	// a cut that exposes trailing whitespace still trims it
	got = Sanitize("abcd      x", 6)
	assert.Equal(t, "abcd", got)
}

func TestSanitizeExpandingRuneAtBoundary(t *testing.T) {
	// the fi ligature doubles under NFKC; expansion happens before the
	// rune cut, so re-sanitizing the truncated result is a no-op
	got := Sanitize(strings.Repeat("\ufb01", 10), 10)
	assert.Equal(t, "fififififi", got)
	assert.Equal(t, got, Sanitize(got, 10))
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"mixed\r\nline\rendings  ",
		"ＡＢＣ é \u200b control\x01 chars",
		strings.Repeat("long ", 600),
		"\t leading tab kept, trailing cut \t ",
	}
	for _, in := range inputs {
		once := Sanitize(in, 50)
		twice := Sanitize(once, 50)
		require.Equal(t, once, twice, "input %q", in)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("my script", "my script  \n", 2000))
	assert.True(t, Matches("ＡＢＣ", "ABC", 2000))
	// case-sensitive, newline-sensitive
	assert.False(t, Matches("my script", "My script", 2000))
	assert.False(t, Matches("a\nb", "a b", 2000))
}

func TestSanitizeItems(t *testing.T) {
	got := SanitizeItems([]string{" alice ", "bob", "alice", "", "multi\nline"}, 50, 200)
	assert.Equal(t, []string{"alice", "bob", "multi line"}, got)
}

func TestSanitizeItemsCap(t *testing.T) {
	raw := make([]string, 60)
	for i := range raw {
		raw[i] = strings.Repeat("x", i+1)
	}
	got := SanitizeItems(raw, 50, 200)
	assert.Len(t, got, 50)
}
