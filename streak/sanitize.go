package streak

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize normalizes free text for storage and comparison: line endings are
// unified to "\n", the text is NFKC-normalized, control characters other than
// newline and tab are dropped along with zero-width/format characters, the
// result is truncated to maxLen runes and trailing whitespace is trimmed.
//
// The same function runs on save and on check-in so the stored baseline and
// the retyped input are always comparable. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string, maxLen int) string {
	s := normalizeNewlines(raw)
	s = norm.NFKC.String(s)
	s = stripDisallowed(s)
	if maxLen > 0 {
		s = truncateRunes(s, maxLen)
	}
	return strings.TrimRight(s, " \t\n")
}

// Matches reports whether two already-sanitized texts are the same
// commitment. Comparison is exact and case-sensitive; internal newlines are
// significant, so multi-line scripts must match line for line.
func Matches(stored, input string, maxLen int) bool {
	return Sanitize(stored, maxLen) == Sanitize(input, maxLen)
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func stripDisallowed(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7F:
			return -1
		// Cf covers zero-width spaces and joiners, BOM, soft hyphen,
		// bidi marks and the rest of the invisible format characters.
		case unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// truncateRunes cuts at a rune boundary. Truncation happens before the final
// trailing-whitespace trim so a cut that exposes whitespace stays idempotent.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// SanitizeItems cleans an allowlist: each entry is sanitized as a single
// line, blanks are dropped, duplicates are removed and the list is capped.
func SanitizeItems(raw []string, maxItems, maxItemLen int) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		s := strings.TrimSpace(Sanitize(item, maxItemLen))
		// allowlist entries are single short strings
		s = strings.ReplaceAll(s, "\n", " ")
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if maxItems > 0 && len(out) == maxItems {
			break
		}
	}
	return out
}
