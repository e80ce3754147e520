package bot

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize prepares inbound text for trigger matching: Unicode NFC,
// lower case, trimmed, inner whitespace collapsed to single spaces.
// Thai has no case, so only Latin triggers are affected by lowering.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = lower.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ContainsAll reports whether text contains every marker.
func ContainsAll(text string, markers ...string) bool {
	for _, m := range markers {
		if !strings.Contains(text, m) {
			return false
		}
	}
	return true
}

// BuildKeywordRegex creates a regex matching one of keywords as the whole
// text or followed by a space. Keywords are sorted longest first so the
// longest alternative wins. Panics if keywords is empty.
//
// Example:
//
//	MatchKeyword(BuildKeywordRegex([]string{"quota", "โควต้า"}), "quota")      // "quota"
//	MatchKeyword(BuildKeywordRegex([]string{"quota", "โควต้า"}), "โควต้า วันนี้") // "โควต้า"
//	MatchKeyword(BuildKeywordRegex([]string{"quota", "โควต้า"}), "quotas")     // ""
func BuildKeywordRegex(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		panic("BuildKeywordRegex: keywords cannot be empty")
	}

	sorted := slices.Clone(keywords)
	slices.SortFunc(sorted, func(a, b string) int {
		return len(b) - len(a)
	})

	quoted := make([]string, len(sorted))
	for i, k := range sorted {
		quoted[i] = regexp.QuoteMeta(k)
	}

	return regexp.MustCompile("(?i)^(" + strings.Join(quoted, "|") + ")(?:\\s|$)")
}

// MatchKeyword returns the matched keyword from text using the given regex.
// Returns empty string if no match.
func MatchKeyword(regex *regexp.Regexp, text string) string {
	match := regex.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
