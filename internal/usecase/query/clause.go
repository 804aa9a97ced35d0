package query

import (
	"regexp"
	"strings"
	"unicode"
)

// numberedSection matches "12.2" style numbering or "Article 12" headings.
var numberedSection = regexp.MustCompile(`\d+\.\d+|\b[Aa]rticle\s+\d+`)

// clauseTitle finds a display title in the first lines of a chunk: an
// all-caps heading first, then a numbered section line, then the first
// line itself.
func clauseTitle(text string) string {
	lines := strings.Split(text, "\n")

	head := lines
	if len(head) > 3 {
		head = head[:3]
	}
	for _, line := range head {
		line = strings.TrimSpace(line)
		if line != "" && isUpper(line) && len(strings.Fields(line)) <= 10 {
			return line
		}
	}
	for _, line := range head {
		if numberedSection.MatchString(line) {
			return strings.ToUpper(strings.TrimSpace(line))
		}
	}

	first := strings.TrimSpace(lines[0])
	if chars := []rune(first); len(chars) > 100 {
		first = string(chars[:100]) + "..."
	}
	if first == "" {
		return "RETRIEVED CLAUSE"
	}
	return strings.ToUpper(first)
}

// isUpper reports whether s has at least one letter and no lowercase ones.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// queryStopwords are skipped when matching query terms against clause text.
var queryStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "are": true,
	"was": true, "were": true, "what": true, "how": true, "when": true,
	"where": true, "which": true, "who": true, "about": true, "this": true,
	"that": true, "these": true, "those": true,
}

// matchedTerms returns the significant query words that appear in the
// retrieved text, at most six, with a generic fallback when none match.
func matchedTerms(query, text string) []string {
	textLower := strings.ToLower(text)

	var matched []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		term := strings.Trim(word, ".,!?;:")
		if term == "" || queryStopwords[term] || len(word) <= 2 {
			continue
		}
		if strings.Contains(textLower, term) {
			matched = append(matched, term)
		}
	}

	if len(matched) == 0 {
		matched = []string{"contract", "clause", "legal"}
	}
	if len(matched) > 6 {
		matched = matched[:6]
	}
	return matched
}
