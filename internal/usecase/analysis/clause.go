package analysis

import (
	"strings"
	"unicode"
)

// clauseTitle finds a display title for an analyzed clause: a short
// all-caps heading in the first lines, else the first line uppercased.
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

	first := strings.TrimSpace(lines[0])
	if chars := []rune(first); len(chars) > 100 {
		first = string(chars[:100]) + "..."
	}
	if first == "" {
		return "CLAUSE ANALYSIS"
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

// negotiationFlags screens one clause for terms worth pushing back on.
func negotiationFlags(clauseText string) []string {
	lower := strings.ToLower(clauseText)

	var flags []string
	if strings.Contains(lower, "shall not") && strings.Contains(lower, "may") {
		flags = append(flags, "Asymmetric obligations - one party 'shall' while other 'may'")
	}
	if strings.Contains(lower, "unlimited") ||
		(strings.Contains(lower, "no limit") && strings.Contains(lower, "liability")) {
		flags = append(flags, "Unlimited liability exposure")
	}
	if strings.Contains(lower, "indemnify") && strings.Contains(lower, "defend") &&
		strings.Contains(lower, "hold harmless") {
		flags = append(flags, "Broad indemnification clause - triple obligation")
	}
	if strings.Contains(lower, "non-compete") || strings.Contains(lower, "non-solicitation") {
		flags = append(flags, "Contains restrictive covenants - review scope and duration")
	}

	if len(flags) == 0 {
		return []string{"No major negotiation flags identified"}
	}
	return flags
}

// impactFallback condenses the meaning into a practical-impact note.
func impactFallback(meaning string) string {
	if chars := []rune(meaning); len(chars) > 300 {
		return string(chars[:300]) + "..."
	}
	return meaning
}
