package explain

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// allCapsTerm matches the shouted runs contracts use for defined
// concepts, e.g. "CONFIDENTIAL INFORMATION".
var allCapsTerm = regexp.MustCompile(`\b[A-Z]{2,}[A-Z\s]{0,20}\b`)

// legalKeywords seed KeyTerms when the text mentions them.
var legalKeywords = []string{
	"agreement", "party", "parties", "termination", "notice",
	"confidential", "liability", "indemnify", "breach", "obligation",
	"payment", "warranty", "representation", "dispute",
}

// KeyTerms extracts up to six display terms from clause text: first the
// all-caps defined terms, then common legal keywords the text mentions.
// A generic fallback keeps the field populated for text that has
// neither.
func KeyTerms(text string) []string {
	var terms []string

	// Only the first few caps runs are considered, even when some of
	// them are too short to keep.
	for _, raw := range allCapsTerm.FindAllString(text, 4) {
		if len(strings.TrimSpace(raw)) <= 2 {
			continue
		}
		titled := TitleCase(raw)
		if !containsTerm(terms, titled) {
			terms = append(terms, titled)
		}
	}

	textLower := strings.ToLower(text)
	for _, keyword := range legalKeywords {
		if len(terms) >= 6 {
			break
		}
		titled := TitleCase(keyword)
		if strings.Contains(textLower, keyword) && !containsTerm(terms, titled) {
			terms = append(terms, titled)
		}
	}

	if len(terms) == 0 {
		return []string{"Contract", "Agreement", "Clause"}
	}
	return terms
}

// TitleCase renders a term in English title case regardless of how it
// was cased in the source text.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}
