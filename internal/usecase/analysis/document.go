package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/domain/explain"
)

// Document analysis bounds. Only the summary takes an LLM call; the
// opening chunks usually carry the parties and background, and the
// context is capped to keep the prompt inside model limits.
const (
	summaryChunks       = 10
	summaryContextChars = 2000
	maxKeyClauses       = 5
	minKeyClauseChars   = 100
)

// summaryPrompt asks for a factual description of the document, not
// legal advice.
const summaryPrompt = `Provide a detailed summary of this document. Describe:
1. What type of document this is (case judgment, contract, agreement, terms, etc.)
2. If it's a legal case: What happened? Who are the parties? What was the dispute? What did the court/commission decide?
3. If it's a contract/agreement: What is the purpose? What are the main obligations?
4. Key facts, events, or provisions.

Be specific and factual. Do not give generic legal advice. Only describe what is in this document.`

// AnalyzeDocument analyzes every indexed clause and reports the document
// summary, its most important clauses, and what they add up to.
func (s *Service) AnalyzeDocument(ctx context.Context) (domain.DocumentAnalysis, error) {
	chunks := s.index.All()
	if len(chunks) == 0 {
		return domain.DocumentAnalysis{}, fmt.Errorf("%w: no document has been indexed yet", domain.ErrNotFound)
	}

	clauses := make([]string, len(chunks))
	for i, c := range chunks {
		clauses[i] = c.Text()
	}
	docSource := chunks[0].Source()

	summary, err := s.documentSummary(ctx, clauses)
	if err != nil {
		return domain.DocumentAnalysis{}, err
	}

	keyClauses := identifyKeyClauses(chunks)

	confidence := 70 + min(len(keyClauses)*3, 25)
	reason := fmt.Sprintf("Analyzed all %d clauses and identified %d key provisions",
		len(clauses), len(keyClauses))

	return domain.DocumentAnalysis{
		Document: domain.DocumentInfo{
			Title:           docSource,
			TotalClauses:    len(clauses),
			AnalyzedClauses: len(clauses),
		},
		Analysis: domain.DocumentAssessment{
			Summary:           summary,
			OverallAssessment: overallAssessment(summary),
			KeyClauses:        keyClauses,
			PartyBalance: domain.PartyBalance{
				Assessment: partyBalance(keyClauses),
				Basis:      "Based on concentration of obligations and clause distribution",
			},
			KeyTerms:         documentKeyTerms(clauses),
			PracticalImpact:  documentImpact(keyClauses),
			NegotiationFlags: documentNegotiationFlags(keyClauses),
		},
		Metadata: domain.DocumentAnalysisMetadata{
			Source:           docSource,
			TotalPages:       distinctPages(chunks),
			Confidence:       confidence,
			ConfidenceReason: reason,
		},
	}, nil
}

// documentSummary asks the LLM to describe the document from its opening
// chunks, then strips advisory phrasing from the reply.
func (s *Service) documentSummary(ctx context.Context, clauses []string) (string, error) {
	head := clauses
	if len(head) > summaryChunks {
		head = head[:summaryChunks]
	}
	text := strings.Join(head, "\n\n")
	if chars := []rune(text); len(chars) > summaryContextChars {
		text = string(chars[:summaryContextChars])
	}

	expl, err := s.generator.GenerateExplanation(ctx, summaryPrompt, text)
	if err != nil {
		return "", fmt.Errorf("generate document summary: %w", err)
	}
	domain.UsageFromContext(ctx).AddGenerationTokens(expl.PromptTokens + expl.CompletionTokens)

	summary := expl.Meaning
	if summary == "" {
		summary = expl.Summary
	}
	summary = stripAdvisory(summary)
	if len(summary) < 50 {
		return "This is a legal document establishing rights and obligations between parties.", nil
	}
	return summary, nil
}

// advisoryPhrases trip the guardrail: generated text that drifts into
// advice is discarded in favor of a factual fallback.
var advisoryPhrases = []string{
	"review carefully",
	"before signing",
	"consider legal counsel",
	"consult legal",
	"seek legal advice",
	"ensure they align",
	"business needs",
	"risk tolerance",
	"you may be required",
	"you should",
	"you must",
	"we recommend",
	"it is recommended",
	"it is advisable",
	"by accessing and using",
	"by using this",
	"you agree to",
	"you accept",
}

// stripAdvisory empties any text containing advisory phrasing so the
// caller substitutes a factual fallback.
func stripAdvisory(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range advisoryPhrases {
		if strings.Contains(lower, phrase) {
			return ""
		}
	}
	return text
}

// importanceKeywords weight a clause towards the key-clause list.
var importanceKeywords = []string{
	"terminate", "terminat", "liable", "liability", "indemn", "govern",
	"dispute", "warrant", "confidential", "intellectual", "payment", "arbitrat",
}

// importanceScore grades a clause by legal keyword hits and length.
func importanceScore(text string) int {
	score := 0
	lower := strings.ToLower(text)
	for _, kw := range importanceKeywords {
		if strings.Contains(lower, kw) {
			score += 2
		}
	}
	return score + min(len(text)/200, 3)
}

// clauseCategory buckets lowered clause text by the first matching topic.
func clauseCategory(lower string) string {
	switch {
	case strings.Contains(lower, "terminat"):
		return "Termination"
	case strings.Contains(lower, "liab"), strings.Contains(lower, "indemn"):
		return "Liability"
	case strings.Contains(lower, "govern"), strings.Contains(lower, "dispute"):
		return "Governing Law"
	case strings.Contains(lower, "payment"):
		return "Payment"
	case strings.Contains(lower, "confidential"):
		return "Confidentiality"
	case strings.Contains(lower, "warrant"):
		return "Warranty"
	default:
		return "General"
	}
}

// identifyKeyClauses ranks every substantial clause by importance and
// keeps the top few with their provenance. Very short chunks are
// skipped; when nothing qualifies the first chunk stands in so the
// report always has at least one clause.
func identifyKeyClauses(chunks []chunk.Chunk) []domain.KeyClause {
	type scored struct {
		idx   int
		score int
	}
	var ranked []scored
	for i, c := range chunks {
		if len(c.Text()) > minKeyClauseChars {
			ranked = append(ranked, scored{idx: i, score: importanceScore(c.Text())})
		}
	}
	// Stable keeps document order between clauses of equal weight.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > maxKeyClauses {
		ranked = ranked[:maxKeyClauses]
	}

	if len(ranked) == 0 {
		c := chunks[0]
		return []domain.KeyClause{{
			ClauseID:        0,
			Title:           "General Provisions",
			Content:         truncate(c.Text(), 200),
			FullContent:     c.Text(),
			Quote:           truncate(c.Text(), 250),
			Section:         "Document",
			Page:            1,
			Category:        "General",
			ImportanceScore: 0,
		}}
	}

	key := make([]domain.KeyClause, 0, len(ranked))
	for _, r := range ranked {
		c := chunks[r.idx]
		text := c.Text()
		key = append(key, domain.KeyClause{
			ClauseID:        r.idx,
			Title:           documentClauseTitle(text),
			Content:         truncateEllipsis(text, 200),
			FullContent:     text,
			Quote:           truncate(text, 250),
			Section:         c.Source(),
			Page:            c.Page(),
			Category:        clauseCategory(strings.ToLower(text)),
			ImportanceScore: r.score,
		})
	}
	return key
}

// documentClauseTitle picks a short leading line as the clause title,
// else condenses the opening words.
func documentClauseTitle(text string) string {
	lines := strings.Split(text, "\n")

	head := lines
	if len(head) > 3 {
		head = head[:3]
	}
	for _, line := range head {
		line = strings.TrimSpace(line)
		if line != "" && len(strings.Fields(line)) <= 10 {
			return explain.TitleCase(line)
		}
	}

	words := strings.Fields(text)
	if len(words) > 8 {
		words = words[:8]
	}
	first := strings.Join(words, " ")
	if len(first) > 50 {
		return first + "..."
	}
	return first
}

// overallAssessment classifies the document from its summary and states
// what kind of provisions to expect. Descriptive only, never advisory.
func overallAssessment(summary string) string {
	lower := strings.ToLower(summary)

	var assessment string
	switch {
	case containsAny(lower, "judgment", "commission", "court", "case", "dispute", "complainant", "respondent"):
		assessment = "This is a legal judgment or decision. Key determinations and reasoning are documented in the analyzed clauses."
	case containsAny(lower, "terms", "conditions", "usage", "service", "application", "platform"):
		assessment = "This document governs usage rights and limitations. Key provisions relate to liability limitations, termination rights, and governing law."
	case containsAny(lower, "agreement", "contract", "parties hereby"):
		assessment = "This is a contractual agreement establishing obligations between parties. Key terms are identified in the analyzed clauses."
	default:
		assessment = "This document contains binding provisions. Key clauses are identified above."
	}

	assessment = stripAdvisory(assessment)
	if assessment == "" {
		return "This document contains legal provisions. Key clauses are identified above."
	}
	return assessment
}

// partyBalance grades how one-sided the key clauses read. The findings
// feed the assessment verbatim so the caller sees why.
func partyBalance(keyClauses []domain.KeyClause) string {
	indicators := 0
	liabilityHeavy := false
	var findings []string

	for _, kc := range keyClauses {
		lower := strings.ToLower(kc.FullContent)

		shallNot := strings.Count(lower, "shall not")
		if shallNot > 0 && shallNot > strings.Count(lower, "may") {
			indicators++
			if !containsString(findings, "Asymmetric 'shall not' obligations") {
				findings = append(findings, "Asymmetric 'shall not' obligations")
			}
		}

		if kc.Category == "Liability" {
			if strings.Contains(lower, "unlimited") {
				indicators += 2
				liabilityHeavy = true
				findings = append(findings, "Unlimited liability provision")
			} else if containsAny(lower, "any and all", "hold harmless", "defend and indemnify") {
				indicators++
				liabilityHeavy = true
				findings = append(findings, "Broad indemnification language")
			}
		}

		if kc.Category == "Termination" {
			if containsAny(lower, "without cause", "at will") {
				findings = append(findings, "Unilateral termination rights")
			} else if !strings.Contains(lower, "mutual") {
				indicators++
				findings = append(findings, "Non-mutual termination conditions")
			}
		}
	}

	if len(findings) == 0 {
		return "Clause balance cannot be determined from analyzed clauses"
	}

	top := findings
	if len(top) > 2 {
		top = top[:2]
	}
	joined := strings.ToLower(strings.Join(top, ", "))

	switch {
	case indicators >= 3 || liabilityHeavy:
		return "Favors drafting party: " + joined
	case indicators >= 1:
		return "Mixed: " + joined
	default:
		return "Balanced based on analyzed clauses"
	}
}

// commonLegalTerms is screened in a fixed order so repeated analyses of
// the same document list terms identically.
var commonLegalTerms = []string{
	"Confidential Information", "Intellectual Property", "Indemnification",
	"Termination", "Force Majeure", "Governing Law", "Dispute Resolution",
	"Payment Terms", "Warranties", "Liability", "Non-Disclosure",
}

// documentKeyTerms lists the well-known legal terms the document uses.
func documentKeyTerms(clauses []string) []string {
	combined := strings.ToLower(strings.Join(clauses, " "))

	var found []string
	for _, term := range commonLegalTerms {
		if strings.Contains(combined, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return []string{"General Legal Terms", "Standard Provisions"}
	}
	return found
}

// documentImpact states concrete effects only for clause categories the
// key-clause pass actually found.
func documentImpact(keyClauses []domain.KeyClause) string {
	categories := make(map[string]bool, len(keyClauses))
	for _, kc := range keyClauses {
		categories[kc.Category] = true
	}

	var parts []string
	if categories["Termination"] {
		parts = append(parts, "Contract termination conditions are defined in key clauses")
	}
	if categories["Liability"] {
		indemnified := false
		for _, kc := range keyClauses {
			if kc.Category == "Liability" && strings.Contains(strings.ToLower(kc.FullContent), "indemnif") {
				indemnified = true
				break
			}
		}
		if indemnified {
			parts = append(parts, "Indemnification obligations are specified")
		} else {
			parts = append(parts, "Liability terms and limitations are defined")
		}
	}
	if categories["Payment"] {
		parts = append(parts, "Payment obligations and terms are specified")
	}
	if categories["Governing Law"] {
		parts = append(parts, "Jurisdiction and governing law are established")
	}
	if categories["Confidentiality"] {
		parts = append(parts, "Confidentiality restrictions apply to information sharing")
	}
	if categories["Warranty"] {
		parts = append(parts, "Warranties or disclaimers are specified")
	}

	if len(parts) == 0 {
		return "Key provisions are identified in the analyzed clauses above."
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ". ") + "."
}

// documentNegotiationFlags derives actionable negotiation points from
// the key clauses, by category.
func documentNegotiationFlags(keyClauses []domain.KeyClause) []string {
	var flags []string
	for _, kc := range keyClauses {
		lower := strings.ToLower(kc.FullContent)

		switch kc.Category {
		case "Termination":
			if containsAny(lower, "at will", "convenience") {
				flags = append(flags, "Negotiate termination notice period and transition requirements")
			} else if strings.Contains(lower, "cause") && !strings.Contains(lower, "cure") {
				flags = append(flags, "Request cure period before termination for cause")
			}
		case "Liability":
			if containsAny(lower, "unlimited", "no limit") {
				flags = append(flags, "Negotiate liability cap tied to contract value")
			} else if !strings.Contains(lower, "consequential") || !strings.Contains(lower, "indirect") {
				flags = append(flags, "Add exclusion for consequential and indirect damages")
			} else if strings.Contains(lower, "defend") && strings.Contains(lower, "indemnify") {
				flags = append(flags, "Limit indemnification scope to direct claims only")
			}
		case "Payment":
			if containsAny(lower, "advance", "upfront") {
				flags = append(flags, "Consider milestone-based payments instead of upfront fees")
			}
		case "Governing Law":
			if strings.Contains(lower, "arbitration") {
				flags = append(flags, "Review arbitration venue and cost allocation")
			}
		case "Confidentiality":
			if containsAny(lower, "perpetual", "indefinite") {
				flags = append(flags, "Negotiate time limit on confidentiality obligations")
			}
		}
	}

	flags = dedupe(flags)
	if len(flags) > 4 {
		flags = flags[:4]
	}
	if len(flags) == 0 {
		return []string{"Review all key clauses with legal counsel before signing"}
	}
	return flags
}

// distinctPages counts how many pages the indexed chunks span.
func distinctPages(chunks []chunk.Chunk) int {
	pages := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		pages[c.Page()] = struct{}{}
	}
	return len(pages)
}

// dedupe removes duplicates and empties, preserving first-seen order.
// Comparison is case-insensitive on trimmed text.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	chars := []rune(s)
	if len(chars) <= n {
		return s
	}
	return string(chars[:n])
}

// truncateEllipsis truncates to n runes with an ellipsis when anything
// was cut.
func truncateEllipsis(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return truncate(s, n) + "..."
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
