package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// VerificationStageRunner grounds a draft against the source text. It is a
// local, deterministic check: numeric claims must have their numerals present
// in the source, qualitative claims must share enough significant vocabulary
// with it. Tolerance: a qualitative claim passes when at least 60% of its
// significant tokens (length >= 4, stopwords removed) occur in the source.
type VerificationStageRunner struct {
	minTokenOverlap float64
}

func NewVerificationStageRunner() *VerificationStageRunner {
	return &VerificationStageRunner{minTokenOverlap: 0.6}
}

func (v *VerificationStageRunner) Verify(task domain.VerificationTask, draft *domain.DraftAnalysis) domain.VerificationVerdict {
	source := newSourceIndex(task.SourceText)

	var flagged []domain.FlaggedClaim

	for name, metric := range draft.Metrics {
		claim := fmt.Sprintf("%s: %s", name, metric.Value)
		if numbers := extractNumbers(metric.Value); len(numbers) > 0 {
			if missing := source.missingNumbers(numbers); len(missing) > 0 {
				flagged = append(flagged, domain.FlaggedClaim{
					Claim:  claim,
					Reason: fmt.Sprintf("value %s not found in source text", strings.Join(missing, ", ")),
				})
			}
			continue
		}
		if !source.supportsStatement(metric.Value, v.minTokenOverlap) {
			flagged = append(flagged, domain.FlaggedClaim{
				Claim:  claim,
				Reason: "metric value not traceable to source text",
			})
		}
	}

	for _, risk := range draft.Risks {
		if ok, reason := v.checkStatement(source, risk); !ok {
			flagged = append(flagged, domain.FlaggedClaim{Claim: risk, Reason: reason})
		}
	}

	// Numbers quoted in prose must exist in the document even when the
	// surrounding advice is the model's own synthesis.
	for _, statement := range []string{draft.Recommendation, draft.ExecutiveSummary} {
		if missing := source.missingNumbers(extractNumbers(statement)); len(missing) > 0 {
			flagged = append(flagged, domain.FlaggedClaim{
				Claim:  clipRunes(statement, 120),
				Reason: fmt.Sprintf("figures %s not found in source text", strings.Join(missing, ", ")),
			})
		}
	}

	if len(flagged) == 0 {
		return domain.VerificationVerdict{Status: domain.VerdictApproved}
	}
	return domain.VerificationVerdict{Status: domain.VerdictRevise, FlaggedClaims: flagged}
}

func (v *VerificationStageRunner) checkStatement(source *sourceIndex, statement string) (bool, string) {
	if missing := source.missingNumbers(extractNumbers(statement)); len(missing) > 0 {
		return false, fmt.Sprintf("figures %s not found in source text", strings.Join(missing, ", "))
	}
	if !source.supportsStatement(statement, v.minTokenOverlap) {
		return false, "statement not traceable to source text"
	}
	return true, ""
}

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// extractNumbers pulls canonical numerals out of a claim. Thousands
// separators are dropped so "1,200" matches "1200".
func extractNumbers(s string) []string {
	matches := numberPattern.FindAllString(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.ReplaceAll(m, ",", ""))
	}
	return out
}

type sourceIndex struct {
	numbers map[string]struct{}
	tokens  map[string]struct{}
}

func newSourceIndex(text string) *sourceIndex {
	idx := &sourceIndex{
		numbers: make(map[string]struct{}),
		tokens:  make(map[string]struct{}),
	}
	for _, n := range extractNumbers(text) {
		idx.numbers[n] = struct{}{}
	}
	for _, tok := range significantTokens(text) {
		idx.tokens[tok] = struct{}{}
	}
	return idx
}

func (idx *sourceIndex) missingNumbers(numbers []string) []string {
	var missing []string
	for _, n := range numbers {
		if _, ok := idx.numbers[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

func (idx *sourceIndex) supportsStatement(statement string, minOverlap float64) bool {
	tokens := significantTokens(statement)
	if len(tokens) == 0 {
		// Nothing checkable; treat as supported rather than blocking
		// generic phrasing.
		return true
	}
	hits := 0
	for _, tok := range tokens {
		if _, ok := idx.tokens[tok]; ok {
			hits++
		}
	}
	return float64(hits)/float64(len(tokens)) >= minOverlap
}

var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "has": {},
	"been": {}, "were": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"their": {}, "there": {}, "which": {}, "while": {}, "during": {},
	"company": {}, "document": {}, "report": {}, "analysis": {},
	"financial": {}, "remains": {}, "continues": {}, "overall": {},
	"strong": {}, "healthy": {}, "significant": {}, "potential": {},
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

func significantTokens(s string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len([]rune(tok)) < 4 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		out = append(out, normalizeToken(tok))
	}
	return out
}

// normalizeToken strips a trailing plural/verb "s" so "grows" matches
// "growth"-adjacent wording less brittlely than exact forms.
func normalizeToken(tok string) string {
	if len(tok) > 4 && strings.HasSuffix(tok, "s") {
		return tok[:len(tok)-1]
	}
	return tok
}
