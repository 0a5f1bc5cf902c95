package usecase

import (
	"fmt"
	"strings"

	"github.com/avolkhin/findoc-analyzer/internal/core/domain"
)

// DefaultQuery is applied when the caller supplies no analysis instructions.
const DefaultQuery = "Analyze this financial document for investment insights"

const analysisSystemPrompt = `You are a senior financial analyst reviewing one financial document.
You must produce one valid JSON object only (no markdown, no commentary, no code fences).

Hard constraints:
- Use ONLY facts, figures and statements present in the document text supplied by the user.
- Never invent metrics, trends, events or risks that the document does not state.
- If the document does not contain the information needed to answer the query, say so in the recommendation instead of guessing.
- Copy numeric values exactly as written in the document, including currency symbols.

Schema (example with empty values):
{
  "metrics": {"<metric name>": {"value": "<string, as written in the document>", "trend": "<up|down|flat|unknown>"}},
  "risks": ["<risk statement grounded in the document>"],
  "recommendation": "<Buy/Hold/Sell with rationale, or a statement that the document is insufficient>",
  "executive_summary": "<3-6 sentence summary for executives>",
  "confidence": 0.0
}`

const verificationInstructions = `Check every numeric claim and qualitative statement in the draft analysis against the source document text. Flag any claim that cannot be traced to the source.`

// PromptBuilder derives the instruction payloads for the model-calling
// stages. It is a pure function of the source document and query: no side
// effects, no shared state between runs.
type PromptBuilder struct {
	maxContextChars int
}

func NewPromptBuilder(maxContextChars int) *PromptBuilder {
	if maxContextChars <= 0 {
		maxContextChars = 12000
	}
	return &PromptBuilder{maxContextChars: maxContextChars}
}

func (b *PromptBuilder) BuildTasks(doc *domain.SourceDocument, query string) domain.TaskSet {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}

	snippet := clipRunes(doc.Text, b.maxContextChars)

	userPrompt := fmt.Sprintf(`Query: %s

Document %q:
---
%s
---

Respond with the JSON object per schema. Every value must be traceable to the document text above.`,
		query, doc.Filename, snippet)

	return domain.TaskSet{
		Analysis: domain.AnalysisTask{
			SystemPrompt: analysisSystemPrompt,
			UserPrompt:   userPrompt,
		},
		Verification: domain.VerificationTask{
			Instructions: verificationInstructions,
			SourceText:   doc.Text,
		},
	}
}

// WithRevisionNotes returns a copy of the analysis task extended with the
// flagged claims from the previous verification pass.
func WithRevisionNotes(task domain.AnalysisTask, flagged []domain.FlaggedClaim) domain.AnalysisTask {
	notes := make([]string, 0, len(flagged))
	for _, claim := range flagged {
		notes = append(notes, fmt.Sprintf("- %s (%s)", claim.Claim, claim.Reason))
	}
	revised := task
	revised.RevisionNotes = append(append([]string(nil), task.RevisionNotes...), notes...)
	revised.UserPrompt = task.UserPrompt + fmt.Sprintf(`

Your previous draft contained claims that could not be verified against the document:
%s

Produce a corrected JSON object. Remove or rewrite unsupported claims so every statement is backed by the document text.`,
		strings.Join(notes, "\n"))
	return revised
}

func clipRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
