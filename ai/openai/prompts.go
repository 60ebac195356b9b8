package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/equiptrack/ai"
)

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "analysis": {"type": "string"},
    "problem_category_id": {"type": "integer", "minimum": 1, "maximum": 8},
    "solution_category_id": {"type": "integer", "minimum": 1, "maximum": 8},
    "priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["analysis", "problem_category_id", "solution_category_id", "priority", "confidence"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `You are an equipment reliability engineer. Analyse the equipment problem given
by the user and return the analysis as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Problem categories:
%s

Solution categories:
%s

Rules:
- "analysis" covers the likely root cause and the recommended fix in a few sentences.
  Answer in the language of the problem text.
- "problem_category_id" and "solution_category_id" must be ids from the lists above.
- "priority" reflects the safety and production impact of the problem.
- "confidence" is your confidence in the classification, from 0 to 1.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Title: Pump seal leaks\nDescription: Mechanical seal leaks after 200 hours due to elastomer swelling"
Output:
{"analysis":"Elastomer incompatible with the pumped fluid swells and loses preload. Replace with an FKM seal.","problem_category_id":3,"solution_category_id":3,"priority":"high","confidence":0.8}`

const advicePromptTemplate = `You are an equipment design consultant who helps engineers avoid known problems
during the design phase. Use the historical problems below to answer the user's design query.

Historical problems:
%s
User query: %q

Cover:
1. Whether similar problems have occurred before
2. Their root causes
3. How to avoid them in the current design
4. Concrete design recommendations and best practices
5. Key points that need particular attention`

// buildClassificationPrompt creates the system prompt with the category tables embedded.
func buildClassificationPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate,
		classificationResponseSchema,
		formatCategories(ai.ProblemCategories),
		formatCategories(ai.SolutionCategories))
}

// buildClassificationInput renders a request as the user message.
func buildClassificationInput(req ai.ClassificationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if req.EquipmentType != "" {
		fmt.Fprintf(&b, "Equipment type: %s\n", req.EquipmentType)
	}
	if req.Phase != "" {
		fmt.Fprintf(&b, "Discovered during: %s\n", req.Phase)
	}
	return b.String()
}

// buildAdvicePrompt renders the design query with its history.
func buildAdvicePrompt(query string, history []ai.HistoricalProblem) string {
	var b strings.Builder
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range history {
		fmt.Fprintf(&b, "\nProblem: %s\n", p.Title)
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
		fmt.Fprintf(&b, "AI analysis: %s\n", orDefault(p.AIAnalysis, "not analysed"))
		fmt.Fprintf(&b, "Solution: %s\n", orDefault(p.Solution, "none"))
		fmt.Fprintf(&b, "Phase: %s\n", p.Phase)
	}
	return fmt.Sprintf(advicePromptTemplate, b.String(), query)
}

func formatCategories(table []ai.Category) string {
	lines := make([]string, len(table))
	for i, c := range table {
		lines[i] = fmt.Sprintf("%d. %s (%s)", c.ID, c.Name, c.NameZH)
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
