package service

import "fmt"

const researchPromptTemplate = `You are a financial analyst. Analyze the provided data and produce a structured research report.

CRITICAL RULES:
1. Output ONLY valid JSON matching the exact schema below. No prose, no markdown fences.
2. Do NOT invent numeric data. Base every insight on the provided facts only.
3. If data is missing, acknowledge it in the analysis.
4. Set confidence_score from data completeness, on a 0 to 1 scale.

Schema:
{
  "ticker": "string",
  "summary": "string",
  "key_insights": ["string"],
  "strengths": ["string"],
  "weaknesses": ["string"],
  "opportunities": ["string"],
  "threats": ["string"],
  "confidence_score": 0.0
}

Facts:
%s
`

// BuildResearchPrompt renders the JSON-only research prompt. When a previous
// attempt failed validation, the failure reason is appended as a correction
// so the next attempt can fix it.
func BuildResearchPrompt(contextJSON, correction string) string {
	prompt := fmt.Sprintf(researchPromptTemplate, contextJSON)
	if correction != "" {
		prompt += fmt.Sprintf("\nYour previous output was invalid because: %s\nReturn corrected JSON only.\n", correction)
	}
	return prompt
}
