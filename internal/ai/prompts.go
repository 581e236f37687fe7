package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moritz/grantflow/internal/models"
)

// BuildIdeasPrompt asks for 6-10 project ideas from a call summary and the
// user's constraints.
func BuildIdeasPrompt(summary string, constraints models.Constraints, userPrompt string) string {
	var b strings.Builder

	b.WriteString("You are a creative brainstorming assistant.\n\n")
	if userPrompt != "" {
		fmt.Fprintf(&b, "MANDATORY USER REQUIREMENTS - HIGHEST PRIORITY:\n%s\n", userPrompt)
		b.WriteString("CRITICAL: ALL project ideas MUST directly address these user requirements.\n\n")
	}

	fmt.Fprintf(&b, "CONTEXT SUMMARY: %s\n\n", summary)
	fmt.Fprintf(&b, `CONSTRAINTS:
- Partners: %s
- Budget: %s
- Duration: %s

TASK: Generate 6-10 high-quality project ideas based on the context summary.

Each idea must:
1. Align with the funding opportunity
2. Be feasible within the constraints
3. Be innovative and impactful

OUTPUT FORMAT:
Return ONLY valid JSON (no markdown, no backticks) with this structure:
{
  "ideas": [
    {
      "title": "Project idea title",
      "description": "Detailed description (2-3 sentences)"
    }
  ]
}

Return ONLY valid JSON, no other text.`,
		orNotSpecified(constraints.Partners),
		orNotSpecified(constraints.Budget),
		orNotSpecified(constraints.Duration))

	return b.String()
}

// BuildProposalPrompt asks for a full 11-section proposal for the selected
// idea, threading the chosen consortium partners into the context.
func BuildProposalPrompt(idea models.Idea, summary string, constraints models.Constraints, partners []models.Partner) string {
	var partnerInfo strings.Builder
	if len(partners) > 0 {
		partnerInfo.WriteString("\n\nCONSORTIUM PARTNERS:\n")
		for _, p := range partners {
			country := p.Country
			if country == "" {
				country = "Country not specified"
			}
			desc := p.Description
			if desc == "" {
				desc = "No description"
			}
			fmt.Fprintf(&partnerInfo, "- %s (%s): %s\n", p.Name, country, desc)
		}
	}

	return fmt.Sprintf(`You are an expert EU funding proposal writer.

SELECTED PROJECT IDEA:
Title: %s
Description: %s

CONTEXT: %s

CONSTRAINTS:
- Partners: %s
- Budget: %s
- Duration: %s%s

TASK: Generate a comprehensive 11-section funding proposal in EU format.

REQUIREMENTS:
1. All sections must align with the project idea.
2. Use HTML formatting for text sections (<p>, <strong>, <ul>, <li>).
3. Generate a realistic budget in Euros.
4. Create specific work packages with deliverables.
5. Include a risk assessment matrix and a monthly timeline.

OUTPUT FORMAT (JSON ONLY, no markdown):
{
  "title": "string",
  "summary": "<p>...</p>",
  "introduction": "<p>...</p>",
  "objectives": "<p>...</p>",
  "relevance": "<p>...</p>",
  "methodology": "<p>...</p>",
  "expected_results": "<p>...</p>",
  "innovation": "<p>...</p>",
  "impact": "<p>...</p>",
  "sustainability": "<p>...</p>",
  "consortium": "<p>...</p>",
  "work_plan": "<p>...</p>",
  "risk_management": "<p>...</p>",
  "partners": [{"name": "string", "role": "string"}],
  "work_packages": [{"name": "WP1: ...", "description": "string", "deliverables": ["string"]}],
  "milestones": [{"milestone": "string", "work_package": "WP1", "due_date": "Month 6"}],
  "risks": [{"risk": "string", "likelihood": "Low|Medium|High", "impact": "Low|Medium|High", "mitigation": "string"}],
  "budget": [{"item": "Personnel", "cost": 500000, "description": "string"}],
  "timeline": [{"phase": "Phase 1: Setup", "activities": ["string"], "start_month": 1, "end_month": 6}]
}

Return ONLY valid JSON, no other text.`,
		idea.Title, idea.Description, summary,
		orNotSpecified(constraints.Partners),
		orNotSpecified(constraints.Budget),
		orNotSpecified(constraints.Duration),
		partnerInfo.String())
}

// BuildRelevancePrompt asks for a Good/Fair/Poor verdict on how well a set
// of ideas matches the source call content.
func BuildRelevancePrompt(url, urlContent string, constraints models.Constraints, ideas []models.Idea) string {
	if len(urlContent) > 5000 {
		urlContent = urlContent[:5000]
	}
	ideasJSON, _ := json.MarshalIndent(ideas, "", "  ")
	constraintsJSON, _ := json.MarshalIndent(constraints, "", "  ")

	return fmt.Sprintf(`Validate these project ideas against the source content.

SOURCE URL: %s
SOURCE CONTENT: %s

PROJECT IDEAS:
%s

CONSTRAINTS:
%s

TASK: Evaluate how well the ideas align with the source content and constraints.

Scoring:
- "Good": Ideas strongly align with source and constraints
- "Fair": Ideas partially align
- "Poor": Ideas don't align well

OUTPUT FORMAT (JSON ONLY):
{
  "score": "Good" | "Fair" | "Poor",
  "justification": "Explain the alignment assessment"
}

Return ONLY valid JSON, no other text.`, url, urlContent, ideasJSON, constraintsJSON)
}

// BuildTemplatePrompt asks for the application template structure hidden in
// a funding call's guideline document text.
func BuildTemplatePrompt(documentText string) string {
	if len(documentText) > 30000 {
		documentText = documentText[:30000]
	}

	return fmt.Sprintf(`You are an expert at analyzing EU funding application guidelines and call documents.

TASK: Analyze this document and extract the proposal application structure.

For each section in the document, identify:
1. Section name/title (e.g., "1. Excellence", "Part B - Impact")
2. A unique key in snake_case (e.g., "excellence", "impact")
3. Order/sequence number (1, 2, 3...)
4. Character limit or page limit if specified
5. Whether the section is mandatory or optional
6. Any subsections (nested structure)
7. Brief description of what's required in that section

LOOK FOR PATTERNS LIKE:
- Section headings: "Section 1:", "Part A:", "Criterion 1:", "1.", "2."
- Limits: "Maximum 5000 characters", "Max 3 pages", "Word limit: 2000"
- Requirements: "Mandatory", "Required", "Optional", "If applicable"

IMPORTANT:
- Extract ALL sections mentioned in the document
- If no limit is specified, use null

DOCUMENT TEXT:
%s

OUTPUT FORMAT (JSON ONLY):
{
  "sections": [
    {
      "key": "excellence",
      "name": "1. Excellence",
      "order": 1,
      "char_limit": 5000,
      "mandatory": true,
      "description": "string",
      "subsections": []
    }
  ]
}

Return ONLY valid JSON, no other text.`, documentText)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
