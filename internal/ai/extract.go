package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/moritz/grantflow/internal/models"
)

// RelevanceVerdict is the model's judgement of idea/call alignment.
type RelevanceVerdict struct {
	Score         string `json:"score"` // Good, Fair, Poor
	Justification string `json:"justification"`
}

// GenerateIdeas produces candidate project ideas for a funding call.
func GenerateIdeas(ctx context.Context, gen Generator, summary string, constraints models.Constraints, userPrompt string) ([]models.Idea, error) {
	resp, err := generateJSON(ctx, gen, BuildIdeasPrompt(summary, constraints, userPrompt))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Ideas []models.Idea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ideas JSON: %w", err)
	}
	return parsed.Ideas, nil
}

// GenerateProposal produces a full proposal draft for the selected idea.
func GenerateProposal(ctx context.Context, gen Generator, idea models.Idea, summary string, constraints models.Constraints, partners []models.Partner) (*models.Proposal, error) {
	resp, err := generateJSON(ctx, gen, BuildProposalPrompt(idea, summary, constraints, partners))
	if err != nil {
		return nil, err
	}

	var proposal models.Proposal
	if err := json.Unmarshal([]byte(resp), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse proposal JSON: %w", err)
	}
	if proposal.Title == "" {
		proposal.Title = idea.Title
	}
	ideaCopy := idea
	proposal.SelectedIdea = &ideaCopy
	return &proposal, nil
}

// ValidateRelevance scores how well a set of ideas matches the call.
func ValidateRelevance(ctx context.Context, gen Generator, url, urlContent string, constraints models.Constraints, ideas []models.Idea) (*RelevanceVerdict, error) {
	resp, err := generateJSON(ctx, gen, BuildRelevancePrompt(url, urlContent, constraints, ideas))
	if err != nil {
		return nil, err
	}

	var verdict RelevanceVerdict
	if err := json.Unmarshal([]byte(resp), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse relevance JSON: %w", err)
	}
	return &verdict, nil
}

// ExtractTemplateSections pulls the application template structure out of a
// guideline document's plain text.
func ExtractTemplateSections(ctx context.Context, gen Generator, documentText string) ([]models.TemplateSection, error) {
	resp, err := generateJSON(ctx, gen, BuildTemplatePrompt(documentText))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Sections []models.TemplateSection `json:"sections"`
	}
	if err := json.Unmarshal([]byte(resp), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse template JSON: %w", err)
	}
	return parsed.Sections, nil
}

// generateJSON tries JSON mode first, then falls back to text mode with
// robust extraction; smaller models occasionally wrap JSON in prose or
// code fences either way.
func generateJSON(ctx context.Context, gen Generator, prompt string) (string, error) {
	resp, err := gen.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if cleaned, ok := cleanJSONResponse(resp); ok {
			return cleaned, nil
		}
		log.Printf("JSON mode returned non-JSON payload, retrying in text mode")
	} else {
		log.Printf("JSON mode generation failed: %v. Retrying with text mode...", err)
	}

	resp, err = gen.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return "", err
	}

	cleaned, ok := cleanJSONResponse(resp)
	if !ok {
		return "", fmt.Errorf("no JSON object in model response")
	}
	return cleaned, nil
}

// cleanJSONResponse strips markdown fences and extracts the first balanced
// JSON object.
func cleanJSONResponse(resp string) (string, bool) {
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	return extractFirstJSONObject(cleaned)
}

// extractFirstJSONObject finds the first outermost balanced {...}.
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
