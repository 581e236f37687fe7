package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/moritz/grantflow/internal/models"
)

type stubGenerator struct {
	jsonResp string
	jsonErr  error
	textResp string
	textErr  error

	jsonCalls int
	textCalls int
}

func (s *stubGenerator) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	if jsonMode {
		s.jsonCalls++
		return s.jsonResp, s.jsonErr
	}
	s.textCalls++
	return s.textResp, s.textErr
}

func TestExtractFirstJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"leading prose", `Here you go: {"a":1} hope that helps`, `{"a":1}`, true},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"braces inside strings", `{"a":"{not a brace}"}`, `{"a":"{not a brace}"}`, true},
		{"escaped quotes", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", `just text`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractFirstJSONObject(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCleanJSONResponseStripsFences(t *testing.T) {
	input := "```json\n{\"title\":\"x\"}\n```"
	got, ok := cleanJSONResponse(input)
	if !ok {
		t.Fatal("expected JSON to be found")
	}
	if got != `{"title":"x"}` {
		t.Errorf("got %q", got)
	}
}

func TestGenerateIdeasParsesList(t *testing.T) {
	gen := &stubGenerator{
		jsonResp: `{"ideas":[{"title":"Green roofs","description":"Urban cooling"},{"title":"Solar co-ops","description":"Community energy"}]}`,
	}

	ideas, err := GenerateIdeas(context.Background(), gen, "call summary", models.Constraints{}, "")
	if err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	if len(ideas) != 2 {
		t.Fatalf("expected 2 ideas, got %d", len(ideas))
	}
	if ideas[0].Title != "Green roofs" {
		t.Errorf("first idea title = %q", ideas[0].Title)
	}
	if gen.textCalls != 0 {
		t.Errorf("text mode should not be used when JSON mode succeeds")
	}
}

func TestGenerateIdeasFallsBackToTextMode(t *testing.T) {
	gen := &stubGenerator{
		jsonErr:  errors.New("json mode unsupported"),
		textResp: "Sure! ```json\n{\"ideas\":[{\"title\":\"A\",\"description\":\"B\"}]}\n```",
	}

	ideas, err := GenerateIdeas(context.Background(), gen, "summary", models.Constraints{}, "")
	if err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	if len(ideas) != 1 || ideas[0].Title != "A" {
		t.Fatalf("unexpected ideas: %+v", ideas)
	}
	if gen.jsonCalls != 1 || gen.textCalls != 1 {
		t.Errorf("calls: json=%d text=%d", gen.jsonCalls, gen.textCalls)
	}
}

func TestGenerateProposalAttachesIdea(t *testing.T) {
	gen := &stubGenerator{
		jsonResp: `{"title":"","summary":"S","objectives":"O"}`,
	}
	idea := models.Idea{Title: "Fallback title", Description: "D"}

	p, err := GenerateProposal(context.Background(), gen, idea, "summary", models.Constraints{}, nil)
	if err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}
	if p.Title != "Fallback title" {
		t.Errorf("empty title should fall back to the idea title, got %q", p.Title)
	}
	if p.SelectedIdea == nil || p.SelectedIdea.Title != "Fallback title" {
		t.Errorf("selected idea not attached: %+v", p.SelectedIdea)
	}
}

func TestValidateRelevance(t *testing.T) {
	gen := &stubGenerator{
		jsonResp: `{"score":"Good","justification":"Strong thematic fit"}`,
	}

	v, err := ValidateRelevance(context.Background(), gen, "https://example.org", "content", models.Constraints{}, nil)
	if err != nil {
		t.Fatalf("ValidateRelevance: %v", err)
	}
	if v.Score != "Good" {
		t.Errorf("score = %q", v.Score)
	}
}

func TestExtractTemplateSections(t *testing.T) {
	gen := &stubGenerator{
		jsonResp: `{"sections":[{"key":"excellence","name":"Excellence","order":1,"mandatory":true}]}`,
	}

	sections, err := ExtractTemplateSections(context.Background(), gen, "doc text")
	if err != nil {
		t.Fatalf("ExtractTemplateSections: %v", err)
	}
	if len(sections) != 1 || sections[0].Key != "excellence" {
		t.Fatalf("unexpected sections: %+v", sections)
	}
}
