package match

import (
	"reflect"
	"testing"

	"github.com/moritz/grantflow/internal/models"
)

func TestRank_EmptyContextKeepsOriginalOrder(t *testing.T) {
	partners := []models.Partner{
		{Name: "Gamma", Keywords: []string{"AI"}},
		{Name: "Alpha", Description: "machine learning"},
		{Name: "Beta"},
	}

	scored := Rank(partners, "")
	if len(scored) != 3 {
		t.Fatalf("expected 3 partners, got %d", len(scored))
	}
	for i, sp := range scored {
		if sp.Name != partners[i].Name {
			t.Fatalf("position %d: expected %s, got %s", i, partners[i].Name, sp.Name)
		}
		if sp.RelevanceScore != 0 {
			t.Fatalf("expected score 0 for %s, got %d", sp.Name, sp.RelevanceScore)
		}
		if len(sp.MatchReasons) != 0 {
			t.Fatalf("expected no reasons for %s, got %v", sp.Name, sp.MatchReasons)
		}
	}
}

func TestRank_KeywordScoresTenPoints(t *testing.T) {
	partners := []models.Partner{
		{Name: "A", Keywords: []string{"AI"}},
		{Name: "B", Description: "machine learning research"},
	}

	scored := Rank(partners, "AI research proposal")

	if scored[0].Name != "A" {
		t.Fatalf("expected A first, got %s", scored[0].Name)
	}
	if scored[0].RelevanceScore != 10 {
		t.Fatalf("expected A score 10, got %d", scored[0].RelevanceScore)
	}
	if scored[1].RelevanceScore < 1 {
		t.Fatalf("expected B to score at least 1 for token overlap, got %d", scored[1].RelevanceScore)
	}
	if got := scored[0].MatchReasons; len(got) != 1 || got[0] != "Keyword match: AI" {
		t.Fatalf("unexpected reasons: %v", got)
	}
}

func TestRank_KeywordDominatesTokenOverlap(t *testing.T) {
	// Nine distinct long tokens all present in B's description: 9 points,
	// still below a single keyword hit.
	context := "climate energy transport water health digital security mobility biodiversity"
	partners := []models.Partner{
		{Name: "B", Description: "climate energy transport water health digital security mobility biodiversity"},
		{Name: "A", Keywords: []string{"climate"}},
	}

	scored := Rank(partners, context)
	if scored[0].Name != "A" {
		t.Fatalf("expected keyword partner first, got %s (scores: %d vs %d)",
			scored[0].Name, scored[0].RelevanceScore, scored[1].RelevanceScore)
	}
	if scored[1].RelevanceScore != 9 {
		t.Fatalf("expected B score 9, got %d", scored[1].RelevanceScore)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	partners := []models.Partner{
		{Name: "First", Description: "research institute"},
		{Name: "Second", Description: "research laboratory"},
		{Name: "Third", Description: "research center"},
	}

	scored := Rank(partners, "joint research effort")
	var names []string
	for _, sp := range scored {
		names = append(names, sp.Name)
	}
	if !reflect.DeepEqual(names, []string{"First", "Second", "Third"}) {
		t.Fatalf("tie order not preserved: %v", names)
	}
}

func TestRank_Deterministic(t *testing.T) {
	partners := []models.Partner{
		{Name: "A", Keywords: []string{"robotics", "automation"}, Description: "industrial robotics"},
		{Name: "B", Experience: "automation projects across manufacturing"},
		{Name: "C"},
	}
	context := "robotics and automation for manufacturing lines"

	first := Rank(partners, context)
	for i := 0; i < 5; i++ {
		again := Rank(partners, context)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestRank_ReasonsCappedAtThree(t *testing.T) {
	partners := []models.Partner{
		{Name: "A", Keywords: []string{"water", "energy", "climate", "health"}},
	}

	scored := Rank(partners, "water energy climate health systems")
	if scored[0].RelevanceScore != 40 {
		t.Fatalf("expected 40 points for four keyword hits, got %d", scored[0].RelevanceScore)
	}
	if len(scored[0].MatchReasons) != 3 {
		t.Fatalf("expected reasons capped at 3, got %d", len(scored[0].MatchReasons))
	}
	// First three in keyword declaration order.
	want := []string{"Keyword match: water", "Keyword match: energy", "Keyword match: climate"}
	if !reflect.DeepEqual(scored[0].MatchReasons, want) {
		t.Fatalf("unexpected reasons: %v", scored[0].MatchReasons)
	}
}

func TestRank_ShortTokensIgnored(t *testing.T) {
	partners := []models.Partner{
		{Name: "A", Description: "the and for are all too short to match"},
	}

	// Every context token has length <= 3 and must be discarded.
	scored := Rank(partners, "the and for are")
	if scored[0].RelevanceScore != 0 {
		t.Fatalf("expected 0, got %d", scored[0].RelevanceScore)
	}
}

func TestRank_RepeatedTokensCountOnce(t *testing.T) {
	partners := []models.Partner{
		{Name: "A", Description: "research on research about research"},
	}

	scored := Rank(partners, "research research research")
	if scored[0].RelevanceScore != 1 {
		t.Fatalf("expected repeated context token to count once, got %d", scored[0].RelevanceScore)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	partners := []models.Partner{
		{Name: "Zed", Description: "energy storage"},
		{Name: "Ace", Keywords: []string{"energy"}},
	}
	snapshot := make([]models.Partner, len(partners))
	copy(snapshot, partners)

	Rank(partners, "energy storage systems")

	if !reflect.DeepEqual(partners, snapshot) {
		t.Fatal("input slice was mutated")
	}
}
