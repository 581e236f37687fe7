package db

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildOpportunityWhere_NoFilters(t *testing.T) {
	where, args := buildOpportunityWhere(ListParams{})

	if where != "WHERE 1=1" {
		t.Fatalf("unexpected clause: %s", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildOpportunityWhere_StatusAll(t *testing.T) {
	where, args := buildOpportunityWhere(ListParams{Status: "all"})

	if strings.Contains(where, "status =") {
		t.Fatalf("status 'all' must not add a filter: %s", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildOpportunityWhere_CombinedFilters(t *testing.T) {
	where, args := buildOpportunityWhere(ListParams{
		Query:  "climate",
		Source: "EU Funding Portal",
		Status: "Open",
	})

	for _, token := range []string{
		"title ILIKE '%' || $1 || '%'",
		"description ILIKE '%' || $1 || '%'",
		"source = $2",
		"status = $3",
	} {
		if !strings.Contains(where, token) {
			t.Fatalf("clause missing %q: %s", token, where)
		}
	}

	want := []interface{}{"climate", "EU Funding Portal", "Open"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
}

func TestSanitizeStringSlice(t *testing.T) {
	got := sanitizeStringSlice([]string{" AI ", "", "  ", "health"})
	want := []string{"AI", "health"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
