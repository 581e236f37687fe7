package eu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moritz/grantflow/internal/models"
)

func TestClient_SearchSendsBooleanQuery(t *testing.T) {
	var gotPayload map[string]interface{}
	var gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotQuery = r.URL.Query().Get("text")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"language": "en", "metadata": map[string]interface{}{"identifier": []string{"X1"}}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/search?apiKey=TEST")
	records, err := c.Search(context.Background(), "ocean energy")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if gotQuery != "ocean energy" {
		t.Errorf("text param: got %q", gotQuery)
	}
	if _, ok := gotPayload["bool"]; !ok {
		t.Errorf("payload missing bool query: %v", gotPayload)
	}
	if len(records) != 1 || records[0].Metadata.Identifier[0] != "X1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestClient_SearchNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestClient_EnrichAppliesActionData(t *testing.T) {
	actions := `[{"status":{"description":"Forthcoming"},"deadlineDates":["2026-09-15"],"plannedOpeningDate":"2026-04-01"}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("topicId") != "45812" {
			t.Errorf("topicId: got %q", r.URL.Query().Get("topicId"))
		}
		json.NewEncoder(w).Encode(map[string]string{"actions": actions})
	}))
	defer srv.Close()

	c := NewClient("")
	c.TopicURL = srv.URL + "/topicProjectsList.json?topicId=%s"

	opp, err := c.Enrich(context.Background(), models.Opportunity{CallID: "X1", CCMID: "45812"})
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if opp.Status != "Forthcoming" {
		t.Errorf("status: got %q", opp.Status)
	}
	if opp.Deadline != "Sep 15, 2026" {
		t.Errorf("deadline: got %q", opp.Deadline)
	}
	if opp.OpeningDate == nil {
		t.Error("expected opening date to be set")
	}
	if opp.LastEnriched == nil {
		t.Error("expected last_enriched to be set")
	}
}

func TestClient_EnrichWithoutCCMIDFails(t *testing.T) {
	c := NewClient("")
	opp, err := c.Enrich(context.Background(), models.Opportunity{CallID: "X1"})
	if err == nil {
		t.Fatal("expected error for missing ccmId")
	}
	// Base record survives enrichment failure.
	if opp.CallID != "X1" {
		t.Fatalf("base record lost: %+v", opp)
	}
}
