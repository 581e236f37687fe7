package eu

import (
	"testing"

	"github.com/moritz/grantflow/internal/models"
)

func rawWith(md RawMetadata) RawRecord {
	return RawRecord{Language: "en", Metadata: md}
}

func TestNormalize_FieldMapping(t *testing.T) {
	raw := []RawRecord{rawWith(RawMetadata{
		Identifier:             []string{"HORIZON-CL4-2025-04-DATA-03"},
		Title:                  []string{"Data spaces for smart communities"},
		DescriptionByte:        []string{"<p>Hello <b>world</b></p>"},
		Status:                 []string{"31094502"},
		DeadlineDate:           []string{"2026-03-01"},
		FrameworkProgramme:     []string{"HORIZON"},
		DestinationDescription: []string{"Digital and Industry"},
		CCM2ID:                 []string{"45812"},
		BudgetTopicActionSub:   []string{"EUR 12 000 000"},
	})}

	opps := Normalize(raw)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.CallID != "HORIZON-CL4-2025-04-DATA-03" {
		t.Errorf("call_id: got %q", opp.CallID)
	}
	if opp.Description != "Hello world" {
		t.Errorf("description: got %q", opp.Description)
	}
	if opp.Status != models.StatusUpcoming {
		t.Errorf("status: got %q", opp.Status)
	}
	if opp.Deadline != "Mar 1, 2026" {
		t.Errorf("deadline: got %q", opp.Deadline)
	}
	if opp.URL != topicDetailsBase+"HORIZON-CL4-2025-04-DATA-03" {
		t.Errorf("url: got %q", opp.URL)
	}
	if opp.Budget != "EUR 12 000 000" {
		t.Errorf("budget: got %q", opp.Budget)
	}
	if opp.FundingEntity != "HORIZON" {
		t.Errorf("funding_entity: got %q", opp.FundingEntity)
	}
	if opp.Topic != "Digital and Industry" {
		t.Errorf("topic: got %q", opp.Topic)
	}
	if opp.CCMID != "45812" {
		t.Errorf("ccm_id: got %q", opp.CCMID)
	}
	if opp.Source != SourceName {
		t.Errorf("source: got %q", opp.Source)
	}
}

func TestNormalize_MissingFieldsUseDefaults(t *testing.T) {
	opps := Normalize([]RawRecord{rawWith(RawMetadata{})})
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.CallID != "Unknown" {
		t.Errorf("call_id default: got %q", opp.CallID)
	}
	if opp.Title != "Untitled" {
		t.Errorf("title default: got %q", opp.Title)
	}
	if opp.Status != models.StatusOpen {
		t.Errorf("status default: got %q", opp.Status)
	}
	if opp.Deadline != "" {
		t.Errorf("deadline default: got %q", opp.Deadline)
	}
	if opp.Budget != "See details" {
		t.Errorf("budget default: got %q", opp.Budget)
	}
	if opp.FundingEntity != "EU" {
		t.Errorf("funding_entity default: got %q", opp.FundingEntity)
	}
	if opp.Topic != "General" {
		t.Errorf("topic default: got %q", opp.Topic)
	}
}

func TestNormalize_StatusCodes(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"31094501", models.StatusOpen}, // Open is the implicit default
		{"31094502", models.StatusUpcoming},
		{"31094503", models.StatusClosed},
		{"99999999", models.StatusOpen}, // unrecognized falls through to Open
		{"", models.StatusOpen},
	}

	for _, tc := range cases {
		var md RawMetadata
		if tc.code != "" {
			md.Status = []string{tc.code}
		}
		got := Normalize([]RawRecord{rawWith(md)})[0].Status
		if got != tc.want {
			t.Errorf("code %q: expected %s, got %s", tc.code, tc.want, got)
		}
	}
}

func TestNormalize_LanguageFilter(t *testing.T) {
	mixed := []RawRecord{
		{Language: "de", Metadata: RawMetadata{Identifier: []string{"DE-1"}}},
		{Language: "en", Metadata: RawMetadata{Identifier: []string{"EN-1"}}},
		{Language: "fr", Metadata: RawMetadata{Identifier: []string{"FR-1"}}},
	}

	opps := Normalize(mixed)
	if len(opps) != 1 || opps[0].CallID != "EN-1" {
		t.Fatalf("expected only the English record, got %+v", opps)
	}

	// No English records at all: keep everything rather than return nothing.
	noEnglish := []RawRecord{
		{Language: "de", Metadata: RawMetadata{Identifier: []string{"DE-1"}}},
		{Language: "fr", Metadata: RawMetadata{Identifier: []string{"FR-1"}}},
	}
	opps = Normalize(noEnglish)
	if len(opps) != 2 {
		t.Fatalf("expected fallback to all records, got %d", len(opps))
	}
}

func TestNormalize_DedupPrefersKnownDeadline(t *testing.T) {
	withDeadline := rawWith(RawMetadata{
		Identifier:   []string{"X1"},
		DeadlineDate: []string{"2026-03-01"},
	})
	withoutDeadline := rawWith(RawMetadata{
		Identifier: []string{"X1"},
	})

	for _, order := range [][]RawRecord{
		{withDeadline, withoutDeadline},
		{withoutDeadline, withDeadline},
	} {
		opps := Normalize(order)
		if len(opps) != 1 {
			t.Fatalf("expected 1 after dedup, got %d", len(opps))
		}
		if opps[0].Deadline != "Mar 1, 2026" {
			t.Fatalf("expected deadline-bearing record to survive, got %q", opps[0].Deadline)
		}
	}
}

func TestNormalize_DedupKeepsFirstSeenOrder(t *testing.T) {
	raw := []RawRecord{
		rawWith(RawMetadata{Identifier: []string{"A"}}),
		rawWith(RawMetadata{Identifier: []string{"B"}}),
		rawWith(RawMetadata{Identifier: []string{"A"}, DeadlineDate: []string{"2026-05-01"}}),
		rawWith(RawMetadata{Identifier: []string{"C"}}),
		rawWith(RawMetadata{Identifier: []string{"B"}}),
	}

	opps := Normalize(raw)
	var ids []string
	for _, o := range opps {
		ids = append(ids, o.CallID)
	}
	if len(ids) != 3 || ids[0] != "A" || ids[1] != "B" || ids[2] != "C" {
		t.Fatalf("first-seen order not preserved: %v", ids)
	}
	if opps[0].Deadline != "May 1, 2026" {
		t.Fatalf("A should carry the deadline from its later duplicate, got %q", opps[0].Deadline)
	}
}

func TestNormalize_NoDuplicatesIsIdentity(t *testing.T) {
	raw := []RawRecord{
		rawWith(RawMetadata{Identifier: []string{"A"}, Title: []string{"First"}}),
		rawWith(RawMetadata{Identifier: []string{"B"}, Title: []string{"Second"}}),
	}

	opps := Normalize(raw)
	if len(opps) != 2 || opps[0].Title != "First" || opps[1].Title != "Second" {
		t.Fatalf("dedup changed a duplicate-free list: %+v", opps)
	}
}

func TestNormalize_ActionsDeadlinePreferred(t *testing.T) {
	raw := []RawRecord{rawWith(RawMetadata{
		Identifier:   []string{"X1"},
		Actions:      []string{`[{"deadlineDates":["2026-09-15"],"status":{"description":"Open"}}]`},
		DeadlineDate: []string{"2026-01-01"},
	})}

	opps := Normalize(raw)
	if opps[0].Deadline != "Sep 15, 2026" {
		t.Fatalf("expected actions deadline to win, got %q", opps[0].Deadline)
	}
}

func TestNormalize_MalformedActionsFallsBack(t *testing.T) {
	raw := []RawRecord{rawWith(RawMetadata{
		Identifier:   []string{"X1"},
		Actions:      []string{`{not json`},
		DeadlineDate: []string{"2026-01-01"},
	})}

	opps := Normalize(raw)
	if opps[0].Deadline != "Jan 1, 2026" {
		t.Fatalf("expected fallback to deadlineDate, got %q", opps[0].Deadline)
	}
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML("<p>Hello <b>world</b></p>"); got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}

func TestStripHTML_TruncatesWithoutEllipsis(t *testing.T) {
	long := make([]byte, 0, 600)
	for i := 0; i < 600; i++ {
		long = append(long, 'a')
	}

	got := StripHTML(string(long))
	if len(got) != maxDescriptionLen {
		t.Fatalf("expected %d chars, got %d", maxDescriptionLen, len(got))
	}
	if got[len(got)-3:] == "..." {
		t.Fatal("truncation must not append an ellipsis")
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Fatalf("expected empty output, got %d", len(got))
	}
}
