package eu

import (
	"testing"
	"time"

	"github.com/moritz/grantflow/internal/models"
)

func TestFilterExpired_GracePeriodBoundary(t *testing.T) {
	today := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	boundary := models.Opportunity{CallID: "B", Deadline: "Jan 8, 2026"}  // today - 7d
	expired := models.Opportunity{CallID: "E", Deadline: "Jan 7, 2026"}   // today - 8d
	future := models.Opportunity{CallID: "F", Deadline: "Feb 1, 2026"}

	kept := FilterExpired([]models.Opportunity{boundary, expired, future}, today)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].CallID != "B" || kept[1].CallID != "F" {
		t.Fatalf("unexpected survivors: %+v", kept)
	}
}

func TestFilterExpired_LongExpiredDiscarded(t *testing.T) {
	today := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	opps := []models.Opportunity{{CallID: "OLD", Deadline: "Jan 1, 2020"}}

	if kept := FilterExpired(opps, today); len(kept) != 0 {
		t.Fatalf("expected old opportunity to be discarded, got %+v", kept)
	}
}

func TestFilterExpired_SentinelsKept(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, sentinel := range []string{"", "Unknown", "TBD", "undefined"} {
		opps := []models.Opportunity{{CallID: "S", Deadline: sentinel}}
		if kept := FilterExpired(opps, today); len(kept) != 1 {
			t.Fatalf("sentinel %q must be kept", sentinel)
		}
	}
}

func TestFilterExpired_UnparseableKept(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	opps := []models.Opportunity{{CallID: "X", Deadline: "Visit portal for deadline"}}

	if kept := FilterExpired(opps, today); len(kept) != 1 {
		t.Fatal("unparseable deadline must fail open")
	}
}

func TestFilterExpired_PreservesOrder(t *testing.T) {
	today := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	opps := []models.Opportunity{
		{CallID: "1", Deadline: "Feb 1, 2026"},
		{CallID: "2"},
		{CallID: "3", Deadline: "Mar 1, 2026"},
	}

	kept := FilterExpired(opps, today)
	if len(kept) != 3 {
		t.Fatalf("expected all kept, got %d", len(kept))
	}
	for i, want := range []string{"1", "2", "3"} {
		if kept[i].CallID != want {
			t.Fatalf("order changed: %+v", kept)
		}
	}
}
