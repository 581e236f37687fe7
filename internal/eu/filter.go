package eu

import (
	"time"

	"github.com/moritz/grantflow/internal/models"
)

// graceDays is the tolerance for stale upstream data: a call whose deadline
// passed within the last week is still shown. Fixed on purpose; this is a
// safety filter, not a "hide closed calls" filter.
const graceDays = 7

// deadline strings some call sites substitute for "unknown"; all are kept.
var unknownDeadlines = map[string]bool{
	"":          true,
	"Unknown":   true,
	"TBD":       true,
	"undefined": true,
}

// FilterExpired drops opportunities whose deadline is more than seven days
// before today. Opportunities with no deadline, a sentinel value, or an
// unparseable deadline are kept (fail open — they may be rolling calls).
func FilterExpired(opps []models.Opportunity, today time.Time) []models.Opportunity {
	grace := midnight(today).AddDate(0, 0, -graceDays)

	kept := make([]models.Opportunity, 0, len(opps))
	for _, opp := range opps {
		if keepForDeadline(opp, grace) {
			kept = append(kept, opp)
		}
	}
	return kept
}

func keepForDeadline(opp models.Opportunity, grace time.Time) bool {
	if unknownDeadlines[opp.Deadline] {
		return true
	}

	dt, ok := ParseDate(opp.Deadline)
	if !ok {
		return true
	}

	return !midnight(dt).Before(grace)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
