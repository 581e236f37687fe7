package eu

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/moritz/grantflow/internal/models"
)

const (
	// SourceName labels opportunities that came from the portal search API.
	SourceName = "EU Funding Portal"

	topicDetailsBase = "https://ec.europa.eu/info/funding-tenders/opportunities/portal/screen/opportunities/topic-details/"

	// Upstream numeric status codes. 31094501 (Open) deliberately has no
	// explicit branch: any unrecognized or missing code falls through to
	// the Open default, matching observed portal behavior.
	statusCodeUpcoming = "31094502"
	statusCodeClosed   = "31094503"

	maxDescriptionLen = 500

	// DeadlineDisplayFormat renders parsed deadlines, e.g. "Jan 15, 2026".
	DeadlineDisplayFormat = "Jan 2, 2006"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize maps raw search results into opportunities and deduplicates them
// by call identifier. It performs no I/O and never fails: missing or
// malformed fields degrade to documented defaults so one bad upstream record
// cannot abort the rest.
//
// When any record is English the non-English ones are dropped; when none are,
// all records are kept rather than returning an empty set on missing
// language metadata.
//
// Output preserves the insertion order of first-seen call identifiers. A
// duplicate replaces an earlier entry only when it has a known deadline and
// the earlier entry does not.
func Normalize(raw []RawRecord) []models.Opportunity {
	records := filterEnglish(raw)

	index := make(map[string]int, len(records))
	var out []models.Opportunity

	for _, rec := range records {
		opp := mapRecord(rec)

		at, ok := index[opp.CallID]
		if !ok {
			index[opp.CallID] = len(out)
			out = append(out, opp)
			continue
		}
		if opp.Deadline != "" && out[at].Deadline == "" {
			out[at] = opp
		}
	}

	return out
}

func filterEnglish(records []RawRecord) []RawRecord {
	var english []RawRecord
	for _, rec := range records {
		if rec.Language == "en" {
			english = append(english, rec)
		}
	}
	if len(english) > 0 {
		return english
	}
	return records
}

func mapRecord(rec RawRecord) models.Opportunity {
	md := rec.Metadata
	callID := first(md.Identifier, "Unknown")

	opp := models.Opportunity{
		CallID:        callID,
		Title:         first(md.Title, "Untitled"),
		Description:   StripHTML(first(md.DescriptionByte, "")),
		URL:           topicDetailsBase + callID,
		Source:        SourceName,
		Status:        mapStatus(first(md.Status, "")),
		Budget:        first(md.BudgetTopicActionSub, "See details"),
		FundingEntity: first(md.FrameworkProgramme, "EU"),
		Topic:         first(md.DestinationDescription, "General"),
		CCMID:         first(md.CCM2ID, first(md.CCMID, "")),
	}

	if dt, ok := extractDeadline(md); ok {
		opp.Deadline = dt.Format(DeadlineDisplayFormat)
		opp.DeadlineAt = &dt
	}

	return opp
}

func mapStatus(code string) string {
	switch code {
	case statusCodeUpcoming:
		return models.StatusUpcoming
	case statusCodeClosed:
		return models.StatusClosed
	default:
		return models.StatusOpen
	}
}

// extractDeadline prefers the per-action deadline carried in the stringified
// actions payload, then falls back to the flat deadlineDate field.
func extractDeadline(md RawMetadata) (time.Time, bool) {
	if len(md.Actions) > 0 && md.Actions[0] != "" {
		var actions []rawAction
		if err := json.Unmarshal([]byte(md.Actions[0]), &actions); err == nil {
			if len(actions) > 0 && len(actions[0].DeadlineDates) > 0 {
				if dt, ok := ParseDate(actions[0].DeadlineDates[0]); ok {
					return dt, true
				}
			}
		}
	}

	if len(md.DeadlineDate) > 0 {
		if dt, ok := ParseDate(md.DeadlineDate[0]); ok {
			return dt, true
		}
	}

	return time.Time{}, false
}

// StripHTML removes tag sequences and truncates to the display limit. The
// truncation is literal, no ellipsis.
func StripHTML(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, "")
	runes := []rune(text)
	if len(runes) > maxDescriptionLen {
		return string(runes[:maxDescriptionLen])
	}
	return text
}

// dateLayouts covers the formats the portal and our own display strings use.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 January 2006",
	"2 January 2006",
}

// ParseDate tries the known upstream and display date layouts.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
