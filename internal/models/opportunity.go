package models

import "time"

// Opportunity statuses as shown to users. The upstream portal encodes these
// as numeric codes; see internal/eu for the mapping.
const (
	StatusOpen     = "Open"
	StatusUpcoming = "Upcoming"
	StatusClosed   = "Closed"
)

// Opportunity is a normalized funding call. CallID is the upstream call
// identifier (e.g. "HORIZON-CL4-2025-04-DATA-03") and acts as the natural
// key for persistence.
type Opportunity struct {
	CallID      string `json:"call_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Status      string `json:"status"`

	// Deadline is a display string ("Jan 15, 2026"); empty means unknown.
	// DeadlineAt carries the parsed value when available.
	Deadline   string     `json:"deadline,omitempty"`
	DeadlineAt *time.Time `json:"deadline_at,omitempty"`

	Budget        string `json:"budget"`
	FundingEntity string `json:"funding_entity"`
	Topic         string `json:"topic"`
	CCMID         string `json:"ccm_id,omitempty"`

	OpeningDate  *time.Time `json:"opening_date,omitempty"`
	LastEnriched *time.Time `json:"last_enriched,omitempty"`

	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
