package eu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/moritz/grantflow/internal/models"
)

// DefaultTopicURL is the per-topic detail endpoint keyed by ccmId. It
// returns fresher deadline/status data than the bulk search index.
const DefaultTopicURL = "https://ec.europa.eu/info/funding-tenders/opportunities/api/topicProjectsList.json?topicId=%s"

// enrichDelay spaces out per-topic requests to stay under the portal's rate
// limits during batch enrichment.
const enrichDelay = 200 * time.Millisecond

// topicProjectsResponse carries a stringified JSON "actions" field.
type topicProjectsResponse struct {
	Actions string `json:"actions"`
}

// Enrich refreshes one opportunity's status, deadline and opening date from
// the topic detail endpoint. Failures are non-fatal: the base record comes
// back unchanged apart from the enrichment timestamp, so a flaky upstream
// never loses data we already have.
func (c *Client) Enrich(ctx context.Context, opp models.Opportunity) (models.Opportunity, error) {
	now := time.Now().UTC()
	opp.LastEnriched = &now

	if opp.CCMID == "" {
		return opp, fmt.Errorf("no ccmId for %s", opp.CallID)
	}

	endpoint := fmt.Sprintf(c.TopicURL, opp.CCMID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return opp, fmt.Errorf("create enrich request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return opp, fmt.Errorf("enrich request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return opp, fmt.Errorf("topic endpoint returned %d for %s", resp.StatusCode, opp.CallID)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return opp, fmt.Errorf("read enrich response: %w", err)
	}

	var parsed topicProjectsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return opp, fmt.Errorf("decode enrich response: %w", err)
	}
	if parsed.Actions == "" {
		return opp, fmt.Errorf("no action data for %s", opp.CallID)
	}

	var actions []rawAction
	if err := json.Unmarshal([]byte(parsed.Actions), &actions); err != nil {
		return opp, fmt.Errorf("decode actions payload: %w", err)
	}
	if len(actions) == 0 {
		return opp, fmt.Errorf("empty actions payload for %s", opp.CallID)
	}

	action := actions[0]
	if action.Status.Description != "" {
		opp.Status = action.Status.Description
	} else if action.Status.Abbreviation != "" {
		opp.Status = action.Status.Abbreviation
	}
	if len(action.DeadlineDates) > 0 {
		if dt, ok := ParseDate(action.DeadlineDates[0]); ok {
			opp.Deadline = dt.Format(DeadlineDisplayFormat)
			opp.DeadlineAt = &dt
		}
	}
	if action.PlannedOpeningDate != "" {
		if dt, ok := ParseDate(action.PlannedOpeningDate); ok {
			opp.OpeningDate = &dt
		}
	}

	return opp, nil
}

// EnrichStats summarizes a batch enrichment run.
type EnrichStats struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// EnrichBatch enriches opportunities one at a time with a small delay between
// requests. onProgress, if non-nil, is called after each item.
func (c *Client) EnrichBatch(ctx context.Context, opps []models.Opportunity, onProgress func(done, total int)) ([]models.Opportunity, EnrichStats) {
	stats := EnrichStats{Total: len(opps)}
	results := make([]models.Opportunity, 0, len(opps))

	for i, opp := range opps {
		if err := ctx.Err(); err != nil {
			// Keep what we have; the caller sees partial results.
			results = append(results, opps[i:]...)
			break
		}

		if opp.CCMID == "" {
			stats.Skipped++
			results = append(results, opp)
		} else {
			enriched, err := c.Enrich(ctx, opp)
			if err != nil {
				log.Printf("[enrich] %s: %v", opp.CallID, err)
				stats.Errors++
			} else {
				stats.Enriched++
			}
			results = append(results, enriched)
		}

		if onProgress != nil {
			onProgress(i+1, stats.Total)
		}
		if i < len(opps)-1 {
			select {
			case <-time.After(enrichDelay):
			case <-ctx.Done():
			}
		}
	}

	return results, stats
}
