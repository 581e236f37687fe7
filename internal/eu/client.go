package eu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultSearchURL is the SEDIA search endpoint. The apiKey query parameter
// is a public constant, not a secret.
const DefaultSearchURL = "https://api.tech.ec.europa.eu/search-api/prod/rest/search?apiKey=SEDIA"

const (
	defaultPageSize = 15
	defaultTimeout  = 30 * time.Second
)

// Client talks to the EU Funding & Tenders search API and the per-topic
// detail endpoint used for enrichment.
type Client struct {
	BaseURL    string
	TopicURL   string // format string taking the ccmId
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return &Client{
		BaseURL:    baseURL,
		TopicURL:   DefaultTopicURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// searchPayload restricts results to grant-like documents (types 1, 2, 8)
// that are open or upcoming.
func searchPayload() map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": []interface{}{
				map[string]interface{}{"terms": map[string]interface{}{"type": []string{"1", "2", "8"}}},
				map[string]interface{}{"terms": map[string]interface{}{"status": []string{"31094501", "31094502"}}},
			},
		},
	}
}

// Search runs a free-text query against the portal and returns the raw
// records. Normalization is a separate, pure step so callers can test it
// without network access.
func (c *Client) Search(ctx context.Context, query string) ([]RawRecord, error) {
	body, err := json.Marshal(searchPayload())
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s&text=%s&pageSize=%d&page=1",
		c.BaseURL, url.QueryEscape(query), defaultPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("EU search API returned %d: %s", resp.StatusCode, string(snippet))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return parsed.Results, nil
}
