package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/moritz/grantflow/internal/eu"
	"github.com/moritz/grantflow/internal/models"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper pulls funding calls out of custom source pages that the main
// portal does not cover.
type Scraper struct {
	UserAgent      string
	MaxRetries     int
	RequestTimeout time.Duration
	DomainDelay    time.Duration
	HTTPClient     *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		UserAgent:      defaultUserAgent,
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
		DomainDelay:    1 * time.Second,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Scraper) buildCollector(host string, cfg SourceConfig) *colly.Collector {
	timeout := s.RequestTimeout
	if cfg.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	delay := s.DomainDelay
	if cfg.Fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / cfg.Fetch.RateLimitRPS)
	}
	maxRetries := s.MaxRetries
	if cfg.Fetch.MaxRetries > 0 {
		maxRetries = cfg.Fetch.MaxRetries
	}

	c := colly.NewCollector(
		colly.UserAgent(s.UserAgent),
		colly.AllowedDomains(host),
		colly.MaxBodySize(10*1024*1024),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	c.SetRequestTimeout(timeout)

	c.OnError(func(r *colly.Response, err error) {
		if r.Request.Ctx.GetAny("retries") == nil {
			r.Request.Ctx.Put("retries", 0)
		}
		retries := r.Request.Ctx.GetAny("retries").(int)
		if retries < maxRetries {
			r.Request.Ctx.Put("retries", retries+1)
			log.Printf("[scrape] retry %d/%d for %s: %v", retries+1, maxRetries, r.Request.URL, err)
			time.Sleep(time.Duration(retries+1) * time.Second)
			r.Request.Retry()
		}
	})

	return c
}

// ScrapeSource visits a source's seed pages and extracts funding calls.
// The scraped link doubles as the call identifier since custom sources
// have no stable upstream IDs.
func (s *Scraper) ScrapeSource(ctx context.Context, cfg SourceConfig) ([]models.Opportunity, error) {
	if len(cfg.Seeds) == 0 {
		return nil, fmt.Errorf("source %s has no seed URLs", cfg.Name)
	}

	container := cfg.Selectors.Container
	if container == "" {
		container = "a[href]"
	}

	var opps []models.Opportunity
	seen := make(map[string]bool)

	for _, seed := range cfg.Seeds {
		if err := ctx.Err(); err != nil {
			return opps, err
		}

		parsed, err := url.Parse(seed)
		if err != nil {
			return nil, fmt.Errorf("invalid seed URL %s: %w", seed, err)
		}

		c := s.buildCollector(parsed.Hostname(), cfg)

		c.OnHTML(container, func(e *colly.HTMLElement) {
			opp, ok := s.extractCall(e, cfg)
			if !ok || seen[opp.CallID] {
				return
			}
			seen[opp.CallID] = true
			opps = append(opps, opp)
		})

		if err := c.Visit(seed); err != nil {
			return opps, fmt.Errorf("visit %s failed: %w", seed, err)
		}
		c.Wait()
	}

	return opps, nil
}

func (s *Scraper) extractCall(e *colly.HTMLElement, cfg SourceConfig) (models.Opportunity, bool) {
	var opp models.Opportunity

	link := e.Attr("href")
	if cfg.Selectors.Link != "" {
		if l := e.ChildAttr(cfg.Selectors.Link, "href"); l != "" {
			link = l
		}
	}
	if link == "" {
		return opp, false
	}
	link = e.Request.AbsoluteURL(link)

	title := strings.TrimSpace(e.Text)
	if cfg.Selectors.Title != "" {
		title = strings.TrimSpace(e.ChildText(cfg.Selectors.Title))
	}
	if title == "" {
		return opp, false
	}

	opp.CallID = link
	opp.Title = title
	opp.URL = link
	opp.Source = cfg.Name
	opp.Status = models.StatusOpen
	opp.FundingEntity = cfg.Name
	opp.Topic = "General"

	if cfg.Selectors.Content != "" {
		opp.Description = eu.StripHTML(e.ChildText(cfg.Selectors.Content))
	}

	if cfg.Selectors.Deadline != "" {
		raw := strings.TrimSpace(e.ChildText(cfg.Selectors.Deadline))
		if dt, ok := eu.ParseDate(raw); ok {
			opp.Deadline = dt.Format(eu.DeadlineDisplayFormat)
			opp.DeadlineAt = &dt
		} else if raw != "" {
			opp.Deadline = raw
		}
	}

	return opp, true
}

// FetchText downloads a page and returns its visible text, for feeding call
// pages to the model.
func (s *Scraper) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s failed: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s returned status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}

	return HTMLToText(string(body)), nil
}

// HTMLToText sanitizes HTML and converts it to plain text, collapsing
// whitespace.
func HTMLToText(html string) string {
	safe := bluemonday.UGCPolicy().Sanitize(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(safe))
	if err != nil {
		return collapseWhitespace(safe)
	}
	doc.Find("script, style, noscript").Remove()

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
