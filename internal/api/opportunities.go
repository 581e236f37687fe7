package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/moritz/grantflow/internal/db"
	"github.com/moritz/grantflow/internal/eu"
	"github.com/moritz/grantflow/internal/ingest"
	"github.com/moritz/grantflow/internal/models"
)

// unknownDeadlineDisplay is what clients see when a call has no usable
// deadline. Stored rows keep the empty string.
const unknownDeadlineDisplay = "Visit portal for deadline"

type customSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type searchRequest struct {
	Query         string         `json:"query"`
	CustomSources []customSource `json:"custom_sources,omitempty"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	ctx := c.Request().Context()

	records, err := s.EU.Search(ctx, req.Query)
	if err != nil {
		c.Logger().Errorf("Portal search failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Upstream portal search failed"})
	}

	opps := eu.Normalize(records)

	for _, src := range req.CustomSources {
		if src.URL == "" {
			continue
		}
		name := src.Name
		if name == "" {
			name = src.URL
		}
		scraped, err := s.Scraper.ScrapeSource(ctx, ingest.GenericConfig(name, src.URL))
		if err != nil {
			c.Logger().Errorf("Custom source %s failed: %v", name, err)
			continue
		}
		opps = append(opps, scraped...)
	}

	opps = eu.FilterExpired(opps, time.Now())

	s.embedOpportunities(ctx, opps)

	stored := 0
	for _, opp := range opps {
		if err := s.Store.UpsertOpportunity(ctx, opp); err != nil {
			c.Logger().Errorf("Upsert failed: %v", err)
			continue
		}
		stored++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"opportunities": displayOpportunities(opps),
		"total":         len(opps),
		"stored":        stored,
	})
}

// embedOpportunities attaches embeddings for semantic listing. Best effort;
// rows without embeddings still rank, just after the embedded ones.
func (s *Server) embedOpportunities(ctx context.Context, opps []models.Opportunity) {
	aiCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for i := range opps {
		text := opps[i].Title + "\n" + opps[i].Description
		vec, err := s.AI.GenerateEmbedding(aiCtx, text)
		if err != nil {
			log.Printf("embedding skipped for %s: %v", opps[i].CallID, err)
			return
		}
		opps[i].Embedding = vec
	}
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	q := c.QueryParam("q")

	limit := 20
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	// Generate embedding for semantic search
	var queryEmbedding []float32
	if q != "" {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		if err != nil {
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
			// Fall back to keyword search
		} else {
			queryEmbedding = vec
		}
	}

	result, err := s.Store.ListOpportunities(c.Request().Context(), db.ListParams{
		Query:          q,
		QueryEmbedding: queryEmbedding,
		Source:         c.QueryParam("source"),
		Status:         c.QueryParam("status"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		c.Logger().Errorf("Failed to list opportunities: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	result.Opportunities = displayOpportunities(result.Opportunities)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	opp, err := s.Store.GetOpportunityByCallID(c.Request().Context(), c.Param("call_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	view := *opp
	if view.Deadline == "" {
		view.Deadline = unknownDeadlineDisplay
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetSources(c echo.Context) error {
	sources, err := s.Store.GetSources(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleEnrichOpportunities(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "An enrichment job is already running",
			"job_id": job.ID,
		})
	}

	force := strings.EqualFold(c.QueryParam("force"), "true")

	batchSize := 200
	if raw := strings.TrimSpace(c.QueryParam("batch_size")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 2000 {
			batchSize = parsed
		}
	}

	// context.WithoutCancel detaches from HTTP lifecycle but preserves
	// trace values. We add our own timeout for safety.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.runningJob = job
	s.jobMu.Unlock()

	// Run in background goroutine; returns 202 immediately.
	go func() {
		defer jobCancel()

		result, err := s.runEnrichment(jobCtx, force, batchSize)

		s.jobMu.Lock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
		} else {
			job.Status = "completed"
			job.Result = result
		}
		s.jobMu.Unlock()

		if err != nil {
			log.Printf("[enrich-job %s] failed: %v", jobID, err)
		} else {
			log.Printf("[enrich-job %s] completed: %v", jobID, result)
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Enrichment job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/admin/job/%s", jobID),
	})
}

func (s *Server) runEnrichment(ctx context.Context, force bool, batchSize int) (map[string]interface{}, error) {
	listed, err := s.Store.ListOpportunities(ctx, db.ListParams{Status: "all", Limit: batchSize})
	if err != nil {
		return nil, fmt.Errorf("list for enrichment failed: %w", err)
	}

	var candidates []models.Opportunity
	for _, opp := range listed.Opportunities {
		if opp.CCMID == "" {
			continue
		}
		if !force && opp.Deadline != "" && opp.LastEnriched != nil {
			continue
		}
		candidates = append(candidates, opp)
	}

	enriched, stats := s.EU.EnrichBatch(ctx, candidates, func(done, total int) {
		if done%25 == 0 || done == total {
			log.Printf("enrichment progress: %d/%d", done, total)
		}
	})

	updated := 0
	for _, opp := range enriched {
		if err := s.Store.UpsertOpportunity(ctx, opp); err != nil {
			log.Printf("enrichment upsert failed for %s: %v", opp.CallID, err)
			continue
		}
		updated++
	}

	return map[string]interface{}{
		"scanned":  listed.Total,
		"eligible": stats.Total,
		"enriched": stats.Enriched,
		"skipped":  stats.Skipped,
		"errors":   stats.Errors,
		"updated":  updated,
	}, nil
}

func (s *Server) handleScrapeSources(c echo.Context) error {
	ctx := c.Request().Context()

	results := make(map[string]interface{}, len(s.Registry.Sources))
	for _, cfg := range s.Registry.Sources {
		count, err := s.scrapeAndStore(ctx, cfg)
		if err != nil {
			results[cfg.ID] = map[string]string{"error": err.Error()}
			continue
		}
		results[cfg.ID] = map[string]int{"stored": count}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Registry scrape complete",
		"results": results,
	})
}

func (s *Server) handleScrapeSourceByID(c echo.Context) error {
	sourceID := c.Param("id")

	for _, cfg := range s.Registry.Sources {
		if cfg.ID != sourceID {
			continue
		}
		count, err := s.scrapeAndStore(c.Request().Context(), cfg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": fmt.Sprintf("%s scrape complete", sourceID),
			"stored":  count,
		})
	}

	return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown source " + sourceID})
}

func (s *Server) scrapeAndStore(ctx context.Context, cfg ingest.SourceConfig) (int, error) {
	opps, err := s.Scraper.ScrapeSource(ctx, cfg)
	if err != nil {
		return 0, err
	}

	opps = eu.FilterExpired(opps, time.Now())

	stored := 0
	for _, opp := range opps {
		if err := s.Store.UpsertOpportunity(ctx, opp); err != nil {
			log.Printf("scrape upsert failed for %s: %v", opp.CallID, err)
			continue
		}
		stored++
	}
	return stored, nil
}

// displayOpportunities substitutes the placeholder deadline for client
// responses without touching the stored rows.
func displayOpportunities(opps []models.Opportunity) []models.Opportunity {
	out := make([]models.Opportunity, len(opps))
	copy(out, opps)
	for i := range out {
		if out[i].Deadline == "" {
			out[i].Deadline = unknownDeadlineDisplay
		}
	}
	return out
}
