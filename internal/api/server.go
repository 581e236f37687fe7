package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/moritz/grantflow/internal/ai"
	"github.com/moritz/grantflow/internal/db"
	"github.com/moritz/grantflow/internal/eu"
	"github.com/moritz/grantflow/internal/ingest"
)

type Server struct {
	Store    *db.Store
	Echo     *echo.Echo
	DB       *pgxpool.Pool
	AI       *ai.GeminiClient
	EU       *eu.Client
	Scraper  *ingest.Scraper
	Registry *ingest.Registry

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"` // running, completed, failed
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:5173"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	aiClient := ai.NewGeminiClient(os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))

	registry, err := ingest.LoadRegistry("internal/ingest/config/sources.yaml")
	if err != nil {
		log.Printf("failed to load source registry: %v", err)
		registry = &ingest.Registry{}
	}

	s := &Server{
		DB:       pool,
		Store:    db.NewStore(pool),
		Echo:     e,
		AI:       aiClient,
		EU:       eu.NewClient(""),
		Scraper:  ingest.NewScraper(),
		Registry: registry,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.POST("/search", s.handleSearch)
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:call_id", s.handleGetOpportunity)
	api.GET("/sources", s.handleGetSources)
	api.GET("/stats", s.handleGetStats)

	api.GET("/partners", s.handleListPartners)
	api.POST("/partners", s.handleCreatePartner)
	api.GET("/partners/:id", s.handleGetPartner)
	api.PUT("/partners/:id", s.handleUpdatePartner)
	api.DELETE("/partners/:id", s.handleDeletePartner)
	api.POST("/partners/rank", s.handleRankPartners)

	api.POST("/ideas", s.handleGenerateIdeas)
	api.POST("/ideas/validate", s.handleValidateRelevance)

	api.GET("/proposals", s.handleListProposals)
	api.POST("/proposals/generate", s.handleGenerateProposal)
	api.GET("/proposals/:id", s.handleGetProposal)
	api.PUT("/proposals/:id", s.handleUpdateProposal)
	api.DELETE("/proposals/:id", s.handleDeleteProposal)

	api.GET("/schemes", s.handleListSchemes)
	api.POST("/schemes", s.handleCreateScheme)
	api.GET("/schemes/:id", s.handleGetScheme)
	api.DELETE("/schemes/:id", s.handleDeleteScheme)
	api.POST("/schemes/:id/parse-template", s.handleParseTemplate)

	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/enrich", s.handleEnrichOpportunities)
	admin.POST("/scrape", s.handleScrapeSources)
	admin.POST("/scrape/:id", s.handleScrapeSourceByID)
	admin.GET("/job/:id", s.handleJobStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	job := s.runningJob
	s.jobMu.Unlock()

	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	s.jobMu.Lock()
	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	s.jobMu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		// Check X-Admin-Secret header or Bearer token
		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
