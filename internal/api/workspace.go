package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/moritz/grantflow/internal/ai"
	"github.com/moritz/grantflow/internal/match"
	"github.com/moritz/grantflow/internal/models"
)

// Partner profiles

func (s *Server) handleListPartners(c echo.Context) error {
	partners, err := s.Store.ListPartners(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, partners)
}

func (s *Server) handleCreatePartner(c echo.Context) error {
	var p models.Partner
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(p.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	if err := s.Store.CreatePartner(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetPartner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid partner ID"})
	}

	p, err := s.Store.GetPartner(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdatePartner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid partner ID"})
	}

	var p models.Partner
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	p.ID = id

	if err := s.Store.UpdatePartner(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeletePartner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid partner ID"})
	}

	if err := s.Store.DeletePartner(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

type rankRequest struct {
	Context string `json:"context"`
	CallID  string `json:"call_id,omitempty"`
}

func (s *Server) handleRankPartners(c echo.Context) error {
	var req rankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()

	rankCtx := req.Context
	if rankCtx == "" && req.CallID != "" {
		opp, err := s.Store.GetOpportunityByCallID(ctx, req.CallID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Call not found"})
		}
		rankCtx = buildCallSummary(*opp)
	}

	partners, err := s.Store.ListPartners(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, match.Rank(partners, rankCtx))
}

// Ideas and proposals

type ideasRequest struct {
	CallID      string             `json:"call_id,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	Constraints models.Constraints `json:"constraints"`
	Prompt      string             `json:"prompt,omitempty"`
}

func (s *Server) handleGenerateIdeas(c echo.Context) error {
	var req ideasRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()

	summary, err := s.resolveSummary(ctx, req.CallID, req.Summary)
	if err != nil {
		return summaryErrorResponse(c, err)
	}

	ideas, err := ai.GenerateIdeas(ctx, s.AI, summary, req.Constraints, req.Prompt)
	if err != nil {
		c.Logger().Errorf("Idea generation failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Idea generation failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"ideas": ideas})
}

type validateRequest struct {
	URL         string             `json:"url"`
	Constraints models.Constraints `json:"constraints"`
	Ideas       []models.Idea      `json:"ideas"`
}

func (s *Server) handleValidateRelevance(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	ctx := c.Request().Context()

	content, err := s.Scraper.FetchText(ctx, req.URL)
	if err != nil {
		c.Logger().Errorf("Fetch for validation failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Could not fetch call page"})
	}

	verdict, err := ai.ValidateRelevance(ctx, s.AI, req.URL, content, req.Constraints, req.Ideas)
	if err != nil {
		c.Logger().Errorf("Relevance validation failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Relevance validation failed"})
	}

	return c.JSON(http.StatusOK, verdict)
}

type proposalRequest struct {
	CallID      string             `json:"call_id,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	Idea        models.Idea        `json:"idea"`
	Constraints models.Constraints `json:"constraints"`
	PartnerIDs  []uuid.UUID        `json:"partner_ids,omitempty"`
}

func (s *Server) handleGenerateProposal(c echo.Context) error {
	var req proposalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Idea.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "idea is required"})
	}

	ctx := c.Request().Context()

	summary, err := s.resolveSummary(ctx, req.CallID, req.Summary)
	if err != nil {
		return summaryErrorResponse(c, err)
	}

	var partners []models.Partner
	for _, id := range req.PartnerIDs {
		p, err := s.Store.GetPartner(ctx, id)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown partner %s", id)})
		}
		partners = append(partners, *p)
	}

	proposal, err := ai.GenerateProposal(ctx, s.AI, req.Idea, summary, req.Constraints, partners)
	if err != nil {
		c.Logger().Errorf("Proposal generation failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Proposal generation failed"})
	}
	proposal.CallID = req.CallID

	if err := s.Store.CreateProposal(ctx, proposal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, proposal)
}

var errCallNotFound = errors.New("call not found")

// resolveSummary prefers the stored call over a caller-supplied summary.
func (s *Server) resolveSummary(ctx context.Context, callID, summary string) (string, error) {
	if callID == "" {
		if strings.TrimSpace(summary) == "" {
			return "", errors.New("call_id or summary is required")
		}
		return summary, nil
	}

	opp, err := s.Store.GetOpportunityByCallID(ctx, callID)
	if err != nil {
		return "", errCallNotFound
	}
	return buildCallSummary(*opp), nil
}

func summaryErrorResponse(c echo.Context, err error) error {
	status := http.StatusBadRequest
	if errors.Is(err, errCallNotFound) {
		status = http.StatusNotFound
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func buildCallSummary(opp models.Opportunity) string {
	deadline := opp.Deadline
	if deadline == "" {
		deadline = unknownDeadlineDisplay
	}
	return fmt.Sprintf("%s (%s)\nTopic: %s\nFunder: %s\nBudget: %s\nDeadline: %s\n\n%s",
		opp.Title, opp.CallID, opp.Topic, opp.FundingEntity, opp.Budget, deadline, opp.Description)
}

func (s *Server) handleListProposals(c echo.Context) error {
	proposals, err := s.Store.ListProposals(c.Request().Context(), c.QueryParam("call_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, proposals)
}

func (s *Server) handleGetProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}

	p, err := s.Store.GetProposal(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}

	var p models.Proposal
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	p.ID = id

	if err := s.Store.UpdateProposal(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}

	if err := s.Store.DeleteProposal(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Funding schemes

func (s *Server) handleListSchemes(c echo.Context) error {
	schemes, err := s.Store.ListSchemes(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, schemes)
}

func (s *Server) handleCreateScheme(c echo.Context) error {
	var f models.FundingScheme
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(f.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	if err := s.Store.CreateScheme(c.Request().Context(), &f); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, f)
}

func (s *Server) handleGetScheme(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scheme ID"})
	}

	f, err := s.Store.GetScheme(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, f)
}

func (s *Server) handleDeleteScheme(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scheme ID"})
	}

	if err := s.Store.DeleteScheme(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleParseTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scheme ID"})
	}

	ctx := c.Request().Context()

	scheme, err := s.Store.GetScheme(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if scheme.TemplateURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "scheme has no template URL"})
	}

	text, err := s.Scraper.FetchDocumentText(ctx, scheme.TemplateURL)
	if err != nil {
		c.Logger().Errorf("Template fetch failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Could not fetch template document"})
	}

	sections, err := ai.ExtractTemplateSections(ctx, s.AI, text)
	if err != nil {
		c.Logger().Errorf("Template parsing failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Template parsing failed"})
	}

	if err := s.Store.UpdateSchemeSections(ctx, id, sections); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"scheme_id": id,
		"sections":  sections,
	})
}
