package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moritz/grantflow/internal/models"
	"github.com/pgvector/pgvector-go"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Query          string
	QueryEmbedding []float32
	Status         string // "Open", "Upcoming", "Closed", or "all"
	Source         string
	Limit          int
	Offset         int
}

type ListResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

const oppCols = `call_id, title, description, url, source, status, deadline, deadline_at,
	budget, funding_entity, topic, ccm_id, opening_date, last_enriched, created_at, updated_at`

func scanOpportunity(scan func(dest ...interface{}) error) (models.Opportunity, error) {
	var o models.Opportunity
	err := scan(
		&o.CallID, &o.Title, &o.Description, &o.URL, &o.Source, &o.Status, &o.Deadline, &o.DeadlineAt,
		&o.Budget, &o.FundingEntity, &o.Topic, &o.CCMID, &o.OpeningDate, &o.LastEnriched, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// buildOpportunityWhere constructs the WHERE clause shared by the count and
// select queries of ListOpportunities.
func buildOpportunityWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}

	if params.Source != "" {
		where += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, params.Source)
		argIdx++
	}

	if params.Status != "" && params.Status != "all" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	}

	return where, args
}

func (s *Store) ListOpportunities(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	where, args := buildOpportunityWhere(params)
	argIdx := len(args) + 1

	var total int
	countSQL := "SELECT COUNT(*) FROM opportunities " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM opportunities %s", oppCols, where)

	if len(params.QueryEmbedding) > 0 {
		selectSQL += fmt.Sprintf(`
			ORDER BY
				CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
				COALESCE(1 - (embedding <=> $%d), -1) DESC,
				deadline_at ASC NULLS LAST
		`, argIdx)
		args = append(args, pgvector.NewVector(params.QueryEmbedding))
		argIdx++
	} else {
		selectSQL += " ORDER BY deadline_at ASC NULLS LAST, created_at DESC"
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if opps == nil {
		opps = []models.Opportunity{}
	}

	return &ListResult{
		Opportunities: opps,
		Total:         total,
		Limit:         params.Limit,
		Offset:        params.Offset,
	}, nil
}

func (s *Store) GetOpportunityByCallID(ctx context.Context, callID string) (*models.Opportunity, error) {
	sql := fmt.Sprintf("SELECT %s FROM opportunities WHERE call_id = $1", oppCols)
	row := s.pool.QueryRow(ctx, sql, callID)

	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}
	return &o, nil
}

// UpsertOpportunity inserts or refreshes a call keyed by its call_id.
// Enrichment data already on the row (deadline, opening date, embedding) is
// preserved when the incoming record does not carry it.
func (s *Store) UpsertOpportunity(ctx context.Context, opp models.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			call_id, title, description, url, source, status, deadline, deadline_at,
			budget, funding_entity, topic, ccm_id, opening_date, last_enriched, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (call_id) DO UPDATE SET
			updated_at = NOW(),
			title = EXCLUDED.title,
			description = COALESCE(NULLIF(EXCLUDED.description, ''), opportunities.description),
			url = COALESCE(NULLIF(EXCLUDED.url, ''), opportunities.url),
			source = EXCLUDED.source,
			status = EXCLUDED.status,
			deadline = COALESCE(NULLIF(EXCLUDED.deadline, ''), opportunities.deadline),
			deadline_at = COALESCE(EXCLUDED.deadline_at, opportunities.deadline_at),
			budget = COALESCE(NULLIF(EXCLUDED.budget, ''), opportunities.budget),
			funding_entity = COALESCE(NULLIF(EXCLUDED.funding_entity, ''), opportunities.funding_entity),
			topic = COALESCE(NULLIF(EXCLUDED.topic, ''), opportunities.topic),
			ccm_id = COALESCE(NULLIF(EXCLUDED.ccm_id, ''), opportunities.ccm_id),
			opening_date = COALESCE(EXCLUDED.opening_date, opportunities.opening_date),
			last_enriched = COALESCE(EXCLUDED.last_enriched, opportunities.last_enriched),
			embedding = COALESCE(EXCLUDED.embedding, opportunities.embedding)
	`

	var embedding interface{}
	if len(opp.Embedding) > 0 {
		embedding = pgvector.NewVector(opp.Embedding)
	}

	_, err := s.pool.Exec(ctx, query,
		opp.CallID, opp.Title, opp.Description, opp.URL, opp.Source, opp.Status, opp.Deadline, opp.DeadlineAt,
		opp.Budget, opp.FundingEntity, opp.Topic, opp.CCMID, opp.OpeningDate, opp.LastEnriched, embedding,
	)
	if err != nil {
		return fmt.Errorf("upsert %s failed: %w", opp.CallID, err)
	}
	return nil
}

func (s *Store) GetSources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT source FROM opportunities ORDER BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err == nil {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&total)
	stats["total"] = total

	var partners int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM partners").Scan(&partners)
	stats["partners"] = partners

	var proposals int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM proposals").Scan(&proposals)
	stats["proposals"] = proposals

	var enriched int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities WHERE last_enriched IS NOT NULL").Scan(&enriched)
	stats["enriched"] = enriched

	statusCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM opportunities GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if scanErr := rows.Scan(&status, &count); scanErr == nil {
				statusCounts[status] = count
			}
		}
	}
	stats["status_counts"] = statusCounts

	return stats, nil
}

// --- Partners ---

const partnerCols = `id, name, legal_name, acronym, pic, organization_type, is_public_body, is_non_profit,
	country, contact_email, website, description, experience, keywords,
	legal_rep_name, legal_rep_email, contact_person_name, created_at, updated_at`

func scanPartner(scan func(dest ...interface{}) error) (models.Partner, error) {
	var p models.Partner
	err := scan(
		&p.ID, &p.Name, &p.LegalName, &p.Acronym, &p.PIC, &p.OrganizationType, &p.IsPublicBody, &p.IsNonProfit,
		&p.Country, &p.ContactEmail, &p.Website, &p.Description, &p.Experience, &p.Keywords,
		&p.LegalRepName, &p.LegalRepEmail, &p.ContactPersonName, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func (s *Store) CreatePartner(ctx context.Context, p *models.Partner) error {
	p.Keywords = sanitizeStringSlice(p.Keywords)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO partners (
			name, legal_name, acronym, pic, organization_type, is_public_body, is_non_profit,
			country, contact_email, website, description, experience, keywords,
			legal_rep_name, legal_rep_email, contact_person_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`,
		p.Name, p.LegalName, p.Acronym, p.PIC, p.OrganizationType, p.IsPublicBody, p.IsNonProfit,
		p.Country, p.ContactEmail, p.Website, p.Description, p.Experience, p.Keywords,
		p.LegalRepName, p.LegalRepEmail, p.ContactPersonName,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create partner failed: %w", err)
	}
	return nil
}

func (s *Store) UpdatePartner(ctx context.Context, p *models.Partner) error {
	p.Keywords = sanitizeStringSlice(p.Keywords)

	err := s.pool.QueryRow(ctx, `
		UPDATE partners SET
			name = $2, legal_name = $3, acronym = $4, pic = $5, organization_type = $6,
			is_public_body = $7, is_non_profit = $8, country = $9, contact_email = $10,
			website = $11, description = $12, experience = $13, keywords = $14,
			legal_rep_name = $15, legal_rep_email = $16, contact_person_name = $17,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		p.ID, p.Name, p.LegalName, p.Acronym, p.PIC, p.OrganizationType,
		p.IsPublicBody, p.IsNonProfit, p.Country, p.ContactEmail,
		p.Website, p.Description, p.Experience, p.Keywords,
		p.LegalRepName, p.LegalRepEmail, p.ContactPersonName,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update partner %s failed: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	sql := fmt.Sprintf("SELECT %s FROM partners WHERE id = $1", partnerCols)
	p, err := scanPartner(s.pool.QueryRow(ctx, sql, id).Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}
	return &p, nil
}

func (s *Store) ListPartners(ctx context.Context) ([]models.Partner, error) {
	sql := fmt.Sprintf("SELECT %s FROM partners ORDER BY name", partnerCols)
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	partners := []models.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func (s *Store) DeletePartner(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM partners WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete partner %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner %s not found", id)
	}
	return nil
}

// --- Proposals ---

// Proposals persist their full structured body as JSONB; the dedicated
// columns exist for listing and filtering without decoding every body.

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal failed: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO proposals (call_id, title, summary, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, generated_at, updated_at
	`, p.CallID, p.Title, p.Summary, body).Scan(&p.ID, &p.GeneratedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create proposal failed: %w", err)
	}
	return nil
}

func (s *Store) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal failed: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		UPDATE proposals SET title = $2, summary = $3, body = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Title, p.Summary, body).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update proposal %s failed: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var (
		p    models.Proposal
		body []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, call_id, title, summary, body, generated_at, updated_at
		FROM proposals WHERE id = $1
	`, id).Scan(&p.ID, &p.CallID, &p.Title, &p.Summary, &body, &p.GeneratedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	decoded := p
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode proposal %s failed: %w", id, err)
	}
	decoded.ID = p.ID
	decoded.CallID = p.CallID
	decoded.GeneratedAt = p.GeneratedAt
	decoded.UpdatedAt = p.UpdatedAt
	return &decoded, nil
}

// ProposalSummary is the listing view of a proposal, without the full body.
type ProposalSummary struct {
	ID          uuid.UUID `json:"id"`
	CallID      string    `json:"call_id,omitempty"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Store) ListProposals(ctx context.Context, callID string) ([]ProposalSummary, error) {
	sql := "SELECT id, call_id, title, summary, generated_at, updated_at FROM proposals"
	var args []interface{}
	if callID != "" {
		sql += " WHERE call_id = $1"
		args = append(args, callID)
	}
	sql += " ORDER BY generated_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	proposals := []ProposalSummary{}
	for rows.Next() {
		var p ProposalSummary
		if err := rows.Scan(&p.ID, &p.CallID, &p.Title, &p.Summary, &p.GeneratedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func (s *Store) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM proposals WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete proposal %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s not found", id)
	}
	return nil
}

// --- Funding schemes ---

func (s *Store) CreateScheme(ctx context.Context, f *models.FundingScheme) error {
	sections, err := json.Marshal(f.Sections)
	if err != nil {
		return fmt.Errorf("encode sections failed: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO funding_schemes (name, description, template_url, sections, parsed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, f.Name, f.Description, f.TemplateURL, sections, f.ParsedAt).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create scheme failed: %w", err)
	}
	return nil
}

func (s *Store) GetScheme(ctx context.Context, id uuid.UUID) (*models.FundingScheme, error) {
	var (
		f        models.FundingScheme
		sections []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, template_url, sections, parsed_at, created_at, updated_at
		FROM funding_schemes WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.Description, &f.TemplateURL, &sections, &f.ParsedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	if err := json.Unmarshal(sections, &f.Sections); err != nil {
		return nil, fmt.Errorf("decode sections for %s failed: %w", id, err)
	}
	return &f, nil
}

func (s *Store) ListSchemes(ctx context.Context) ([]models.FundingScheme, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, template_url, sections, parsed_at, created_at, updated_at
		FROM funding_schemes ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	schemes := []models.FundingScheme{}
	for rows.Next() {
		var (
			f        models.FundingScheme
			sections []byte
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.TemplateURL, &sections, &f.ParsedAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if err := json.Unmarshal(sections, &f.Sections); err != nil {
			return nil, fmt.Errorf("decode sections for %s failed: %w", f.ID, err)
		}
		schemes = append(schemes, f)
	}
	return schemes, rows.Err()
}

// UpdateSchemeSections replaces the parsed template structure of a scheme.
func (s *Store) UpdateSchemeSections(ctx context.Context, id uuid.UUID, sections []models.TemplateSection) error {
	payload, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode sections failed: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE funding_schemes SET sections = $2, parsed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, payload)
	if err != nil {
		return fmt.Errorf("update scheme %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheme %s not found", id)
	}
	return nil
}

func (s *Store) DeleteScheme(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM funding_schemes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete scheme %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scheme %s not found", id)
	}
	return nil
}

func sanitizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return values
	}

	clean := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			clean = append(clean, trimmed)
		}
	}

	return clean
}
