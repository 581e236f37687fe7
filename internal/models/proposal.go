package models

import (
	"time"

	"github.com/google/uuid"
)

// Idea is a candidate project concept generated during brainstorming.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Constraints captures the user-supplied boundaries for a proposal.
type Constraints struct {
	Partners string `json:"partners"`
	Budget   string `json:"budget"`
	Duration string `json:"duration"`
}

type WorkPackage struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Deliverables []string `json:"deliverables"`
}

type Milestone struct {
	Milestone   string `json:"milestone"`
	WorkPackage string `json:"work_package"`
	DueDate     string `json:"due_date"`
}

type Risk struct {
	Risk       string `json:"risk"`
	Likelihood string `json:"likelihood"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation"`
}

type BudgetItem struct {
	Item        string  `json:"item"`
	Cost        float64 `json:"cost"`
	Description string  `json:"description"`
}

type TimelinePhase struct {
	Phase      string   `json:"phase"`
	Activities []string `json:"activities"`
	StartMonth int      `json:"start_month"`
	EndMonth   int      `json:"end_month"`
}

// ProposalPartner is a partner as referenced from a proposal body, with the
// role it plays in the consortium.
type ProposalPartner struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Proposal is a generated grant proposal. The section fields follow the
// 11-section structure used by EU application templates.
type Proposal struct {
	ID      uuid.UUID `json:"id"`
	CallID  string    `json:"call_id,omitempty"`
	Title   string    `json:"title"`
	Summary string    `json:"summary"`

	Introduction    string `json:"introduction"`
	Objectives      string `json:"objectives"`
	Relevance       string `json:"relevance"`
	Methodology     string `json:"methodology"`
	ExpectedResults string `json:"expected_results"`
	Innovation      string `json:"innovation"`
	Impact          string `json:"impact"`
	Sustainability  string `json:"sustainability"`
	Consortium      string `json:"consortium"`
	WorkPlan        string `json:"work_plan"`
	RiskManagement  string `json:"risk_management"`

	Partners     []ProposalPartner `json:"partners"`
	WorkPackages []WorkPackage     `json:"work_packages"`
	Milestones   []Milestone       `json:"milestones"`
	Risks        []Risk            `json:"risks"`
	Budget       []BudgetItem      `json:"budget"`
	Timeline     []TimelinePhase   `json:"timeline"`

	ProjectURL   string    `json:"project_url"`
	SelectedIdea *Idea     `json:"selected_idea,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
