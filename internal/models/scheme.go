package models

import (
	"time"

	"github.com/google/uuid"
)

// TemplateSection is one section of an application template extracted from a
// call's guideline document.
type TemplateSection struct {
	Key         string            `json:"key"` // snake_case, e.g. "excellence"
	Name        string            `json:"name"`
	Order       int               `json:"order"`
	CharLimit   *int              `json:"char_limit,omitempty"`
	Mandatory   bool              `json:"mandatory"`
	Description string            `json:"description"`
	Subsections []TemplateSection `json:"subsections,omitempty"`
}

// FundingScheme describes a funding programme and the application template
// its proposals must follow.
type FundingScheme struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	TemplateURL string            `json:"template_url"` // source document (PDF)
	Sections    []TemplateSection `json:"sections"`
	ParsedAt    *time.Time        `json:"parsed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
