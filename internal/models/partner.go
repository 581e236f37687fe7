package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner is a consortium partner profile. Description, experience and
// keywords feed the relevance ranking; the rest is contact/legal metadata
// carried for proposal documents.
type Partner struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	LegalName        string    `json:"legal_name"`
	Acronym          string    `json:"acronym"`
	PIC              string    `json:"pic"` // Participant Identification Code
	OrganizationType string    `json:"organization_type"`
	IsPublicBody     bool      `json:"is_public_body"`
	IsNonProfit      bool      `json:"is_non_profit"`
	Country          string    `json:"country"`
	ContactEmail     string    `json:"contact_email"`
	Website          string    `json:"website"`
	Description      string    `json:"description"`
	Experience       string    `json:"experience"`
	Keywords         []string  `json:"keywords"`

	LegalRepName      string `json:"legal_rep_name"`
	LegalRepEmail     string `json:"legal_rep_email"`
	ContactPersonName string `json:"contact_person_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
