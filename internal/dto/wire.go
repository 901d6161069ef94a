// Package dto holds the JSON bodies of the gateway contract shared by the HTTP
// server and the gateway client.
package dto

import (
	"github.com/aretw0/configurator/pkg/domain"
)

// Error codes carried next to "detail" in error bodies.
const (
	CodeValidation             = "validation"
	CodeTemplateNotFound       = "template_not_found"
	CodeNotFound               = "not_found"
	CodeSelectionNotOnTemplate = "selection_not_on_template"
	CodeBackend                = "backend"
)

// Envelope is embedded in every success body.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is returned with every status >= 400.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

type StartRequest struct {
	Query     string `json:"query"`
	CreatedBy string `json:"created_by,omitempty"`
}

type StartResponse struct {
	Envelope
	Matches []domain.TemplateSummary `json:"matches"`
}

type InitRequest struct {
	TemplateID int64 `json:"template_id"`
}

type InitResponse struct {
	Envelope
	Template   domain.TemplateSummary `json:"template"`
	Attributes []domain.Attribute     `json:"attributes"`
}

// SelectionRequest is the body of both /config/prepare and /config/create.
type SelectionRequest struct {
	TemplateID  int64              `json:"template_id"`
	Selections  []domain.Selection `json:"selections"`
	DefaultCode string             `json:"default_code,omitempty"`
	Barcode     string             `json:"barcode,omitempty"`
}

type PrepareResponse struct {
	Envelope
	Template        domain.TemplateSummary     `json:"template"`
	Selections      []domain.EnrichedSelection `json:"selections"`
	CanonicalIDs    []int64                    `json:"ptav_ids"`
	ExistingVariant *domain.VariantInfo        `json:"existing_variant,omitempty"`
}

type CreateResponse struct {
	Envelope
	Created bool               `json:"created"`
	Variant domain.VariantInfo `json:"variant"`
}

type VariantsRequest struct {
	TemplateID int64 `json:"template_id"`
	ActiveOnly *bool `json:"active_only,omitempty"`
}

type VariantsResponse struct {
	Envelope
	Template domain.TemplateSummary `json:"template"`
	Count    int                    `json:"count"`
	Variants []domain.VariantRow    `json:"variants"`
}

type HealthResponse struct {
	Envelope
	Status string `json:"status,omitempty"`
}
