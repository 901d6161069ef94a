package domain

import "strconv"

// TemplateSummary identifies a configurable product template.
type TemplateSummary struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	DefaultCode string `json:"default_code,omitempty" yaml:"default_code,omitempty"`
}

// Label returns the name shown to users, falling back to the id.
func (t TemplateSummary) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return "Template " + strconv.FormatInt(t.ID, 10)
}

// Value is one raw choice for an attribute. Raw values may be shared across templates.
type Value struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Attribute is a configurable dimension of a template with its ordered values.
type Attribute struct {
	ID     int64   `json:"attribute_id" yaml:"attribute_id"`
	Name   string  `json:"attribute_name,omitempty" yaml:"attribute_name,omitempty"`
	Values []Value `json:"values" yaml:"values"`
}

// Label returns the attribute name, falling back to the id.
func (a Attribute) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return "Attribute " + strconv.FormatInt(a.ID, 10)
}

// FindValue returns the value with the given id, if present.
func (a Attribute) FindValue(id int64) (Value, bool) {
	for _, v := range a.Values {
		if v.ID == id {
			return v, true
		}
	}
	return Value{}, false
}

// TemplateCatalog is the attribute catalog of one template.
type TemplateCatalog struct {
	Template   TemplateSummary `json:"template"`
	Attributes []Attribute     `json:"attributes"`
}

// Selection maps one attribute to its chosen raw value.
type Selection struct {
	AttributeID int64 `json:"attribute_id" yaml:"attribute_id"`
	ValueID     int64 `json:"value_id" yaml:"value_id"`
}

// EnrichedSelection is a Selection annotated with names and its canonical id.
// CanonicalID is nil when the value does not exist on the template.
type EnrichedSelection struct {
	AttributeID   int64  `json:"attribute_id"`
	AttributeName string `json:"attribute_name,omitempty"`
	ValueID       int64  `json:"value_id"`
	ValueName     string `json:"value_name,omitempty"`
	CanonicalID   *int64 `json:"ptav_id,omitempty"`
}

// VariantInfo describes a concrete variant of a template.
type VariantInfo struct {
	ID          int64  `json:"id" yaml:"id"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	DefaultCode string `json:"default_code,omitempty" yaml:"default_code,omitempty"`
	Barcode     string `json:"barcode,omitempty" yaml:"barcode,omitempty"`
	Active      bool   `json:"active" yaml:"active"`
}

// ValuePair is an attribute/value name pair describing part of a variant.
type ValuePair struct {
	Attribute string `json:"attribute,omitempty"`
	Value     string `json:"value,omitempty"`
}

// VariantRow is one line of a variant listing.
type VariantRow struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name,omitempty"`
	DefaultCode string      `json:"default_code,omitempty"`
	Barcode     string      `json:"barcode,omitempty"`
	QtyOnHand   float64     `json:"qty_on_hand"`
	Values      []ValuePair `json:"values"`
}

// SearchResult is the outcome of a template search.
type SearchResult struct {
	Matches []TemplateSummary `json:"matches"`
	Message string            `json:"message,omitempty"`
}

// PrepareResult is the outcome of a side-effect free combination check.
type PrepareResult struct {
	Template        TemplateSummary     `json:"template"`
	Selections      []EnrichedSelection `json:"selections"`
	CanonicalIDs    []int64             `json:"ptav_ids"`
	ExistingVariant *VariantInfo        `json:"existing_variant,omitempty"`
	Message         string              `json:"message,omitempty"`
}

// CreateResult is the outcome of a create request. Created is false when an existing
// variant with the same combination was returned instead.
type CreateResult struct {
	Created bool        `json:"created"`
	Variant VariantInfo `json:"variant"`
	Message string      `json:"message,omitempty"`
}

// VariantList is the outcome of listing the variants of a template.
type VariantList struct {
	Template TemplateSummary `json:"template"`
	Count    int             `json:"count"`
	Variants []VariantRow    `json:"variants"`
}
