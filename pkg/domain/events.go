package domain

import "time"

// EventType defines the category of the event.
type EventType string

const (
	EventVariantCreated EventType = "variant.created"
	EventVariantReused  EventType = "variant.reused"
)

// VariantEvent is emitted when a configure request commits.
type VariantEvent struct {
	Timestamp    time.Time   `json:"timestamp"`
	Type         EventType   `json:"type"`
	TemplateID   int64       `json:"template_id"`
	CanonicalIDs []int64     `json:"ptav_ids"`
	Variant      VariantInfo `json:"variant"`
}
