package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a user has no active session in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrValidation is returned when a required text input is empty or malformed.
var ErrValidation = errors.New("validation failed")

// ErrTemplateNotFound is returned when a template id is unknown to the catalog.
var ErrTemplateNotFound = errors.New("template not found")

// ErrNotFound is returned when a lookup resolves to nothing.
var ErrNotFound = errors.New("not found")

// ErrSelectionNotOnTemplate is returned when selected values do not exist on the template.
// It means the caller's cached attribute list is stale.
var ErrSelectionNotOnTemplate = errors.New("selected values not on template")

// ErrDuplicateCombination is returned by the catalog when a variant with the exact
// combination already exists.
var ErrDuplicateCombination = errors.New("duplicate variant combination")

// Gateway failure kinds.
var (
	ErrGateway           = errors.New("gateway error")
	ErrGatewayTimeout    = errors.New("gateway timeout")
	ErrGatewayConnection = errors.New("gateway connection error")
	ErrGatewayHTTP       = errors.New("gateway http error")
)

// SelectionError lists the raw value ids that could not be resolved on a template.
type SelectionError struct {
	TemplateID int64
	Missing    []int64
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selected values not on template %d: %v", e.TemplateID, e.Missing)
}

func (e *SelectionError) Unwrap() error {
	return ErrSelectionNotOnTemplate
}

// GatewayError is a failure talking to the catalog gateway.
// Kind is one of the ErrGateway* sentinels; Cause optionally carries the domain
// error the gateway reported (e.g. ErrTemplateNotFound behind an HTTP 404).
type GatewayError struct {
	Kind    error
	Cause   error
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("Gateway HTTP %d: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() []error {
	kind := e.Kind
	if kind == nil {
		kind = ErrGateway
	}
	if e.Cause != nil {
		return []error{kind, e.Cause}
	}
	return []error{kind}
}
