package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ParseError describes an import row that could not be interpreted
type ParseError struct {
	Line   int    `json:"line"`
	Row    string `json:"row"`
	Reason string `json:"reason"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// LookupError wraps a provider failure while resolving a symbol or quote
type LookupError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup failed for %q: %v", e.Provider, e.Symbol, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// ValidationError rejects a holding at the submission boundary
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError reports a failed write that did not abort the caller
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
