// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoData           = errors.New("no data found")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrChatNotFound     = errors.New("chat not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrMalformedOutput  = errors.New("malformed structured output")
)

// ExtractionError represents a failure to extract a structured query from
// free text.
type ExtractionError struct {
	Query string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error for %q: %v", e.Query, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(query string, err error) *ExtractionError {
	return &ExtractionError{Query: query, Err: err}
}

// StoreError represents an error from a persistence layer.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store error [%s]: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, message string, err error) *StoreError {
	return &StoreError{Op: op, Message: message, Err: err}
}

// IngestError represents a failure while fetching or processing market data.
type IngestError struct {
	Symbol  string
	Stage   string
	Message string
	Err     error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest error [%s] %s: %s: %v", e.Stage, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("ingest error [%s] %s: %s", e.Stage, e.Symbol, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewIngestError creates a new IngestError.
func NewIngestError(stage, symbol, message string, err error) *IngestError {
	return &IngestError{Stage: stage, Symbol: symbol, Message: message, Err: err}
}

// LLMError represents an error from the language-model collaborator.
type LLMError struct {
	Operation string
	Err       error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error [%s]: %v", e.Operation, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// NewLLMError creates a new LLMError.
func NewLLMError(operation string, err error) *LLMError {
	return &LLMError{Operation: operation, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
