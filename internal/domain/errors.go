package domain

import "fmt"

// Error types for consistent error handling across the service.

// ErrSchema indicates a required field could not be resolved for an entire
// input batch. Fatal to that batch; other batches are unaffected.
type ErrSchema struct {
	Source SourceKind
	Field  string
	Reason string
}

func (e *ErrSchema) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema error in %s: field %q: %s", e.Source, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: required field %q could not be resolved", e.Source, e.Field)
}

// ErrInput indicates a required data source is entirely missing or the chart
// of accounts is structurally invalid. Fatal to the whole reconciliation run.
type ErrInput struct {
	Source  SourceKind
	Message string
}

func (e *ErrInput) Error() string {
	return fmt.Sprintf("input error [%s]: %s", e.Source, e.Message)
}

// ErrValidation indicates a bad request parameter.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}
