package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a missing required collaborator. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidRecord marks a record that violates a non-negativity or range invariant.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrProductNotFound is returned by single-product lookups.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidRequest marks a request missing a required field.
	ErrInvalidRequest = errors.New("invalid request")
)

// UpstreamError wraps a failure of an external data source.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an UpstreamError unless it is nil.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}

// MissingCollaborator builds the configuration error for a nil dependency.
func MissingCollaborator(name string) error {
	return fmt.Errorf("%w: %s is required", ErrConfiguration, name)
}
