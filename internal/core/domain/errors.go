package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type FailureKind string

const (
	FailureQuotaExceeded   FailureKind = "quota_exceeded"
	FailureTimeout         FailureKind = "timeout"
	FailureInvalidResponse FailureKind = "invalid_response"
	FailureOther           FailureKind = "other"
)

// BackendFailure is the typed outcome of an unrecoverable model-backend call.
// It is handled by the orchestrator via fallback, never surfaced to callers.
type BackendFailure struct {
	Kind  FailureKind
	Stage string
	Err   error
}

func (f *BackendFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("backend failure at %s: %s", f.Stage, f.Kind)
	}
	return fmt.Sprintf("backend failure at %s: %s: %v", f.Stage, f.Kind, f.Err)
}

func (f *BackendFailure) Unwrap() error { return f.Err }

func NewBackendFailure(kind FailureKind, stage string, err error) *BackendFailure {
	return &BackendFailure{Kind: kind, Stage: stage, Err: err}
}

// AsBackendFailure extracts a BackendFailure from an error chain.
func AsBackendFailure(err error) (*BackendFailure, bool) {
	var failure *BackendFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
