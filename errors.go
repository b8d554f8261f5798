package parsemux

import (
	"fmt"

	"github.com/parsemux/parsemux/backend"
	"github.com/parsemux/parsemux/format"
	"github.com/parsemux/parsemux/normalize"
	"github.com/parsemux/parsemux/pdfdoc"
	"github.com/parsemux/parsemux/policy"
)

// Stage names the phase of a parse. Every error returned by Parse is a
// *ParseError carrying the stage that produced it.
type Stage string

const (
	StageResolver   Stage = "resolver"
	StageAnalyzer   Stage = "analyzer"
	StageSelection  Stage = "selection"
	StageAdapter    Stage = "adapter"
	StageNormalizer Stage = "normalizer"
)

// Sentinel errors, re-exported from the packages that produce them so
// callers can match with errors.Is against this package alone.
var (
	// ErrUnsupportedCategory means the input resolved to no known document
	// family.
	ErrUnsupportedCategory = format.ErrUnsupported
	// ErrUnreadableDocument means the document's structure cannot be
	// parsed at all.
	ErrUnreadableDocument = pdfdoc.ErrUnreadable
	// ErrIncompatibleToolSelection means the forced tool does not support
	// the document's category.
	ErrIncompatibleToolSelection = policy.ErrIncompatible
	// ErrNoCapableBackend means no registered backend covers the
	// document's category.
	ErrNoCapableBackend = policy.ErrNoBackend
	// ErrBackendUnavailable means a backend's runtime dependency is
	// absent.
	ErrBackendUnavailable = backend.ErrUnavailable
	// ErrBackendTimeout means a backend exceeded the configured deadline.
	ErrBackendTimeout = backend.ErrTimeout
	// ErrNormalizationConflict means a backend's output could not be
	// reconciled into the canonical result.
	ErrNormalizationConflict = normalize.ErrConflict
)

// ParseError is the error type returned by Parse.
type ParseError struct {
	// Stage is the phase that failed.
	Stage Stage
	// Backend is the backend involved, None when the failure precedes a
	// backend choice.
	Backend backend.ID
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap lets errors.Is and errors.As see through the stage wrapper.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, id backend.ID, err error) *ParseError {
	return &ParseError{Stage: stage, Backend: id, Err: err}
}
