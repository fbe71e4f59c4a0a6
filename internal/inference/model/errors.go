package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrArtifactNotFound    = errors.New("model artifact not found")
	ErrDeserialization     = errors.New("model artifact could not be deserialized")
	ErrDetectorUnavailable = errors.New("inference runtime unavailable")
	ErrLoadInProgress      = errors.New("model load in progress")
	ErrNotRearmable        = errors.New("only a failed model can be re-armed")
	ErrUnknownModel        = errors.New("unknown model")
	ErrFallback            = errors.New("synthetic fallback could not be constructed")
	errMockMode            = errors.New("mock models requested")
)

// ArtifactNotFoundError lists every path that was tried, for diagnostics
type ArtifactNotFoundError struct {
	Key       Key
	Artifact  string
	Attempted []string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("%v for model %v not found, tried: %v", e.Artifact, e.Key, strings.Join(e.Attempted, ", "))
}

func (e *ArtifactNotFoundError) Unwrap() error {
	return ErrArtifactNotFound
}
