package tools

import (
	"errors"
	"net/http"

	"github.com/temirov/ebixref/internal/ebisearch"
	"github.com/temirov/ebixref/internal/xref"
)

// FailureKind tags a tool failure.
type FailureKind string

const (
	FailureInvalidArgument           FailureKind = "invalid_argument"
	FailureDiscovery                 FailureKind = "discovery_error"
	FailureUnsupportedCrossReference FailureKind = "unsupported_cross_reference"
	FailureUpstream                  FailureKind = "upstream_error"
	FailureInternal                  FailureKind = "internal"
)

// Failure is the tagged failure object returned in place of a result.
type Failure struct {
	Kind           FailureKind `json:"kind"`
	Message        string      `json:"message"`
	UpstreamStatus int         `json:"upstreamStatus,omitempty"`
}

// Classify maps an error onto its failure kind.
func Classify(err error) Failure {
	if err == nil {
		return Failure{Kind: FailureInternal, Message: "unknown failure"}
	}
	failure := Failure{Kind: FailureInternal, Message: err.Error()}
	var discoveryError *xref.DiscoveryError
	var unsupportedError *xref.UnsupportedCrossReferenceError
	var upstreamError *xref.UpstreamError
	switch {
	case errors.Is(err, xref.ErrInvalidArgument):
		failure.Kind = FailureInvalidArgument
	case errors.As(err, &unsupportedError):
		failure.Kind = FailureUnsupportedCrossReference
	case errors.As(err, &discoveryError):
		failure.Kind = FailureDiscovery
	case errors.As(err, &upstreamError):
		failure.Kind = FailureUpstream
	}
	var statusError *ebisearch.StatusError
	if errors.As(err, &statusError) {
		failure.UpstreamStatus = statusError.StatusCode
	}
	return failure
}

// HTTPStatus maps a failure kind onto the status the command server responds with.
func (failure Failure) HTTPStatus() int {
	switch failure.Kind {
	case FailureInvalidArgument:
		return http.StatusBadRequest
	case FailureUnsupportedCrossReference:
		return http.StatusUnprocessableEntity
	case FailureDiscovery, FailureUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
