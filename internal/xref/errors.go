package xref

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks missing or malformed caller input.
var ErrInvalidArgument = errors.New("invalid argument")

// DiscoveryError reports a failed lookup of a domain's cross-reference targets.
type DiscoveryError struct {
	Domain string
	Cause  error
}

func (discoveryError *DiscoveryError) Error() string {
	return fmt.Sprintf("discover cross-reference targets for %s: %v", discoveryError.Domain, discoveryError.Cause)
}

// Unwrap exposes the proximate cause.
func (discoveryError *DiscoveryError) Unwrap() error {
	return discoveryError.Cause
}

// UnsupportedCrossReferenceError reports a target domain the catalog does not link the source into.
type UnsupportedCrossReferenceError struct {
	SourceDomain string
	TargetDomain string
}

func (unsupportedError *UnsupportedCrossReferenceError) Error() string {
	return fmt.Sprintf("unsupported cross-reference: %s → %s", unsupportedError.SourceDomain, unsupportedError.TargetDomain)
}

// UpstreamError reports a failed, explicitly requested remote fetch.
type UpstreamError struct {
	Operation string
	Cause     error
}

func (upstreamError *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", upstreamError.Operation, upstreamError.Cause)
}

// Unwrap exposes the proximate cause.
func (upstreamError *UpstreamError) Unwrap() error {
	return upstreamError.Cause
}

func invalidArgument(format string, arguments ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, arguments...))
}
