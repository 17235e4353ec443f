// Package zerr provides the structured error kinds shared across the
// store, codec, metadata, array and hierarchy packages.
package zerr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure, independent of the wrapped cause.
type Kind uint8

// Error kind constants, matching spec section 7's error taxonomy.
const (
	KindNotFound Kind = iota
	KindAlreadyExists
	KindInvalidMetadata
	KindInvalidSelection
	KindInvalidBufferShape
	KindCodecError
	KindStoreError
	KindReadOnlyViolation
	KindContainsArray
	KindContainsGroup
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidMetadata:
		return "InvalidMetadata"
	case KindInvalidSelection:
		return "InvalidSelection"
	case KindInvalidBufferShape:
		return "InvalidBufferShape"
	case KindCodecError:
		return "CodecError"
	case KindStoreError:
		return "StoreError"
	case KindReadOnlyViolation:
		return "ReadOnlyViolation"
	case KindContainsArray:
		return "ContainsArray"
	case KindContainsGroup:
		return "ContainsGroup"
	default:
		return "Unknown"
	}
}

// Error is a contextual, kind-tagged error. Mirrors the teacher's
// internal/utils.H5Error shape (context string + wrapped cause) generalized
// with a Kind so callers can branch on failure class via errors.Is/As.
type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap/errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, zerr.KindNotFound-sentinel-style) work per-kind via
// a dedicated sentinel value compared below; see Sentinel.
func (e *Error) Is(target error) bool {
	var s *sentinel
	if errors.As(target, &s) {
		return e.Kind == s.kind
	}
	return false
}

// sentinel is a zero-cause marker usable with errors.Is to test Kind without
// caring about Context/Cause.
type sentinel struct{ kind Kind }

func (s *sentinel) Error() string { return s.kind.String() }

// Sentinel returns a comparison target for errors.Is(err, zerr.Sentinel(Kind)).
func Sentinel(k Kind) error { return &sentinel{kind: k} }

// New creates a new kind-tagged error with no wrapped cause.
func New(kind Kind, context string) error {
	return &Error{Kind: kind, Context: context}
}

// Wrap creates a contextual, kind-tagged error around cause. Returns nil if
// cause is nil, matching the teacher's WrapError nil-passthrough behavior.
func Wrap(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// Wrapf is Wrap with a formatted context string.
func Wrapf(kind Kind, cause error, format string, args ...any) error {
	return Wrap(kind, fmt.Sprintf(format, args...), cause)
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; ok is false for arbitrary errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
