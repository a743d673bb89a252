package psd

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a parse failure per the error handling design:
// malformed structural data is distinguished from unsupported-but-valid
// input so callers can decide whether to abort or continue with a warning.
type ErrorKind int

const (
	// ErrKindMalformed indicates the byte stream violates the container
	// grammar (bad signature, truncated length-block, out-of-range index).
	ErrKindMalformed ErrorKind = iota
	// ErrKindUnsupported indicates a structurally valid value this library
	// does not decode further (unknown compression id, unknown OSType).
	ErrKindUnsupported
	// ErrKindTruncated indicates the stream ended before a declared length
	// was satisfied.
	ErrKindTruncated
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindMalformed:
		return "malformed"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// ParseError is the typed error returned by every decode operation in this
// module. It carries the section of the container where the failure
// occurred so a caller (or the warning log) can report something more
// useful than a bare wrapped error.
type ParseError struct {
	Kind    ErrorKind
	Section string
	Offset  int64
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("psd: %s error in %s at offset %d", e.Kind, e.Section, e.Offset)
	}
	return fmt.Sprintf("psd: %s error in %s at offset %d: %v", e.Kind, e.Section, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// newParseError wraps err (may be nil) into a *ParseError, attaching the
// section name and offset for diagnostics.
func newParseError(kind ErrorKind, section string, offset int64, err error) error {
	return &ParseError{Kind: kind, Section: section, Offset: offset, Err: err}
}

// wrapf is a thin alias over errors.Wrapf kept local so every file in the
// package reaches for the same wrapping idiom the teacher used with
// fmt.Errorf("...: %w", err), but gaining pkg/errors stack traces.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// IsMalformed reports whether err (or any error it wraps) represents a
// structural grammar violation.
func IsMalformed(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == ErrKindMalformed
	}
	return false
}

// IsUnsupported reports whether err (or any error it wraps) represents a
// structurally valid but unimplemented feature.
func IsUnsupported(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == ErrKindUnsupported
	}
	return false
}
