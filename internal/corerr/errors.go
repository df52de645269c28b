// Package corerr defines the error taxonomy shared by every component of the
// refactor orchestration core.
//
// # Description
//
// Every error that crosses a component boundary is either one of the
// sentinel values below, or a *CoreError wrapping one of them with
// request-specific context (file, line, drifted paths, ...). Callers use
// errors.Is against the sentinels and errors.As against *CoreError; the kind
// itself never changes shape once chosen, so switch statements over Kind
// stay exhaustive.
//
// # Thread Safety
//
// All types here are immutable after construction and safe for concurrent
// reads.
package corerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for uniform handling across transports.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindNotSupported   Kind = "not_supported"
	KindNotFound       Kind = "not_found"
	KindAlreadyExists  Kind = "already_exists"
	KindPathTraversal  Kind = "path_traversal"
	KindChecksumDrift  Kind = "checksum_drift"
	KindLspError       Kind = "lsp_error"
	KindPartialFailure Kind = "partial_failure"
	KindValidationFail Kind = "validation_failed"
	KindInternal       Kind = "internal"
)

// Sentinel errors. Wrap one of these with Wrap to build a *CoreError that
// still satisfies errors.Is against the sentinel.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotSupported   = errors.New("not supported")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrPathTraversal  = errors.New("path escapes project root")
	ErrChecksumDrift  = errors.New("checksum drift")
	ErrLspError       = errors.New("lsp error")
	ErrPartialFailure = errors.New("partial failure")
	ErrValidationFail = errors.New("validation failed")
	ErrInternal       = errors.New("internal error")
)

var sentinelByKind = map[Kind]error{
	KindInvalidRequest: ErrInvalidRequest,
	KindNotSupported:   ErrNotSupported,
	KindNotFound:       ErrNotFound,
	KindAlreadyExists:  ErrAlreadyExists,
	KindPathTraversal:  ErrPathTraversal,
	KindChecksumDrift:  ErrChecksumDrift,
	KindLspError:       ErrLspError,
	KindPartialFailure: ErrPartialFailure,
	KindValidationFail: ErrValidationFail,
	KindInternal:       ErrInternal,
}

// CoreError is the typed wrapper carried across component boundaries.
//
// # Fields
//
//   - Kind: the taxonomy bucket (see spec §7).
//   - Message: human-readable detail specific to this occurrence.
//   - Paths: files implicated in the error (e.g. drifted checksums,
//     failed reference updates). May be empty.
//   - Cause: the underlying error, if any.
type CoreError struct {
	Kind    Kind
	Message string
	Paths   []string
	Cause   error
}

// New builds a *CoreError for the given kind with no underlying cause.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Newf builds a *CoreError with a formatted message.
func Newf(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a *CoreError around an existing error.
func Wrap(kind Kind, cause error, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// WithPaths returns a copy of e with Paths set. Used to name drifted or
// failed files without losing the original kind/message.
func (e *CoreError) WithPaths(paths ...string) *CoreError {
	clone := *e
	clone.Paths = paths
	return &clone
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to Cause and to the kind's
// sentinel, so errors.Is(err, corerr.ErrNotFound) works whether or not the
// caller constructed the CoreError with Wrap.
func (e *CoreError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := sentinelByKind[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// As reports the Kind of err if it is (or wraps) a *CoreError.
func As(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// ExitCode maps a Kind to the CLI exit code from spec §6. Errors that are
// not a *CoreError (or have no mapped kind) exit 11 (core error).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := As(err)
	if !ok {
		return 11
	}
	switch kind {
	case KindInvalidRequest:
		return 6
	case KindNotSupported:
		return 6
	case KindNotFound:
		return 6
	case KindAlreadyExists:
		return 6
	case KindPathTraversal:
		return 4
	case KindChecksumDrift:
		return 11
	case KindLspError:
		return 3
	case KindPartialFailure:
		return 0 // surfaced as a success envelope with warnings, not a failure exit
	case KindValidationFail:
		return 11
	case KindInternal:
		return 8
	default:
		return 11
	}
}
