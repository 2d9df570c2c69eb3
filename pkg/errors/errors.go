// Package errors provides the error taxonomy shared by transactions and the
// publish runner. This is a leaf package with no internal dependencies so it
// can be imported by every transaction kind without causing circular imports.
//
// Import graph: errors <- transaction <- transaction/filesystem <- publish
//
// Every error produced by this module is an *Error carrying an ErrorCode.
// ErrorCode itself implements error, so callers can test for a category
// anywhere in a wrapped tree:
//
//	if errors.Is(err, puberrors.ErrRollback) {
//	    // the filesystem may be partially modified
//	}
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents the category of a failure.
type ErrorCode int

const (
	// ErrPublish indicates a stage function failed.
	ErrPublish ErrorCode = iota + 1

	// ErrRollback indicates a rollback attempt itself failed. The error keeps
	// both the rollback cause and the original error that triggered it.
	ErrRollback

	// ErrCommit indicates a transaction commit failed.
	ErrCommit

	// ErrRootTransaction aggregates the child errors of one commit or
	// rollback pass over a root transaction.
	ErrRootTransaction

	// ErrIO indicates an OS-level failure.
	ErrIO

	// ErrInvalidPermission indicates a permission bit was still unresolved
	// when converting to a mode.
	ErrInvalidPermission

	// ErrSourcePathInvalid indicates a source path lacks a component
	// required by the operation.
	ErrSourcePathInvalid

	// ErrTargetPathInvalid indicates a target path lacks a required
	// component or resolves outside the transaction root.
	ErrTargetPathInvalid

	// ErrInvalidMetadata indicates a path is neither a regular file nor a
	// directory (nor a symlink, where one is acceptable).
	ErrInvalidMetadata
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrPublish:
		return "Publish"
	case ErrRollback:
		return "Rollback"
	case ErrCommit:
		return "Commit"
	case ErrRootTransaction:
		return "RootTransaction"
	case ErrIO:
		return "IO"
	case ErrInvalidPermission:
		return "InvalidPermission"
	case ErrSourcePathInvalid:
		return "SourcePathInvalid"
	case ErrTargetPathInvalid:
		return "TargetPathInvalid"
	case ErrInvalidMetadata:
		return "InvalidMetadata"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error lets an ErrorCode be used as an errors.Is target.
func (c ErrorCode) Error() string {
	return c.String()
}

// Error is the error type returned by transactions and the runner.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string

	// Err is the underlying cause, if any.
	Err error

	// Original is the error that triggered a rollback (ErrRollback only).
	Original error

	// Errs holds child errors (ErrRootTransaction only).
	Errs []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path: %s)", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Original != nil {
		b.WriteString("; original error: ")
		b.WriteString(e.Original.Error())
	}
	if len(e.Errs) > 0 {
		fmt.Fprintf(&b, " [%d error(s): ", len(e.Errs))
		for i, err := range e.Errs {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(err.Error())
		}
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the cause, the original error and every child error to
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2+len(e.Errs))
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Original != nil {
		errs = append(errs, e.Original)
	}
	return append(errs, e.Errs...)
}

// Is reports whether target is this error's code.
func (e *Error) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// CodeOf returns the code of the outermost *Error in err's chain, or 0 if
// there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewPublishError creates a Publish error for a failed stage.
func NewPublishError(message string, cause error) *Error {
	return &Error{Code: ErrPublish, Message: message, Err: cause}
}

// NewRollbackError creates a Rollback error carrying both the rollback
// failure and the error that caused the rollback.
func NewRollbackError(rollbackErr, original error) *Error {
	return &Error{
		Code:     ErrRollback,
		Message:  "rollback failed, manual intervention may be required",
		Err:      rollbackErr,
		Original: original,
	}
}

// NewCommitError creates a Commit error.
func NewCommitError(message string, cause error) *Error {
	return &Error{Code: ErrCommit, Message: message, Err: cause}
}

// NewRootTransactionError aggregates child errors.
func NewRootTransactionError(errs []error) *Error {
	return &Error{
		Code:    ErrRootTransaction,
		Message: "one or more child transactions failed",
		Errs:    errs,
	}
}

// NewIOError wraps an OS-level failure for the given operation and path.
func NewIOError(op, path string, cause error) *Error {
	return &Error{Code: ErrIO, Message: op, Path: path, Err: cause}
}

// NewInvalidPermissionError creates an InvalidPermission error.
func NewInvalidPermissionError(message string) *Error {
	return &Error{Code: ErrInvalidPermission, Message: message}
}

// NewSourcePathInvalidError creates a SourcePathInvalid error.
func NewSourcePathInvalidError(path, reason string) *Error {
	return &Error{Code: ErrSourcePathInvalid, Message: reason, Path: path}
}

// NewTargetPathInvalidError creates a TargetPathInvalid error.
func NewTargetPathInvalidError(path, reason string) *Error {
	return &Error{Code: ErrTargetPathInvalid, Message: reason, Path: path}
}

// NewInvalidMetadataError creates an InvalidMetadata error.
func NewInvalidMetadataError(path string) *Error {
	return &Error{
		Code:    ErrInvalidMetadata,
		Message: "path is neither a regular file nor a directory",
		Path:    path,
	}
}
