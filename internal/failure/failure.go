// Package failure defines the error kinds shared by the correction pipeline.
//
// Every component wraps its errors in *Error so a caller can learn which
// component and operation failed and on which path, while errors.Is still
// reaches both the kind sentinel and the underlying cause:
//
//	errors.Is(err, failure.ErrChecksumMismatch)
//	errors.As(err, &mismatch) // *backup.ChecksumMismatchError
package failure

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

// Kind classifies an error independently of its concrete type.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIo
	KindParse
	KindNodeNotFound
	KindValidation
	KindGeneration
	KindChecksumMismatch
	KindTimeout
	KindPermission
)

var kindNames = [...]string{
	KindUnknown:          "unknown",
	KindIo:               "io",
	KindParse:            "parse",
	KindNodeNotFound:     "node not found",
	KindValidation:       "validation",
	KindGeneration:       "generation",
	KindChecksumMismatch: "checksum mismatch",
	KindTimeout:          "timeout",
	KindPermission:       "permission denied",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Sentinels, one per kind. *Error matches the sentinel of its Kind.
var (
	ErrIo               = errors.New("io error")
	ErrParse            = errors.New("parse error")
	ErrNodeNotFound     = errors.New("node not found")
	ErrValidation       = errors.New("validation failed")
	ErrGeneration       = errors.New("generation failed")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrTimeout          = errors.New("timeout")
	ErrPermission       = errors.New("permission denied")
)

var sentinels = map[Kind]error{
	KindIo:               ErrIo,
	KindParse:            ErrParse,
	KindNodeNotFound:     ErrNodeNotFound,
	KindValidation:       ErrValidation,
	KindGeneration:       ErrGeneration,
	KindChecksumMismatch: ErrChecksumMismatch,
	KindTimeout:          ErrTimeout,
	KindPermission:       ErrPermission,
}

// Sentinel returns the sentinel error of k, or nil for KindUnknown.
func (k Kind) Sentinel() error {
	return sentinels[k]
}

// Error carries the layered context of a failure: the enclosing component,
// the operation, the file path (if any) and the cause.
type Error struct {
	Kind      Kind
	Component string // "backup", "astctx", "apply", ...
	Op        string // "snapshot", "restore", "build", ...
	Path      string
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Component != "" {
		sb.WriteString(e.Component)
	}
	if e.Op != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Op)
	}
	if e.Path != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.Path)
	}
	cause := e.Kind.String()
	if e.Err != nil {
		cause = e.Err.Error()
	}
	if sb.Len() == 0 {
		return cause
	}
	sb.WriteString(": ")
	sb.WriteString(cause)
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind, so callers need not know the
// concrete cause.
func (e *Error) Is(target error) bool {
	if s := e.Kind.Sentinel(); s != nil && target == s {
		return true
	}
	return false
}

// New wraps err with component context. A nil err yields nil.
func New(kind Kind, component, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Op: op, Path: path, Err: err}
}

// Wrap is New with the kind inferred from err (see KindOf).
func Wrap(component, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return New(KindOf(err), component, op, path, err)
}

// KindOf classifies err. An *Error anywhere in the chain decides; otherwise
// common standard library errors are mapped and the rest is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != KindUnknown {
		return fe.Kind
	}
	for k, s := range sentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrExist), errors.Is(err, fs.ErrClosed):
		return KindIo
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return KindIo
	}
	return KindUnknown
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
