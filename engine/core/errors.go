package core

import (
	"errors"
	"fmt"
)

// Kind classifies storage failures so callers can branch without string matching.
type Kind string

const (
	KindInvalidPath       Kind = "INVALID_PATH"
	KindDirectoryNotFound Kind = "DIRECTORY_NOT_FOUND"
	KindNoValidData       Kind = "NO_VALID_DATA"
	KindPathConflict      Kind = "PATH_CONFLICT"
	KindCopyFailure       Kind = "COPY_FAILURE"
	KindRollbackFailure   Kind = "ROLLBACK_FAILURE"
	KindPersistFailure    Kind = "CONFIG_PERSIST_FAILURE"
	KindInvalidConfig     Kind = "INVALID_CONFIG"
	KindInternal          Kind = "INTERNAL"
)

// Conflict names which side of a copy contains the other.
type Conflict string

const (
	// SourceIsAncestor means the destination lives inside the current source tree.
	SourceIsAncestor Conflict = "SOURCE_IS_ANCESTOR"
	// DestIsAncestor means the current source tree lives inside the destination.
	DestIsAncestor Conflict = "DEST_IS_ANCESTOR"
)

var (
	ErrInvalidPath       = errors.New("invalid path")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNoValidData       = errors.New("no valid data found")
	ErrPathConflict      = errors.New("path conflict")
	ErrCopyFailure       = errors.New("copy failed")
	ErrRollbackFailure   = errors.New("rollback failed")
	ErrPersistFailure    = errors.New("failed to persist config")
	ErrInvalidConfig     = errors.New("invalid config")
)

var sentinels = map[Kind]error{
	KindInvalidPath:       ErrInvalidPath,
	KindDirectoryNotFound: ErrDirectoryNotFound,
	KindNoValidData:       ErrNoValidData,
	KindPathConflict:      ErrPathConflict,
	KindCopyFailure:       ErrCopyFailure,
	KindRollbackFailure:   ErrRollbackFailure,
	KindPersistFailure:    ErrPersistFailure,
	KindInvalidConfig:     ErrInvalidConfig,
}

// Error is the error type returned by every storage operation.
type Error struct {
	Kind     Kind
	Op       string
	Path     string
	Conflict Conflict
	Err      error
}

func (e *Error) Error() string {
	msg := e.message()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

func (e *Error) message() string {
	switch e.Kind {
	case KindInvalidPath:
		if e.Err != nil {
			return fmt.Sprintf("invalid path %q: %v", e.Path, e.Err)
		}
		return "path must not be empty"
	case KindDirectoryNotFound:
		return fmt.Sprintf("directory does not exist: %s", e.Path)
	case KindNoValidData:
		return fmt.Sprintf("no projects/ or media/ data found in %s", e.Path)
	case KindPathConflict:
		if e.Conflict == DestIsAncestor {
			return fmt.Sprintf("current data directory is inside %s", e.Path)
		}
		return fmt.Sprintf("%s is inside the current data directory", e.Path)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrPathConflict) works
// without losing the wrapped cause.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Kind]
	return ok && sentinel == target
}

func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func NewConflictError(op, path string, conflict Conflict) *Error {
	return &Error{Kind: KindPathConflict, Op: op, Path: path, Conflict: conflict}
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ConflictOf returns the conflict direction of a path conflict error.
func ConflictOf(err error) (Conflict, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindPathConflict {
		return e.Conflict, true
	}
	return "", false
}
