package savedobjects

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable indicates the document store could not be reached or rejected
	// the request for infrastructure reasons. The whole process should be retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConcurrentModification indicates an optimistic concurrency check failed:
	// the document changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrInvalidTransition indicates a marker write would move the version backward.
	ErrInvalidTransition = errors.New("invalid marker transition")

	// ErrTransform indicates a migration transform failed on a document.
	ErrTransform = errors.New("transform failed")

	// ErrRegistry indicates duplicate or malformed migration definitions.
	ErrRegistry = errors.New("invalid migration registry")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindStoreUnavailable
	KindConcurrentModification
	KindInvalidTransition
	KindTransform
	KindRegistry
	KindNotFound
)

func (k Kind) sentinel() error {
	switch k {
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindConcurrentModification:
		return ErrConcurrentModification
	case KindInvalidTransition:
		return ErrInvalidTransition
	case KindTransform:
		return ErrTransform
	case KindRegistry:
		return ErrRegistry
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindConcurrentModification:
		return "concurrent_modification"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindTransform:
		return "transform_error"
	case KindRegistry:
		return "registry_error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the migration and document it concerns, if any.
// errors.Is matches it against the sentinel of its kind.
type Error struct {
	Kind        Kind
	MigrationID int
	DocumentID  string
	Err         error
}

// NewError wraps err with the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds an Error of the given kind from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel()
	prefix := "error"
	if msg != nil {
		prefix = msg.Error()
	}
	switch {
	case e.MigrationID != 0 && e.DocumentID != "":
		prefix = fmt.Sprintf("%s (migration %d, document %q)", prefix, e.MigrationID, e.DocumentID)
	case e.MigrationID != 0:
		prefix = fmt.Sprintf("%s (migration %d)", prefix, e.MigrationID)
	case e.DocumentID != "":
		prefix = fmt.Sprintf("%s (document %q)", prefix, e.DocumentID)
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first Error in err's chain, or matches plain
// sentinel errors. It returns KindUnknown otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []Kind{
		KindStoreUnavailable,
		KindConcurrentModification,
		KindInvalidTransition,
		KindTransform,
		KindRegistry,
		KindNotFound,
	} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}

// IsFatal reports whether err must abort a run regardless of the migration's
// failure policy.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindInvalidTransition, KindRegistry:
		return true
	}
	return false
}
