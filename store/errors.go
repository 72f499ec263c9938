package store

import (
	"fmt"

	"github.com/getpup/pupsourcing-savedobjects"
)

// Unavailable wraps an infrastructure error as savedobjects.ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return savedobjects.NewError(savedobjects.KindStoreUnavailable, fmt.Errorf("%s: %w", op, err))
}

// Conflict reports a failed optimistic concurrency check on document id.
func Conflict(id string, expected, actual int64) error {
	e := savedobjects.Errorf(savedobjects.KindConcurrentModification, "expected version %d, found %d", expected, actual)
	e.DocumentID = id
	return e
}

// NotFound reports a missing document.
func NotFound(id string) error {
	return &savedobjects.Error{Kind: savedobjects.KindNotFound, DocumentID: id}
}
