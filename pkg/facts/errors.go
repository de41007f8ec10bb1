package facts

import (
	"errors"
	"fmt"

	"github.com/deskflow/deskflow/pkg/models"
)

// ErrEntityNotFound indicates a referenced entity row does not exist or is
// soft-deleted.
var ErrEntityNotFound = errors.New("entity not found")

// ResolutionError aborts resolution and carries the failing reference. The
// caller treats it as "rule cannot be evaluated", not as "rule evaluates
// false".
type ResolutionError struct {
	Ref models.EntityReference
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Ref.FactKey(), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsResolutionError checks whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var resErr *ResolutionError

	return errors.As(err, &resErr)
}

func newResolutionError(ref models.EntityReference, err error) *ResolutionError {
	return &ResolutionError{Ref: ref, Err: err}
}
