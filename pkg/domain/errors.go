package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralViolation rejects a structural change that would break topology or
	// ownership. The store is left exactly as it was before the call.
	ErrStructuralViolation = errors.New("structural violation")
	// ErrOwnershipConflict rejects adding a component that already has an owner.
	ErrOwnershipConflict = fmt.Errorf("%w: component already owned", ErrStructuralViolation)
	// ErrViewMismatch rejects a data viewer update whose view name differs from the bound view.
	ErrViewMismatch = errors.New("view mismatch")
	// ErrSealed rejects mutation of a system that already has a successor snapshot.
	ErrSealed = errors.New("system sealed by successor snapshot")
	// ErrCorruptEncoding reports malformed binary attribute data.
	ErrCorruptEncoding = errors.New("corrupt attribute encoding")
	// ErrLengthMismatch reports a time series with differing timestamp and value counts.
	ErrLengthMismatch = errors.New("time series length mismatch")
	// ErrUnknownModule reports a pipeline stage naming no registered module.
	ErrUnknownModule = errors.New("unknown module")
)

// ErrNotFound is returned by service-level helpers that require an existing record.
// Core lookups never return it; they return nil instead.
type ErrNotFound struct {
	Kind Kind
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
