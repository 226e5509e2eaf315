package streamzip

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel causes for the error kinds of spec.md §7. Callers should use
// errors.Is to test for them; AddEntry and Finalize wrap these with
// entry-specific context via github.com/pkg/errors.
var (
	// ErrInvalidOptions is the cause of errors returned synchronously from
	// AddEntry when EntryOptions fails validation.
	ErrInvalidOptions = errors.New("streamzip: invalid entry options")

	// ErrIllegalState is the cause of errors returned when AddEntry is
	// called after Finalize, or when Finalize is called twice.
	ErrIllegalState = errors.New("streamzip: illegal archive state")

	// ErrOverrideInvalid is the cause of errors returned from Finalize
	// when the caller-supplied override list is not a valid permutation
	// or sub-sequence of the completed entries, or attempts to change a
	// frozen field.
	ErrOverrideInvalid = errors.New("streamzip: invalid finalize override")
)

func errInvalidOptionsf(format string, args ...interface{}) error {
	return errors.Wrap(ErrInvalidOptions, fmt.Sprintf(format, args...))
}

func errIllegalStatef(format string, args ...interface{}) error {
	return errors.Wrap(ErrIllegalState, fmt.Sprintf(format, args...))
}

func errOverrideInvalidf(format string, args ...interface{}) error {
	return errors.Wrap(ErrOverrideInvalid, fmt.Sprintf(format, args...))
}
