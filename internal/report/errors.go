package report

import (
	"errors"
)

// Conflict-class errors: rejected synchronously, never partially applied.
var (
	// ErrToggleLocked means the section already left the unset state.
	ErrToggleLocked = errors.New("toggle already answered")

	// ErrReportSubmitted means the report is terminal and rejects all
	// mutations unconditionally.
	ErrReportSubmitted = errors.New("report is submitted and immutable")

	// ErrEntryNotFound means the ledger has no entry with that id.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrNotRefined means submit was attempted before refinement.
	ErrNotRefined = errors.New("report has not been refined")
)

// GuardError blocks a lifecycle transition with a user-actionable
// message, e.g. which contractor still needs a work entry.
type GuardError struct {
	Code    string
	Message string
}

func (e *GuardError) Error() string {
	return e.Message
}

// IsGuardError reports whether err is a blocked-transition guard
func IsGuardError(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}
