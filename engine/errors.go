package engine

import "errors"

// The engine's error taxonomy. All of these are expected, recoverable
// outcomes at the call boundary: the HTTP layer maps them to 4xx-style
// responses, never 5xx. A failure aborts the single logical transaction and
// leaves every ledger unchanged; checks always precede mutation.
var (
	// ErrNotFound means the referenced item or ledger does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the item exists but does not belong to the acting
	// user.
	ErrForbidden = errors.New("forbidden")

	// ErrItemInactive means the item has been archived or soft-disabled and
	// can no longer be completed.
	ErrItemInactive = errors.New("item is inactive")

	// ErrAlreadyCompleted means a one-time goal already has its lifetime
	// completion.
	ErrAlreadyCompleted = errors.New("item already completed")

	// ErrAlreadyCompletedToday means a recurring item already has a
	// completion on this calendar day.
	ErrAlreadyCompletedToday = errors.New("item already completed today")

	// ErrNothingToUndo means undo was requested with no matching completion
	// event.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrInvalidIntensity means the intensity is not one of easy, medium,
	// hard.
	ErrInvalidIntensity = errors.New("invalid intensity")
)
