package orchestra

import "errors"

// Failure taxonomy. Everything except ErrInvalidMode and ErrInvalidEntityID is
// caught at operation boundaries and degrades to a safe default rather than
// propagating to the host.
var (
	// ErrResourceMissing marks an expected source or layer absent when an
	// operation needs it. Recoverable by reconciliation.
	ErrResourceMissing = errors.New("renderer resource missing")

	// ErrVerificationTimeout marks a resource that was created but whose
	// state was not confirmed within the polling bound. Logged, non-fatal.
	ErrVerificationTimeout = errors.New("resource verification timed out")

	// ErrStyleLoad marks a failed style document load. The transition is
	// abandoned and the previous mode's visual state retained.
	ErrStyleLoad = errors.New("style load failed")
)
