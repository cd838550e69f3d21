package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// NotFound: learner/item/profile missing.
	ErrLearnerNotFound = errors.New("learner not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrProfileNotFound = errors.New("learner profile not found")

	// Precondition: malformed input or reference to unknown data (#2).
	ErrUnknownItem       = errors.New("response references unknown item")
	ErrInvalidItemParams = errors.New("invalid IRT item parameters")

	// InsufficientCandidates: handled locally with a short-quiz warning (#3).
	ErrInsufficientCandidates = errors.New("no items match selection constraints")

	// Conflict: concurrent write to the same learner, retried then surfaced (#4).
	ErrProfileConflict = errors.New("concurrent write to learner profile")

	// Deadline exceeded: operation must leave persisted state unchanged (#6).
	ErrDeadlineExceeded = errors.New("operation deadline exceeded")
)
