package jobs

import "errors"

var (
	// ErrJobNotFound covers a missing job, a job owned by someone else, and a
	// job whose status forbids the attempted transition. The three are one
	// outcome on purpose: a non-owner must not learn whether the id exists.
	ErrJobNotFound = errors.New("job not found")

	// ErrPostingNotFound is the posting-side equivalent of ErrJobNotFound.
	ErrPostingNotFound = errors.New("posting not found")

	// ErrInvalidTransition marks an event that is illegal for the current
	// status when the caller has already read the entity and can tell it
	// apart from absence.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation marks a missing or malformed request field.
	ErrValidation = errors.New("validation failed")
)
