package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTopic      = errors.New("topic must be between 1 and 512 characters")
	ErrInvalidStatus     = errors.New("status must be pending or ready for new items")
	ErrInvalidPosition   = errors.New("position must not be negative")
	ErrInvalidSlotDay    = errors.New("slot day must be 0 (Monday) through 6 (Sunday)")
	ErrInvalidSlotTime   = errors.New("slot time must be HH:MM")
	ErrInvalidTimezone   = errors.New("timezone must be a valid IANA name")
	ErrInvalidModeration = errors.New("moderation must be review or auto")
	ErrInvalidOnEmpty    = errors.New("on_empty must be pause or auto_generate")
	ErrInvalidToggle     = errors.New("unknown toggle field")
	ErrNotReviewable     = errors.New("item is not awaiting review")
	ErrNotDispatchable   = errors.New("item cannot be published in its current status")
	ErrAlreadyGenerating = errors.New("a content plan is already being generated")
	ErrBudgetExhausted   = errors.New("generation budget is exhausted")
	ErrLimitReached      = errors.New("monthly publish limit reached")
)
