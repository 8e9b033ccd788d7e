package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrBatchUnknown      = errors.New("batch does not belong to a known campaign")
	ErrEmptySubject      = errors.New("campaign subject must not be empty")
	ErrEmptyBody         = errors.New("campaign html body must not be empty")
	ErrQueueFull         = errors.New("queue is at capacity, try again later")
	ErrQueueClosed       = errors.New("queue is closed")
)
