package domain

import "errors"

// Sentinel errors for the messaging core. Validation errors are raised before
// any persistent write.
var (
	ErrInvalidParticipants      = errors.New("conversation requires two distinct users")
	ErrConversationNotFound     = errors.New("conversation not found")
	ErrNotAParticipant          = errors.New("not a participant of this conversation")
	ErrEmptyMessage             = errors.New("message content is empty")
	ErrConversationCreateFailed = errors.New("conversation could not be created")
	ErrInvalidInput             = errors.New("invalid input")
	ErrNotFound                 = errors.New("resource not found")
)
