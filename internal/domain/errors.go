package domain

import "errors"

// Domain errors
var (
	ErrDataLoading       = errors.New("data is still loading")
	ErrDataUnavailable   = errors.New(DataUnavailableMessage)
	ErrUpstreamStatus    = errors.New("upstream returned non-success status")
	ErrMalformedPayload  = errors.New("malformed upstream payload")
	ErrEmptyMessage      = errors.New("message is required")
	ErrMessageTooLong    = errors.New("message exceeds maximum length")
	ErrAssistantBusy     = errors.New("a message is already being sent for this session")
	ErrAssistantDisabled = errors.New("assistant is not configured")
)

// User-facing messages
const (
	DataUnavailableMessage = "failed to load data from server"
	AssistantErrorMessage  = "An error occurred while contacting the AI assistant. Please try again later."
	AssistantFallbackReply = "Response received."
)

// Validation constants
const (
	MaxMessageLength = 4000
)
