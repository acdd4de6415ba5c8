package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidInput     = "invalid_input"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Resource errors
	ErrCodeNotFound        = "not_found"
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeQuizNotFound    = "quiz_not_found"

	// Game session errors
	ErrCodeInvalidTransition     = "invalid_transition"
	ErrCodeQuestionClosed        = "question_closed"
	ErrCodeDuplicateAnswer       = "duplicate_answer"
	ErrCodeUnauthorized          = "unauthorized"
	ErrCodeSessionCreationFailed = "session_creation_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
