package game

import (
	apperrors "github.com/gokatarajesh/livequiz/pkg/http/errors"
)

// Error is an engine failure carrying a wire-level code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so wrapped detail errors compare equal to sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(base *Error, msg string) *Error {
	return &Error{Code: base.Code, Message: msg}
}

var (
	ErrInvalidInput      = &Error{Code: apperrors.ErrCodeInvalidInput, Message: "Invalid input"}
	ErrNotFound          = &Error{Code: apperrors.ErrCodeNotFound, Message: "Not found"}
	ErrInvalidTransition = &Error{Code: apperrors.ErrCodeInvalidTransition, Message: "Event not allowed in current phase"}
	ErrQuestionClosed    = &Error{Code: apperrors.ErrCodeQuestionClosed, Message: "Question is closed"}
	ErrDuplicateAnswer   = &Error{Code: apperrors.ErrCodeDuplicateAnswer, Message: "Answer already submitted"}
	ErrUnauthorized      = &Error{Code: apperrors.ErrCodeUnauthorized, Message: "Host authorization required"}
)
