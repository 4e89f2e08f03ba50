package constant

import "net/http"

type CustomError struct {
	StatusCode int
	Message    string
}

func NewCError(StatusCode int, Message string) CustomError {
	return CustomError{StatusCode: StatusCode, Message: Message}
}

func (err CustomError) Error() string {
	return err.Message
}

var (
	ErrNoSymbol = NewCError(http.StatusBadRequest,
		"please provide symbol")
	ErrInvalidBody = NewCError(http.StatusBadRequest,
		"request body must be a JSON object")
	ErrFeedStopped = NewCError(http.StatusServiceUnavailable,
		"dashboard engine is not running")
)
