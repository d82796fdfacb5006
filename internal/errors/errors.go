package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordTooLong is returned when a password does not fit bcrypt's 72 byte input.
	ErrPasswordTooLong = fmt.Errorf("%w: password exceeds 72 bytes", ErrValidation)
	// ErrEmptyContent is returned when a task is added or edited with no text.
	ErrEmptyContent = errors.New("task content is empty")
	// ErrTaskNotFound is returned when the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when name, username or email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUnauthenticated is returned when an operation needs a logged in session.
	ErrUnauthenticated = errors.New("authentication required")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// IsExpected reports whether err is one of the recoverable domain errors.
func IsExpected(err error) bool {
	return MapErrorToHTTP(err).StatusCode != http.StatusInternalServerError
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrEmptyContent):
		return NewHTTPError(http.StatusBadRequest, ErrEmptyContent.Error(), "EMPTY_CONTENT")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrTaskNotFound):
		return NewHTTPError(http.StatusNotFound, ErrTaskNotFound.Error(), "TASK_NOT_FOUND")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrUserAlreadyExists):
		return NewHTTPError(http.StatusConflict, ErrUserAlreadyExists.Error(), "USER_ALREADY_EXISTS")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
