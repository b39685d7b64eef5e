package error_handler

import (
	"net/http"

	"cronkeeper/commons/response"
)

type ErrorCollection struct {
	errors []response.Errors
}

func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		errors: make([]response.Errors, 0),
	}
}

// NewError is shorthand for a collection holding a single error
func NewError(code int, message string) *ErrorCollection {
	return NewErrorCollection().AddError(code, message, nil)
}

func (ec *ErrorCollection) AddError(code int, message string, data any) *ErrorCollection {
	ec.errors = append(ec.errors, response.Errors{
		ErrorCode: code,
		Message:   message,
		Data:      data,
	})
	return ec
}

func (ec *ErrorCollection) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollection) GetErrors() []response.Errors {
	return ec.errors
}

// GetHTTPStatus returns the status of the most severe error in the collection
func (ec *ErrorCollection) GetHTTPStatus() int {
	if !ec.HasErrors() {
		return http.StatusOK
	}

	status := 0
	for _, err := range ec.errors {
		if s := httpStatusForCode(err.ErrorCode); s > status {
			status = s
		}
	}
	return status
}

func httpStatusForCode(code int) int {
	switch {
	case code >= 500:
		return http.StatusInternalServerError
	case code == CodeNotFound:
		return http.StatusNotFound
	case code == CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// Common error codes
const (
	CodeValidationError     = 400
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeInternalServerError = 500
)

// Helper functions for common errors
func GetValidationError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeValidationError,
		Message:   message,
		Data:      nil,
	}
}

func GetNotFoundError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeNotFound,
		Message:   message,
		Data:      nil,
	}
}

func GetInternalServerError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeInternalServerError,
		Message:   message,
		Data:      nil,
	}
}
