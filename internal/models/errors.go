package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned by coordinator actions.
const (
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeValidation       = "VALIDATION_ERROR"
	CodeAuthNotReady     = "AUTH_NOT_READY"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeTransport        = "TRANSPORT_ERROR"
	CodeNothingToUndo    = "NOTHING_TO_UNDO"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error. Message is always safe to show to a user.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewAuthNotReadyError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeAuthNotReady,
		Message: message,
		Err:     err,
	}
}

func NewPermissionDeniedError(message string, err error) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
		Err:     err,
	}
}

func NewTransportError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeTransport,
		Message: message,
		Err:     err,
	}
}

func NewNothingToUndoError() *AppError {
	return &AppError{
		Code:    CodeNothingToUndo,
		Message: "Nothing to undo.",
	}
}

// UserMessage extracts the user-facing message from err, falling back when err is not an AppError.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
