package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUpstream     = "UPSTREAM_ERROR"

	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"

	CodeBookingNotPayable          = "BOOKING_NOT_PAYABLE"
	CodeCardError                  = "CARD_ERROR"
	CodePaymentInProgress          = "PAYMENT_IN_PROGRESS"
	CodePaymentPendingConfirmation = "PAYMENT_PENDING_CONFIRMATION"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	response := ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
	data, _ := json.Marshal(response)
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Upstream reports a transport, decoding or non-2xx failure from an external
// collaborator (places provider, fare calculator, booking backend).
func Upstream(service string, err error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    fmt.Sprintf("%s request failed", service),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func BookingNotPayable(bookingID, status string) *AppError {
	return &AppError{
		Code:       CodeBookingNotPayable,
		Message:    "booking is not awaiting payment",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"booking_id": bookingID,
			"status":     status,
		},
	}
}

func CardError(message string, err error) *AppError {
	return &AppError{
		Code:       CodeCardError,
		Message:    message,
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

func PaymentInProgress(bookingID string) *AppError {
	return &AppError{
		Code:       CodePaymentInProgress,
		Message:    "a payment attempt for this booking is already in progress",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"booking_id": bookingID,
		},
	}
}

// PaymentPendingConfirmation is the ambiguous outcome: the charge went through
// but the booking backend did not acknowledge it. Retrying risks a double charge.
func PaymentPendingConfirmation(supportReference string, err error) *AppError {
	return &AppError{
		Code:       CodePaymentPendingConfirmation,
		Message:    "payment taken, confirmation pending; contact support with the reference provided",
		HTTPStatus: http.StatusAccepted,
		Details: map[string]any{
			"support_reference": supportReference,
		},
		Err: err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
