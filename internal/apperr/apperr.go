package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code: машинный код доменной ошибки, уходит клиенту в поле "code".
type Code string

const (
	CodeNotFound               Code = "NOT_FOUND"
	CodeInvalidToken           Code = "INVALID_TOKEN"
	CodeSlotAlreadyBooked      Code = "SLOT_ALREADY_BOOKED"
	CodeSlotCanceled           Code = "SLOT_CANCELED"
	CodeEventNotAcceptingSlots Code = "EVENT_NOT_ACCEPTING_SLOTS"
	CodeInvalidTimestamp       Code = "INVALID_TIMESTAMP"
	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeCancelDeadlinePassed   Code = "CANCEL_DEADLINE_PASSED"
	CodeConflict               Code = "CONFLICT"
	CodeUpstreamUnavailable    Code = "UPSTREAM_UNAVAILABLE"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeInternal               Code = "INTERNAL"
)

// Error: типизированная доменная ошибка. Err хранит исходную причину (может быть nil).
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по коду, чтобы errors.Is(err, apperr.ErrNotFound) работал
// для любых сообщений и обёрток.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Сентинелы для errors.Is.
var (
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidToken           = &Error{Code: CodeInvalidToken, Message: "invalid token"}
	ErrSlotAlreadyBooked      = &Error{Code: CodeSlotAlreadyBooked, Message: "slot is already booked"}
	ErrSlotCanceled           = &Error{Code: CodeSlotCanceled, Message: "slot is canceled"}
	ErrEventNotAcceptingSlots = &Error{Code: CodeEventNotAcceptingSlots, Message: "event is not accepting slots or bookings"}
	ErrInvalidTimestamp       = &Error{Code: CodeInvalidTimestamp, Message: "invalid timestamp"}
	ErrInvalidInput           = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrCancelDeadlinePassed   = &Error{Code: CodeCancelDeadlinePassed, Message: "cancellation deadline has passed"}
	ErrConflict               = &Error{Code: CodeConflict, Message: "conflict, retry the request"}
	ErrUpstreamUnavailable    = &Error{Code: CodeUpstreamUnavailable, Message: "storage is unavailable"}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf возвращает код ошибки или CodeInternal для нетипизированных ошибок.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeUpstreamUnavailable
	}
	return CodeInternal
}

// HTTPStatus: соответствие кода HTTP-статусу.
// NotFound и InvalidToken намеренно неразличимы снаружи.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound, CodeInvalidToken:
		return http.StatusNotFound
	case CodeSlotAlreadyBooked, CodeSlotCanceled, CodeConflict:
		return http.StatusConflict
	case CodeEventNotAcceptingSlots, CodeCancelDeadlinePassed:
		return http.StatusUnprocessableEntity
	case CodeInvalidTimestamp, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicCode: код, который видит клиент.
func PublicCode(code Code) Code {
	if code == CodeInvalidToken {
		return CodeNotFound
	}
	if code == "" {
		return CodeInternal
	}
	return code
}
