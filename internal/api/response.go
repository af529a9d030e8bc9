package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
)

type (
	SuccessResponse struct {
		Status    int       `json:"status"`
		Message   string    `json:"message"`
		Data      any       `json:"data,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	ErrorResponse struct {
		Status    string      `json:"status"`
		Code      apperr.Code `json:"code"`
		Message   string      `json:"message"`
		Timestamp time.Time   `json:"timestamp"`
	}
)

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, &SuccessResponse{
		Status:    status,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// codeForStatus: код для ошибок самого echo (404 маршрута, 429 лимитера и т.п.).
func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return apperr.CodeInvalidInput
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimited
	case http.StatusServiceUnavailable:
		return apperr.CodeUpstreamUnavailable
	default:
		return apperr.CodeInternal
	}
}

// NewErrorHandler рендерит любые ошибки в единый конверт.
// InvalidToken снаружи выглядит как NOT_FOUND.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status int
			code   apperr.Code
			msg    string
			ae     *apperr.Error
			he     *echo.HTTPError
		)
		if !errors.As(err, &ae) && errors.As(err, &he) {
			status = he.Code
			code = codeForStatus(status)
			msg = http.StatusText(status)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
			if status == http.StatusServiceUnavailable {
				msg = "request timed out"
			}
		} else {
			code = apperr.CodeOf(err)
			status = apperr.HTTPStatus(code)
			msg = publicMessage(err, code)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("API:ErrorHandler",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", status,
				"code", code,
				"err", err,
			)
		}

		body := &ErrorResponse{
			Status:    "error",
			Code:      apperr.PublicCode(code),
			Message:   msg,
			Timestamp: time.Now().UTC(),
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error("API:ErrorHandler:Write", "err", werr)
		}
	}
}

// publicMessage не отдаёт наружу причины внутренних ошибок и различие
// между "нет записи" и "неверный токен".
func publicMessage(err error, code apperr.Code) string {
	switch code {
	case apperr.CodeNotFound, apperr.CodeInvalidToken:
		return "not found"
	case apperr.CodeInternal:
		return "internal server error"
	case apperr.CodeUpstreamUnavailable:
		return "storage is temporarily unavailable"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return string(code)
}
