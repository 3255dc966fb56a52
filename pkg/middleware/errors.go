package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"Sahaaya/internal/apperror"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders handler errors as {"error", "kind"} JSON. Domain errors
// keep their message; anything unclassified is logged and hidden behind a
// generic message.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}

func errorResponse(err error) (int, map[string]string) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status := apperror.StatusCode(appErr.Kind)
		msg := appErr.Message
		if appErr.Kind == apperror.KindInternal {
			msg = "internal server error"
		}
		return status, map[string]string{"error": msg, "kind": string(appErr.Kind)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, map[string]string{"error": fmt.Sprint(he.Message), "kind": kindForStatus(he.Code)}
	}

	return http.StatusInternalServerError, map[string]string{"error": "internal server error", "kind": string(apperror.KindInternal)}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperror.KindValidation)
	case http.StatusUnauthorized:
		return string(apperror.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperror.KindForbidden)
	case http.StatusNotFound:
		return string(apperror.KindNotFound)
	case http.StatusConflict:
		return string(apperror.KindInvalidState)
	case http.StatusTooManyRequests:
		return string(apperror.KindRateLimited)
	default:
		// Remaining 4xx from echo (405, 413, 415) are request faults.
		if status < http.StatusInternalServerError {
			return string(apperror.KindValidation)
		}
		return string(apperror.KindInternal)
	}
}
