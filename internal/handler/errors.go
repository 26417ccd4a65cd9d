package handler

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/dto"
	"bookstore-payments/internal/logger"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders application errors as JSON with a status code per
// error kind. Anything unknown is a 500.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, dto.ErrorResponse{
				Error:     msg,
				Code:      codeFor(httpErr.Code),
				Retryable: httpErr.Code == http.StatusServiceUnavailable,
			})
			return
		}

		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed",
				slog.String("path", c.Path()), logger.Err(err), logger.Traced(c.Request().Context()))
		}

		_ = c.JSON(status, dto.ErrorResponse{
			Error:     err.Error(),
			Code:      code,
			Retryable: apperr.IsRetryable(err),
		})
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrProofAlreadySubmitted):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, apperr.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "upstream_unavailable"
	}
	return "http_error"
}
