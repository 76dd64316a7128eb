package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/http/middleware"
	"docstore/internal/jsonstore"
	"docstore/internal/service"
	"docstore/internal/validate"
)

// errorPayload is the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking
// internal details.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// respondError translates domain errors into HTTP responses. Validation and
// field errors carry their message to the client; everything unrecognized is
// a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var vErr *validate.Error
	if errors.As(err, &vErr) {
		switch vErr.Code {
		case validate.CodeTooLarge:
			return writeError(c, fiber.StatusRequestEntityTooLarge, vErr.Code, vErr.Detail)
		case validate.CodeBadExtension, validate.CodeMimeMismatch:
			return writeError(c, fiber.StatusUnsupportedMediaType, vErr.Code, vErr.Detail)
		default:
			return writeError(c, fiber.StatusBadRequest, vErr.Code, vErr.Detail)
		}
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrEntityNotFound):
		return writeError(c, fiber.StatusNotFound, "ENTITY_NOT_FOUND", "owning entity does not exist")
	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrDisplayNameRequired),
		errors.Is(err, service.ErrDisplayNameTooLong),
		errors.Is(err, service.ErrBadCategory),
		errors.Is(err, service.ErrEntityIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrTooManyDocuments):
		return writeError(c, fiber.StatusBadRequest, "TOO_MANY_DOCUMENTS", err.Error())
	case errors.Is(err, service.ErrEmptyArchive):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_ARCHIVE", "no documents available for download")
	case errors.Is(err, jsonstore.ErrLockTimeout):
		return writeError(c, fiber.StatusServiceUnavailable, "LOCK_TIMEOUT", "store is busy, retry shortly")
	case errors.Is(err, jsonstore.ErrCorrupt):
		return writeError(c, fiber.StatusInternalServerError, "STORE_CORRUPT", "document store is unreadable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler is the fiber global error handler for errors that escape the
// handlers, fiber's own routing errors included.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "internal server error"
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
			message = e.Message
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", message)
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body exceeds the allowed size")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
