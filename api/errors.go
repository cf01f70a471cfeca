package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/ingestion"
	"github.com/poiesic/sessionrag/rag"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/poiesic/sessionrag/sessions"
	"github.com/poiesic/sessionrag/storage"
)

var (
	// ErrSessionsRequired is returned when a session service is not provided.
	ErrSessionsRequired = errors.New("session service required")

	// ErrEngineRequired is returned when a retrieval engine is not provided.
	ErrEngineRequired = errors.New("retrieval engine required")

	// ErrAnswererRequired is returned when an answerer is not provided.
	ErrAnswererRequired = errors.New("answerer required")

	// ErrBadRequest is returned for malformed request bodies and parameters.
	ErrBadRequest = errors.New("bad request")
)

var badRequestErrors = []error{
	ErrBadRequest,
	core.ErrInvalidDocument,
	core.ErrInvalidSession,
	core.ErrInvalidSessionID,
	core.ErrEmptyText,
	core.ErrEmptySessionName,
	rag.ErrEmptyQuery,
	retrieval.ErrInvalidTopK,
}

var notFoundErrors = []error{
	sessions.ErrSessionNotFound,
	sessions.ErrConversationNotFound,
	ingestion.ErrSessionNotFound,
	storage.ErrNotFound,
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return fiber.StatusBadRequest
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return fiber.StatusNotFound
		}
	}
	if errors.Is(err, retrieval.ErrRetrievalUnavailable) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "err", err)
		} else {
			logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "err", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
}
