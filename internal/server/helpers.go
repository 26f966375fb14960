package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"commentboard/internal/middleware"
	"commentboard/internal/models"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/skip query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 50
	maxPaginationLimit     = 100
)

// retryAfterSeconds is advertised on 503 responses.
const retryAfterSeconds = "1"

// parsePagination extracts limit and skip query parameters. offset is
// accepted as an alias of skip.
func parsePagination(c *fiber.Ctx) Pagination {
	limit := c.QueryInt("limit", defaultPaginationLimit)
	if limit <= 0 {
		limit = defaultPaginationLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("skip", c.QueryInt("offset", 0))
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// respondError writes err with the status its code maps to. Storage outages
// carry Retry-After because every write endpoint is safe to repeat.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	switch status {
	case fiber.StatusServiceUnavailable:
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		middleware.Logger.WarnContext(c.UserContext(), "storage unavailable", "path", c.Path(), "error", err.Error())
	case fiber.StatusInternalServerError, fiber.StatusBadGateway:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}

// parseBody decodes the JSON body into dst. On failure it writes a 400 JSON
// response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
