package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/pricing"
	"github.com/medsnear/medsnear/internal/core/slug"
	"github.com/medsnear/medsnear/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnprocessable returns a 422 error.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "unprocessable_entity", msg)
}

// errServiceUnavailable returns a 503 error.
func errServiceUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "service_unavailable", msg)
}

// errFromService maps a use-case error onto the API error envelope.
// Unexpected errors are logged and reported without internal detail.
func errFromService(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, usecases.ErrQueryTooLong):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, slug.ErrSlugExhausted):
		return errConflict(c, err.Error())
	case errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrBelowMinimum),
		errors.Is(err, pricing.ErrInvalidCoupon):
		return errUnprocessable(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errServiceUnavailable(c, "request timed out")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
