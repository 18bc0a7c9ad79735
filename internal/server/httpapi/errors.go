package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/gofiber/fiber/v2"
)

const (
	detailUnauthorized = "Could not validate credentials"
	detailInternal     = "Internal server error"
)

// statusFor maps a service error to an HTTP status and the detail shown to the client.
// Authentication failures share one message so callers cannot tell which check failed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrDuplicateUsername):
		return fiber.StatusBadRequest, "Username already registered"
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return fiber.StatusUnauthorized, detailUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return fiber.StatusForbidden, "Not enough permissions"
	case errors.Is(err, common.ErrorValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return fiber.StatusConflict, "Item with this SKU already exists"
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	return fiber.StatusInternalServerError, detailInternal
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	code, detail := statusFor(err)
	if code == fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	if code == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(code).JSON(fiber.Map{"detail": detail})
}
