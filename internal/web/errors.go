package web

import (
	"errors"

	authservice "github.com/goserg/eventserver/auth/service"
	"github.com/goserg/eventserver/internal/domain"

	"github.com/gofiber/fiber/v2"
)

func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.Is(err, authservice.ErrNotAuthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	body := newErrorResponse(err)
	switch {
	case status == fiber.StatusUnauthorized:
		body = errorResponse{Error: "Unauthorized"}
	case status >= fiber.StatusInternalServerError:
		s.log.WithError(err).WithField("path", c.Path()).Error("request failed")
		body = errorResponse{Error: "internal server error"}
	}
	return c.Status(status).JSON(body)
}
