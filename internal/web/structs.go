package web

import (
	"errors"
	"fmt"

	"github.com/goserg/eventserver/internal/domain"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// parseCredentials accepts form fields or a JSON body.
func parseCredentials(c *fiber.Ctx) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return credentialsRequest{}, fmt.Errorf("%w: malformed body", domain.ErrValidation)
	}
	return req, nil
}
