package web

import (
	"strings"
	"time"

	"github.com/goserg/eventserver/auth/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

const userKey = "user"

func currentUser(c *fiber.Ctx) users.User {
	user, _ := c.Locals(userKey).(users.User)
	return user
}

// accessLog writes one line per request. Handler errors are rendered here so the logged status is final.
func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	entry := s.log.WithFields(logrus.Fields{
		"method":  c.Method(),
		"path":    c.Path(),
		"status":  c.Response().StatusCode(),
		"latency": time.Since(start).String(),
	})
	if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		entry = entry.WithField("request_id", rid)
	}
	entry.Info("request")
	return nil
}

// authRequired resolves the Authorization header. Websocket clients may pass ?token= instead.
func (s *Server) authRequired(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			header = "Bearer " + token
		}
	}
	user, ok := s.auth.Validate(c.UserContext(), header)
	if !ok {
		s.metrics.AuthRejected(c.UserContext())
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "Unauthorized"})
	}
	c.Locals(userKey, user)
	return c.Next()
}
