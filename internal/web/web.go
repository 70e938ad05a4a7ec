package web

import (
	"context"
	"strconv"

	authservice "github.com/goserg/eventserver/auth/service"
	"github.com/goserg/eventserver/internal/config"
	"github.com/goserg/eventserver/internal/metrics"
	"github.com/goserg/eventserver/internal/notify"
	"github.com/goserg/eventserver/internal/service"
	"github.com/goserg/eventserver/internal/web/webpath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type Server struct {
	auth       *authservice.Service
	events     *service.EventService
	dispatcher *notify.Dispatcher
	app        *fiber.App
	cfg        config.Server
	metrics    metrics.Recorder
	log        *logrus.Entry
}

func New(
	events *service.EventService,
	authService *authservice.Service,
	dispatcher *notify.Dispatcher,
	cfg config.Server,
	m metrics.Recorder,
	l *logrus.Logger,
) *Server {
	if m == nil {
		m = metrics.Noop{}
	}
	server := Server{
		auth:       authService,
		events:     events,
		dispatcher: dispatcher,
		cfg:        cfg,
		metrics:    m,
		log:        l.WithField("from", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "eventserver",
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          server.errorHandler,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Debug}))
	app.Use(requestid.New())
	app.Use(server.accessLog)

	app.Get(webpath.Health, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Post(webpath.Users, server.handleCreateUser)
	app.Post(webpath.Signin, server.handleSignIn)

	for _, prefix := range webpath.Protected() {
		app.Use(prefix, server.authRequired)
	}
	app.Get(webpath.Stream, server.upgradeStream, websocket.New(server.handleStream))

	app.Get(webpath.EventsByLocation, server.handleListByLocation)
	app.Get(webpath.EventsSorted, server.handleListSorted)
	app.Post(webpath.EventsBatch, server.handleScheduleBatch)
	app.Post(webpath.EventSubscribe, server.handleSubscribe)
	app.Post(webpath.EventNotify, server.handleNotify)
	app.Get(webpath.EventSubscriptions, server.handleListSubscriptions)
	app.Post(webpath.Events, server.handleSchedule)
	app.Get(webpath.Events, server.handleList)
	app.Get(webpath.EventByID, server.handleGet)
	app.Put(webpath.EventByID, server.handleUpdate)
	app.Delete(webpath.EventByID, server.handleDelete)

	server.app = app
	return &server
}

func (s *Server) Serve() error {
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	s.log.WithField("addr", addr).Info("listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber application, mainly for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return err
	}
	user, err := s.auth.SignUp(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(messageResponse{
		Message: "User created successfully",
		ID:      user.ID,
	})
}

func (s *Server) handleSignIn(c *fiber.Ctx) error {
	req, err := parseCredentials(c)
	if err != nil {
		return err
	}
	token, expiresAt, err := s.auth.SignIn(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": formatDate(expiresAt),
	})
}
