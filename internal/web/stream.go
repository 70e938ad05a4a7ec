package web

import (
	"github.com/goserg/eventserver/auth/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

func (s *Server) upgradeStream(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// handleStream forwards dispatcher messages to the client until either side goes away.
func (s *Server) handleStream(conn *websocket.Conn) {
	user, _ := conn.Locals(userKey).(users.User)
	listener := s.dispatcher.Register(user.ID)
	defer s.dispatcher.Unregister(listener)

	log := s.log.WithFields(logrus.Fields{
		"listener": listener.ID,
		"user":     user.ID,
	})
	log.Info("stream connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Info("stream disconnected")
			return
		case msg, ok := <-listener.Outbox():
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Warn("stream write failed")
				return
			}
		}
	}
}
