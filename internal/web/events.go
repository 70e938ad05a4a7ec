package web

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/goserg/eventserver/internal/domain"

	"github.com/gofiber/fiber/v2"
)

func eventID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid event id %q", domain.ErrInvalidArgument, c.Params("id"))
	}
	return id, nil
}

func parseEventRequest(c *fiber.Ctx) (domain.EventSpec, error) {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.EventSpec{}, fmt.Errorf("%w: malformed body", domain.ErrValidation)
	}
	return req.convertToDomainSpec()
}

func (s *Server) handleSchedule(c *fiber.Ctx) error {
	spec, err := parseEventRequest(c)
	if err != nil {
		return err
	}
	event, err := s.events.Schedule(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return c.JSON(messageResponse{
		Message: "Event scheduled successfully",
		ID:      event.ID,
	})
}

func (s *Server) handleScheduleBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: malformed body", domain.ErrValidation)
	}
	specs, err := req.convertToDomainSpecs()
	if err != nil {
		return err
	}
	created, err := s.events.ScheduleBatch(c.UserContext(), specs)
	if err != nil {
		return err
	}
	return c.JSON(messageResponse{
		Message: "Events scheduled successfully",
		Count:   len(created),
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	events, err := s.events.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(convertEvents(events))
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	event, err := s.events.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(convertEvent(event))
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	spec, err := parseEventRequest(c)
	if err != nil {
		return err
	}
	if _, err := s.events.Update(c.UserContext(), id, spec); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Event updated successfully"})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	if err := s.events.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Event deleted successfully"})
}

func (s *Server) handleListByLocation(c *fiber.Ctx) error {
	location, err := url.PathUnescape(c.Params("location"))
	if err != nil {
		return fmt.Errorf("%w: malformed location", domain.ErrInvalidArgument)
	}
	events, err := s.events.ListByLocation(c.UserContext(), location)
	if err != nil {
		return err
	}
	return c.JSON(convertEvents(events))
}

func (s *Server) handleListSorted(c *fiber.Ctx) error {
	events, err := s.events.ListSorted(c.UserContext(), c.Params("criterion"))
	if err != nil {
		return err
	}
	return c.JSON(convertEvents(events))
}

func (s *Server) handleSubscribe(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	sub, err := s.events.Subscribe(c.UserContext(), id, currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(messageResponse{
		Message: "Subscribed successfully",
		ID:      sub.ID,
	})
}

func (s *Server) handleListSubscriptions(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	subs, err := s.events.ListSubscriptions(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(convertSubscriptions(subs))
}

func (s *Server) handleNotify(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}
	var req notifyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fmt.Errorf("%w: malformed body", domain.ErrValidation)
		}
	}
	delivered, err := s.events.Notify(c.UserContext(), id, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":   "Notification sent successfully",
		"delivered": delivered,
	})
}
