package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goserg/eventserver/internal/domain"
)

// localLayout is the zone-less form older clients send, read as UTC.
const localLayout = "2006-01-02T15:04:05"

type eventRequest struct {
	Title        string `json:"title" form:"title"`
	Location     string `json:"location" form:"location"`
	Date         string `json:"date" form:"date"`
	Participants *int   `json:"participants" form:"participants"`
}

// convertToDomainSpec reports malformed input first and field rules only once the input parses.
func (r eventRequest) convertToDomainSpec() (domain.EventSpec, error) {
	var err error
	spec := domain.EventSpec{
		Title:    r.Title,
		Location: r.Location,
	}
	if r.Participants == nil {
		err = errors.Join(err, fmt.Errorf("%w: participants is required", domain.ErrValidation))
	} else {
		spec.Participants = *r.Participants
	}
	date, dateErr := parseDate(r.Date)
	if dateErr != nil {
		err = errors.Join(err, dateErr)
	}
	spec.Date = date
	if err != nil {
		return domain.EventSpec{}, err
	}
	if err := spec.Validate(); err != nil {
		return domain.EventSpec{}, err
	}
	return spec, nil
}

type batchRequest struct {
	Events []eventRequest `json:"events"`
}

func (r batchRequest) convertToDomainSpecs() ([]domain.EventSpec, error) {
	if len(r.Events) == 0 {
		return nil, fmt.Errorf("%w: events list is empty", domain.ErrValidation)
	}
	specs := make([]domain.EventSpec, 0, len(r.Events))
	var err error
	for i, event := range r.Events {
		spec, specErr := event.convertToDomainSpec()
		if specErr != nil {
			err = errors.Join(err, fmt.Errorf("event %d: %w", i, specErr))
			continue
		}
		specs = append(specs, spec)
	}
	if err != nil {
		return nil, err
	}
	return specs, nil
}

type notifyRequest struct {
	Message string `json:"message" form:"message"`
}

type eventResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Location     string `json:"location"`
	Date         string `json:"date"`
	Participants int    `json:"participants"`
}

func convertEvent(e domain.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Location:     e.Location,
		Date:         formatDate(e.Date),
		Participants: e.Participants,
	}
}

func convertEvents(events []domain.Event) []eventResponse {
	converted := make([]eventResponse, 0, len(events))
	for _, e := range events {
		converted = append(converted, convertEvent(e))
	}
	return converted
}

type subscriptionResponse struct {
	ID        int64  `json:"id"`
	EventID   int64  `json:"eventId"`
	UserID    int64  `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

func convertSubscriptions(subs []domain.Subscription) []subscriptionResponse {
	converted := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		converted = append(converted, subscriptionResponse{
			ID:        sub.ID,
			EventID:   sub.EventID,
			UserID:    sub.UserID,
			CreatedAt: formatDate(sub.CreatedAt),
		})
	}
	return converted
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date must be RFC 3339, e.g. 2023-12-01T12:00:00Z", domain.ErrValidation)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
