package sqlite

import (
	"time"

	"github.com/goserg/eventserver/gen/model"
	"github.com/goserg/eventserver/internal/domain"
)

func convertEventsToDomain(events []model.Events) []domain.Event {
	converted := make([]domain.Event, 0, len(events))
	for _, event := range events {
		converted = append(converted, convertEventToDomain(event))
	}
	return converted
}

func convertEventToDomain(event model.Events) domain.Event {
	return domain.Event{
		ID:           int64(event.ID),
		Title:        event.Title,
		Location:     event.Location,
		Date:         time.Unix(event.Date, 0).UTC(),
		Participants: int(event.Participants),
	}
}

func convertEventFromDomain(event domain.Event) model.Events {
	return model.Events{
		ID:           int32(event.ID),
		Title:        event.Title,
		Location:     event.Location,
		Date:         event.Date.Unix(),
		Participants: int32(event.Participants),
	}
}

func convertEventSpecFromDomain(spec domain.EventSpec) model.Events {
	return convertEventFromDomain(spec.Event(0))
}

func convertSubscriptionsToDomain(subs []model.Subscriptions) []domain.Subscription {
	converted := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		converted = append(converted, convertSubscriptionToDomain(sub))
	}
	return converted
}

func convertSubscriptionToDomain(sub model.Subscriptions) domain.Subscription {
	return domain.Subscription{
		ID:        int64(sub.ID),
		EventID:   int64(sub.EventID),
		UserID:    int64(sub.UserID),
		CreatedAt: time.Unix(sub.CreatedAt, 0).UTC(),
	}
}
