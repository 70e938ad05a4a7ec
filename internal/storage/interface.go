package storage

import (
	"context"

	"github.com/goserg/eventserver/internal/domain"
)

type EventStorage interface {
	// CreateEvents inserts all specs in one transaction, in order. Either every event is created or none.
	CreateEvents(ctx context.Context, specs []domain.EventSpec) ([]domain.Event, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	// UpdateEvent replaces title, location, date and participants of the stored event.
	UpdateEvent(ctx context.Context, event domain.Event) error
	// DeleteEvent removes the event together with its subscriptions.
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
}

type SubscriptionStorage interface {
	// Subscribe is idempotent per (event, user) and returns domain.ErrNotFound for a missing event.
	Subscribe(ctx context.Context, eventID, userID int64) (domain.Subscription, error)
	ListSubscriptions(ctx context.Context, eventID int64) ([]domain.Subscription, error)
}

type Storage interface {
	EventStorage
	SubscriptionStorage
}
