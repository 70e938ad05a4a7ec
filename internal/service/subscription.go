package service

import (
	"context"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/notify"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

// Subscribe is idempotent, a repeated call returns the existing subscription.
func (s *EventService) Subscribe(ctx context.Context, eventID, userID int64) (domain.Subscription, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.storage.Subscribe(ctx, eventID, userID)
}

func (s *EventService) ListSubscriptions(ctx context.Context, eventID int64) ([]domain.Subscription, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	subs, err := s.storage.ListSubscriptions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	return subs, nil
}

// Subscribers returns the users subscribed to the event.
func (s *EventService) Subscribers(ctx context.Context, eventID int64) (mapset.Set[int64], error) {
	subs, err := s.ListSubscriptions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	recipients := mapset.NewSet[int64]()
	for _, sub := range subs {
		recipients.Add(sub.UserID)
	}
	return recipients, nil
}

// Notify announces the event to listeners and returns how many received it.
// An empty text is replaced by the configured default message.
func (s *EventService) Notify(ctx context.Context, eventID int64, text string) (int, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return 0, err
	}
	if text == "" {
		text = s.cfg.DefaultMessage
	}
	msg := notify.Message{
		Type:    notify.TypeEventNotification,
		EventID: eventID,
		Message: text,
	}

	var delivered int
	switch s.cfg.NotifyMode {
	case NotifyBroadcast:
		delivered = s.publisher.Broadcast(msg)
	default:
		recipients, err := s.Subscribers(ctx, eventID)
		if err != nil {
			return 0, err
		}
		delivered = s.publisher.Publish(msg, recipients)
	}
	s.log.WithFields(logrus.Fields{
		"event":     eventID,
		"mode":      s.cfg.NotifyMode,
		"delivered": delivered,
	}).Info("notification sent")
	return delivered, nil
}
