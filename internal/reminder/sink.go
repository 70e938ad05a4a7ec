package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/notify"

	mapset "github.com/deckarep/golang-set/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	SinkLog      = "log"
	SinkTelegram = "telegram"
	SinkStream   = "stream"
)

type Sink interface {
	Send(ctx context.Context, reminder domain.Reminder) error
}

func text(r domain.Reminder) string {
	return fmt.Sprintf("Reminder: Event %q is starting soon at %s", r.EventTitle, r.EventDate.UTC().Format(time.RFC3339))
}

// LogSink writes one log line per reminder.
type LogSink struct {
	log *logrus.Entry
}

func NewLogSink(l *logrus.Logger) *LogSink {
	return &LogSink{log: l.WithField("from", "reminder")}
}

func (s *LogSink) Send(_ context.Context, r domain.Reminder) error {
	s.log.WithFields(logrus.Fields{
		"event": r.EventID,
		"date":  r.EventDate.UTC().Format(time.RFC3339),
	}).Info(text(r))
	return nil
}

// TelegramSink posts reminders to one chat.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(bot *tgbotapi.BotAPI, chatID int64) *TelegramSink {
	return &TelegramSink{
		bot:    bot,
		chatID: chatID,
	}
}

func (s *TelegramSink) Send(_ context.Context, r domain.Reminder) error {
	msg := tgbotapi.NewMessage(s.chatID, text(r))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

type SubscriberSource interface {
	Subscribers(ctx context.Context, eventID int64) (mapset.Set[int64], error)
}

type StreamPublisher interface {
	Publish(msg notify.Message, recipients mapset.Set[int64]) int
}

// StreamSink pushes reminders over the real-time stream to users subscribed to the event.
type StreamSink struct {
	subscribers SubscriberSource
	publisher   StreamPublisher
}

func NewStreamSink(subscribers SubscriberSource, publisher StreamPublisher) *StreamSink {
	return &StreamSink{
		subscribers: subscribers,
		publisher:   publisher,
	}
}

func (s *StreamSink) Send(ctx context.Context, r domain.Reminder) error {
	recipients, err := s.subscribers.Subscribers(ctx, r.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	date := r.EventDate.UTC()
	s.publisher.Publish(notify.Message{
		Type:       notify.TypeEventReminder,
		EventID:    r.EventID,
		Message:    text(r),
		EventTitle: r.EventTitle,
		EventDate:  &date,
	}, recipients)
	return nil
}

// MultiSink sends to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, r domain.Reminder) error {
	var errs error
	for _, sink := range m {
		errs = errors.Join(errs, sink.Send(ctx, r))
	}
	return errs
}
