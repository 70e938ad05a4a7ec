package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/metrics"
	"github.com/goserg/eventserver/internal/notify"
	"github.com/goserg/eventserver/internal/storage"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
)

// Publisher delivers real-time messages to connected listeners.
type Publisher interface {
	Broadcast(msg notify.Message) int
	Publish(msg notify.Message, recipients mapset.Set[int64]) int
}

type EventService struct {
	storage   storage.Storage
	publisher Publisher
	cfg       Config
	metrics   metrics.Recorder
	log       *logrus.Entry
}

func New(storage storage.Storage, publisher Publisher, cfg Config, m metrics.Recorder, l *logrus.Logger) *EventService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &EventService{
		storage:   storage,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		metrics:   m,
		log:       l.WithField("from", "event-service"),
	}
}

func (s *EventService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StorageTimeout)
}

func (s *EventService) Schedule(ctx context.Context, spec domain.EventSpec) (domain.Event, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return domain.Event{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.storage.CreateEvents(ctx, []domain.EventSpec{spec})
	if err != nil {
		return domain.Event{}, err
	}
	if len(created) != 1 {
		return domain.Event{}, fmt.Errorf("expected one created event, got %d", len(created))
	}
	s.metrics.EventsCreated(ctx, 1)
	s.log.WithField("event", created[0].ID).Debug("event scheduled")
	return created[0], nil
}

// ScheduleBatch validates every entry before writing anything, then stores all entries in list order.
func (s *EventService) ScheduleBatch(ctx context.Context, specs []domain.EventSpec) ([]domain.Event, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: events list is empty", domain.ErrValidation)
	}
	normalized := make([]domain.EventSpec, 0, len(specs))
	var errs error
	for i, spec := range specs {
		spec = spec.Normalize()
		if err := spec.Validate(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("event %d: %w", i, err))
		}
		normalized = append(normalized, spec)
	}
	if errs != nil {
		return nil, errs
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.storage.CreateEvents(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s.metrics.EventsCreated(ctx, len(created))
	s.log.WithField("count", len(created)).Debug("events scheduled")
	return created, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.storage.GetEvent(ctx, id)
}

// Update replaces all fields of the event at once.
func (s *EventService) Update(ctx context.Context, id int64, spec domain.EventSpec) (domain.Event, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return domain.Event{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	event := spec.Event(id)
	if err := s.storage.UpdateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.storage.DeleteEvent(ctx, id)
}

func (s *EventService) List(ctx context.Context) ([]domain.Event, error) {
	return s.list(ctx, domain.EventFilter{})
}

func (s *EventService) ListByLocation(ctx context.Context, location string) ([]domain.Event, error) {
	return s.list(ctx, domain.EventFilter{Location: &location})
}

func (s *EventService) ListSorted(ctx context.Context, criterion string) ([]domain.Event, error) {
	orderBy, err := domain.ParseSortCriterion(criterion)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, domain.EventFilter{OrderBy: orderBy})
}

func (s *EventService) list(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.storage.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
