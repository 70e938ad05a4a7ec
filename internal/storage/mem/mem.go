package mem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/storage"
)

// Storage keeps events and subscriptions in process memory. A single lock serializes writers.
type Storage struct {
	mu sync.RWMutex

	events      map[int64]domain.Event
	lastEventID int64

	subscriptions map[int64][]domain.Subscription
	lastSubID     int64
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		events:        make(map[int64]domain.Event),
		subscriptions: make(map[int64][]domain.Subscription),
	}
}

func (s *Storage) CreateEvents(_ context.Context, specs []domain.EventSpec) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]domain.Event, 0, len(specs))
	for _, spec := range specs {
		s.lastEventID++
		event := spec.Event(s.lastEventID)
		s.events[event.ID] = event
		created = append(created, event)
	}
	return created, nil
}

func (s *Storage) GetEvent(_ context.Context, id int64) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return event, nil
}

func (s *Storage) UpdateEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return domain.ErrNotFound
	}
	s.events[event.ID] = event
	return nil
}

func (s *Storage) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.events, id)
	delete(s.subscriptions, id)
	return nil
}

func (s *Storage) ListEvents(_ context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.Event, 0, len(s.events))
	for _, event := range s.events {
		if filter.Match(event) {
			events = append(events, event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return filter.Less(events[i], events[j])
	})
	return events, nil
}

func (s *Storage) Subscribe(_ context.Context, eventID, userID int64) (domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return domain.Subscription{}, domain.ErrNotFound
	}
	for _, sub := range s.subscriptions[eventID] {
		if sub.UserID == userID {
			return sub, nil
		}
	}
	s.lastSubID++
	sub := domain.Subscription{
		ID:        s.lastSubID,
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	s.subscriptions[eventID] = append(s.subscriptions[eventID], sub)
	return sub, nil
}

func (s *Storage) ListSubscriptions(_ context.Context, eventID int64) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, domain.ErrNotFound
	}
	subs := make([]domain.Subscription, len(s.subscriptions[eventID]))
	copy(subs, s.subscriptions[eventID])
	return subs, nil
}
