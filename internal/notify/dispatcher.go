// Package notify fans real-time messages out to connected listeners.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goserg/eventserver/internal/metrics"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TypeEventNotification = "event_notification"
	TypeEventReminder     = "event_reminder"

	defaultBufferSize = 16
)

type Message struct {
	Type       string     `json:"type"`
	EventID    int64      `json:"eventId"`
	Message    string     `json:"message"`
	EventTitle string     `json:"eventTitle,omitempty"`
	EventDate  *time.Time `json:"eventDate,omitempty"`
}

// Listener is one connected client. Messages arrive on Outbox until the listener is unregistered.
type Listener struct {
	ID     uuid.UUID
	UserID int64
	outbox chan Message
}

func (l *Listener) Outbox() <-chan Message {
	return l.outbox
}

type Dispatcher struct {
	mu         sync.RWMutex
	listeners  map[uuid.UUID]*Listener
	bufferSize int

	metrics metrics.Recorder
	log     *logrus.Entry
}

func New(bufferSize int, m metrics.Recorder, l *logrus.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Dispatcher{
		listeners:  make(map[uuid.UUID]*Listener),
		bufferSize: bufferSize,
		metrics:    m,
		log:        l.WithField("from", "dispatcher"),
	}
}

func (d *Dispatcher) Register(userID int64) *Listener {
	listener := &Listener{
		ID:     uuid.New(),
		UserID: userID,
		outbox: make(chan Message, d.bufferSize),
	}
	d.mu.Lock()
	d.listeners[listener.ID] = listener
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"listener": listener.ID,
		"user":     userID,
	}).Debug("listener registered")
	return listener
}

// Unregister removes the listener and closes its outbox. Repeated calls are no-ops.
func (d *Dispatcher) Unregister(listener *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.listeners[listener.ID]; !ok {
		return
	}
	delete(d.listeners, listener.ID)
	close(listener.outbox)
	d.log.WithField("listener", listener.ID).Debug("listener unregistered")
}

func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Broadcast queues msg for every listener and returns how many accepted it.
func (d *Dispatcher) Broadcast(msg Message) int {
	return d.deliver(msg, nil)
}

// Publish queues msg for listeners whose user is in recipients and returns how many accepted it.
func (d *Dispatcher) Publish(msg Message, recipients mapset.Set[int64]) int {
	if recipients == nil || recipients.Cardinality() == 0 {
		return 0
	}
	return d.deliver(msg, recipients)
}

func (d *Dispatcher) deliver(msg Message, recipients mapset.Set[int64]) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, listener := range d.listeners {
		if recipients != nil && !recipients.Contains(listener.UserID) {
			continue
		}
		select {
		case listener.outbox <- msg:
			delivered++
		default:
			dropped++
			d.log.WithFields(logrus.Fields{
				"listener": listener.ID,
				"event":    msg.EventID,
				"type":     msg.Type,
			}).Warn("listener outbox is full, message dropped")
		}
	}

	ctx := context.Background()
	d.metrics.MessagesDelivered(ctx, msg.Type, delivered)
	if dropped > 0 {
		d.metrics.MessagesDropped(ctx, msg.Type, dropped)
	}
	return delivered
}
