// Package reminder periodically looks for events starting soon and hands reminders to sinks.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/metrics"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSchedule = "@every 12s"
	DefaultWindow   = 30 * time.Minute
	defaultTimeout  = 5 * time.Second
)

// EventLister is the part of the event storage the scanner reads.
type EventLister interface {
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
}

type Config struct {
	Schedule string
	Window   time.Duration
	// Dedupe emits each (event, date) pair once.
	Dedupe  bool
	Timeout time.Duration
}

// reminderKey records one delivery of an (event, date) pair to the sink at index Sink.
type reminderKey struct {
	Sink    int
	EventID int64
	Date    int64
}

type Scanner struct {
	events EventLister
	// sinks are tracked separately so one failing sink does not resend to the others.
	sinks []Sink
	cfg   Config

	// mu serializes scans so dedupe bookkeeping sees one firing at a time.
	mu      sync.Mutex
	emitted mapset.Set[reminderKey]

	cron    *cron.Cron
	metrics metrics.Recorder
	log     *logrus.Entry
}

func New(events EventLister, sink Sink, cfg Config, m metrics.Recorder, l *logrus.Logger) *Scanner {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Scanner{
		events:  events,
		sinks:   flatten(sink),
		cfg:     cfg,
		emitted: mapset.NewThreadUnsafeSet[reminderKey](),
		metrics: m,
		log:     l.WithField("from", "reminder"),
	}
}

func flatten(sink Sink) []Sink {
	multi, ok := sink.(MultiSink)
	if !ok {
		return []Sink{sink}
	}
	var sinks []Sink
	for _, s := range multi {
		sinks = append(sinks, flatten(s)...)
	}
	return sinks
}

// Scan emits a reminder for every event with now < date <= now+window and returns how many
// events reached at least one sink. A failed sink is logged and retried on the next scan
// without repeating the reminder on sinks that already got it.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.UTC()
	events, err := s.events.ListEvents(ctx, domain.EventFilter{
		After:   now,
		Until:   now.Add(s.cfg.Window),
		OrderBy: domain.SortByDate,
	})
	if err != nil {
		return 0, err
	}
	if s.cfg.Dedupe {
		s.prune(now)
	}

	emitted := 0
	for _, event := range events {
		reminder := domain.Reminder{
			EventID:    event.ID,
			EventTitle: event.Title,
			EventDate:  event.Date,
		}
		delivered := false
		for i, sink := range s.sinks {
			key := reminderKey{Sink: i, EventID: event.ID, Date: event.Date.Unix()}
			if s.cfg.Dedupe && s.emitted.Contains(key) {
				continue
			}
			if err := sink.Send(ctx, reminder); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"event": event.ID,
					"sink":  i,
				}).Error("reminder not delivered")
				continue
			}
			if s.cfg.Dedupe {
				s.emitted.Add(key)
			}
			delivered = true
		}
		if delivered {
			emitted++
		}
	}
	s.metrics.RemindersEmitted(ctx, emitted)
	return emitted, nil
}

// prune forgets reminders for dates that have passed.
func (s *Scanner) prune(now time.Time) {
	for _, key := range s.emitted.ToSlice() {
		if key.Date <= now.Unix() {
			s.emitted.Remove(key)
		}
	}
}

// Start runs Scan on the configured schedule until Stop. Firings that overlap a running scan are skipped.
func (s *Scanner) Start() error {
	logger := cron.PrintfLogger(s.log)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()

		n, err := s.Scan(ctx, time.Now())
		if err != nil {
			s.log.WithError(err).Error("reminder scan failed")
			return
		}
		if n > 0 {
			s.log.WithField("count", n).Debug("reminders emitted")
		}
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.WithFields(logrus.Fields{
		"schedule": s.cfg.Schedule,
		"window":   s.cfg.Window,
		"dedupe":   s.cfg.Dedupe,
	}).Info("reminder scanner started")
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (s *Scanner) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("reminder scanner stopped")
}
