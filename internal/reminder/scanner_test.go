package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/storage/mem"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	reminders []domain.Reminder
	err       error
}

func (s *recordingSink) Send(_ context.Context, r domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reminders = append(s.reminders, r)
	return nil
}

func (s *recordingSink) ids() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, r.EventID)
	}
	return out
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, offsets ...time.Duration) (*mem.Storage, []domain.Event) {
	t.Helper()
	store := mem.New()
	specs := make([]domain.EventSpec, 0, len(offsets))
	for _, offset := range offsets {
		specs = append(specs, domain.EventSpec{
			Title:        "event",
			Location:     "HQ",
			Date:         now.Add(offset),
			Participants: 1,
		})
	}
	created, err := store.CreateEvents(context.Background(), specs)
	require.NoError(t, err)
	return store, created
}

func TestScanner_Scan_window(t *testing.T) {
	store, events := seed(t,
		-time.Minute,   // already started
		0,              // starts right now, excluded
		10*time.Minute, // inside
		30*time.Minute, // window edge, included
		31*time.Minute, // outside
		5*time.Minute,  // inside
	)
	sink := &recordingSink{}
	s := New(store, sink, Config{Window: 30 * time.Minute}, nil, logrus.New())

	n, err := s.Scan(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int64{events[5].ID, events[2].ID, events[3].ID}, sink.ids())

	assert.Equal(t, "event", sink.reminders[0].EventTitle)
	assert.Equal(t, now.Add(5*time.Minute), sink.reminders[0].EventDate)
}

func TestScanner_Scan_withoutDedupe(t *testing.T) {
	store, _ := seed(t, 10*time.Minute)
	sink := &recordingSink{}
	s := New(store, sink, Config{Window: 30 * time.Minute}, nil, logrus.New())

	for i := 0; i < 3; i++ {
		n, err := s.Scan(context.Background(), now.Add(time.Duration(i)*12*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Len(t, sink.ids(), 3)
}

func TestScanner_Scan_dedupe(t *testing.T) {
	ctx := context.Background()
	store, events := seed(t, 10*time.Minute)
	sink := &recordingSink{}
	s := New(store, sink, Config{Window: 30 * time.Minute, Dedupe: true}, nil, logrus.New())

	n, err := s.Scan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Scan(ctx, now.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Rescheduling makes the event eligible again.
	event := events[0]
	event.Date = now.Add(20 * time.Minute)
	require.NoError(t, store.UpdateEvent(ctx, event))

	n, err = s.Scan(ctx, now.Add(24*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, sink.ids(), 2)
}

func TestScanner_prune(t *testing.T) {
	ctx := context.Background()
	store, _ := seed(t, 10*time.Minute)
	s := New(store, &recordingSink{}, Config{Window: 30 * time.Minute, Dedupe: true}, nil, logrus.New())

	_, err := s.Scan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, s.emitted.Cardinality())

	_, err = s.Scan(ctx, now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, s.emitted.Cardinality())
}

func TestScanner_Scan_sinkFailureRetries(t *testing.T) {
	ctx := context.Background()
	store, _ := seed(t, 10*time.Minute)
	sink := &recordingSink{err: errors.New("chat is down")}
	s := New(store, sink, Config{Window: 30 * time.Minute, Dedupe: true}, nil, logrus.New())

	n, err := s.Scan(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	sink.err = nil
	n, err = s.Scan(ctx, now.Add(12*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanner_Scan_dedupePerSink(t *testing.T) {
	ctx := context.Background()
	store, _ := seed(t, 10*time.Minute)
	healthy := &recordingSink{}
	failing := &recordingSink{err: errors.New("chat is down")}
	s := New(store, MultiSink{healthy, failing}, Config{Window: 30 * time.Minute, Dedupe: true}, nil, logrus.New())

	for i := 0; i < 3; i++ {
		_, err := s.Scan(ctx, now.Add(time.Duration(i)*12*time.Second))
		require.NoError(t, err)
	}
	assert.Len(t, healthy.ids(), 1)
	assert.Empty(t, failing.ids())

	failing.mu.Lock()
	failing.err = nil
	failing.mu.Unlock()
	n, err := s.Scan(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, healthy.ids(), 1)
	assert.Len(t, failing.ids(), 1)

	n, err = s.Scan(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScanner_StartStop(t *testing.T) {
	store, _ := seed(t)
	s := New(store, &recordingSink{}, Config{Schedule: "not a schedule"}, nil, logrus.New())
	assert.Error(t, s.Start())
	s.Stop()

	s = New(store, &recordingSink{}, Config{}, nil, logrus.New())
	require.NoError(t, s.Start())
	s.Stop()
}
