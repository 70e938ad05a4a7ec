// Package storagetest holds behaviour checks shared by every storage.Storage backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)

func spec(title, location string, offset time.Duration, participants int) domain.EventSpec {
	return domain.EventSpec{
		Title:        title,
		Location:     location,
		Date:         base.Add(offset),
		Participants: participants,
	}
}

// Run executes the shared checks against storages produced by factory, one fresh storage per check.
func Run(t *testing.T, factory func(t *testing.T) storage.Storage) {
	t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, factory(t)) })
	t.Run("update", func(t *testing.T) { testUpdate(t, factory(t)) })
	t.Run("delete", func(t *testing.T) { testDelete(t, factory(t)) })
	t.Run("list", func(t *testing.T) { testList(t, factory(t)) })
	t.Run("subscriptions", func(t *testing.T) { testSubscriptions(t, factory(t)) })
	t.Run("participant bounds", func(t *testing.T) { testParticipantBounds(t, factory(t)) })
	t.Run("concurrent create", func(t *testing.T) { testConcurrentCreate(t, factory(t)) })
	t.Run("concurrent update", func(t *testing.T) { testConcurrentUpdate(t, factory(t)) })
}

func testCreateAndGet(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateEvents(ctx, []domain.EventSpec{
		spec("Go meetup", "Berlin", 0, 10),
		spec("Rust meetup", "Paris", time.Hour, 5),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Less(t, created[0].ID, created[1].ID)

	got, err := s.GetEvent(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0], got)
	assert.Equal(t, "Go meetup", got.Title)
	assert.True(t, base.Equal(got.Date))

	_, err = s.GetEvent(ctx, created[1].ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateEvents(ctx, []domain.EventSpec{spec("Go meetup", "Berlin", 0, 10)})
	require.NoError(t, err)

	event := created[0]
	event.Title = "Go conference"
	event.Participants = 300
	require.NoError(t, s.UpdateEvent(ctx, event))

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event, got)

	err = s.UpdateEvent(ctx, domain.Event{ID: event.ID + 100, Title: "x", Location: "y", Date: base})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateEvents(ctx, []domain.EventSpec{spec("Go meetup", "Berlin", 0, 10)})
	require.NoError(t, err)
	id := created[0].ID

	_, err = s.Subscribe(ctx, id, 1)
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, id))

	_, err = s.GetEvent(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.ListSubscriptions(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ctx, id), domain.ErrNotFound)
}

func testList(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateEvents(ctx, []domain.EventSpec{
		spec("a", "Berlin", 3*time.Hour, 5),
		spec("b", "Paris", time.Hour, 50),
		spec("c", "Berlin", 2*time.Hour, 50),
		spec("d", "Berlin", time.Hour, 1),
	})
	require.NoError(t, err)
	a, b, c, d := created[0].ID, created[1].ID, created[2].ID, created[3].ID

	all, err := s.ListEvents(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b, c, d}, ids(all))

	byDate, err := s.ListEvents(ctx, domain.EventFilter{OrderBy: domain.SortByDate})
	require.NoError(t, err)
	assert.Equal(t, []int64{b, d, c, a}, ids(byDate))

	byPopularity, err := s.ListEvents(ctx, domain.EventFilter{OrderBy: domain.SortByPopularity})
	require.NoError(t, err)
	assert.Equal(t, []int64{b, c, a, d}, ids(byPopularity))

	berlin := "Berlin"
	inBerlin, err := s.ListEvents(ctx, domain.EventFilter{Location: &berlin})
	require.NoError(t, err)
	assert.Equal(t, []int64{a, c, d}, ids(inBerlin))

	nowhere := "Nowhere"
	empty, err := s.ListEvents(ctx, domain.EventFilter{Location: &nowhere})
	require.NoError(t, err)
	assert.Empty(t, empty)

	window, err := s.ListEvents(ctx, domain.EventFilter{
		After:   base.Add(time.Hour),
		Until:   base.Add(3 * time.Hour),
		OrderBy: domain.SortByDate,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{c, a}, ids(window))
}

func testSubscriptions(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateEvents(ctx, []domain.EventSpec{spec("Go meetup", "Berlin", 0, 10)})
	require.NoError(t, err)
	id := created[0].ID

	subs, err := s.ListSubscriptions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, subs)

	first, err := s.Subscribe(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, id, first.EventID)
	assert.Equal(t, int64(7), first.UserID)

	again, err := s.Subscribe(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = s.Subscribe(ctx, id, 8)
	require.NoError(t, err)

	subs, err = s.ListSubscriptions(ctx, id)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(7), subs[0].UserID)
	assert.Equal(t, int64(8), subs[1].UserID)

	_, err = s.Subscribe(ctx, id+100, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testParticipantBounds(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	largest := spec("Stadium", "Berlin", 0, domain.MaxParticipants)
	require.NoError(t, largest.Validate())
	created, err := s.CreateEvents(ctx, []domain.EventSpec{largest})
	require.NoError(t, err)

	got, err := s.GetEvent(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxParticipants, got.Participants)

	assert.ErrorIs(t, spec("Stadium", "Berlin", 0, domain.MaxParticipants+1).Validate(), domain.ErrValidation)
}

func testConcurrentCreate(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateEvents(ctx, []domain.EventSpec{spec("concurrent", "Berlin", 0, 1)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := s.ListEvents(ctx, domain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, workers)
	seen := make(map[int64]bool, workers)
	for _, e := range all {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func testConcurrentUpdate(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const writers = 8

	created, err := s.CreateEvents(ctx, []domain.EventSpec{spec("initial", "Berlin", 0, 0)})
	require.NoError(t, err)
	id := created[0].ID

	written := make([]domain.Event, writers)
	for i := range written {
		written[i] = spec(fmt.Sprintf("title %d", i), fmt.Sprintf("room %d", i), time.Duration(i)*time.Hour, i+1).Event(id)
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for _, event := range written {
		wg.Add(1)
		go func(event domain.Event) {
			defer wg.Done()
			errs <- s.UpdateEvent(ctx, event)
		}(event)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, written, got, "fields of different writes were mixed")
}

func ids(events []domain.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
