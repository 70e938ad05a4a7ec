package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSpec_Validate(t *testing.T) {
	date := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		spec    EventSpec
		wantErr int
	}{
		{
			name: "ok",
			spec: EventSpec{Title: "Meetup", Location: "Berlin", Date: date, Participants: 3},
		},
		{
			name: "zero participants allowed",
			spec: EventSpec{Title: "Meetup", Location: "Berlin", Date: date},
		},
		{
			name:    "blank title",
			spec:    EventSpec{Title: "  ", Location: "Berlin", Date: date},
			wantErr: 1,
		},
		{
			name: "largest participant count",
			spec: EventSpec{Title: "Meetup", Location: "Berlin", Date: date, Participants: MaxParticipants},
		},
		{
			name:    "participants overflow storage",
			spec:    EventSpec{Title: "Meetup", Location: "Berlin", Date: date, Participants: MaxParticipants + 1},
			wantErr: 1,
		},
		{
			name:    "everything missing",
			spec:    EventSpec{Participants: -1},
			wantErr: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Len(t, strings.Split(err.Error(), "\n"), tt.wantErr)
		})
	}
}

func TestEventSpec_Normalize(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	spec := EventSpec{
		Title:    " Meetup ",
		Location: "Berlin\n",
		Date:     time.Date(2024, 3, 1, 21, 0, 0, 500, loc),
	}.Normalize()

	assert.Equal(t, "Meetup", spec.Title)
	assert.Equal(t, "Berlin", spec.Location)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), spec.Date)
	assert.Equal(t, time.UTC, spec.Date.Location())
}

func TestParseSortCriterion(t *testing.T) {
	for in, want := range map[string]SortCriterion{
		"date":          SortByDate,
		"popularity":    SortByPopularity,
		"creationTime":  SortByCreationTime,
		"creation_time": SortByCreationTime,
	} {
		got, err := ParseSortCriterion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSortCriterion("name")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), `"name"`)
}

func TestEventFilter_Match(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	berlin := "Berlin"
	e := Event{ID: 1, Location: "Berlin", Date: now.Add(30 * time.Minute)}

	assert.True(t, EventFilter{}.Match(e))
	assert.True(t, EventFilter{Location: &berlin}.Match(e))
	assert.False(t, EventFilter{Location: new(string)}.Match(e))

	window := EventFilter{After: now, Until: now.Add(30 * time.Minute)}
	assert.True(t, window.Match(e), "upper bound is inclusive")
	assert.False(t, EventFilter{After: e.Date}.Match(e), "lower bound is exclusive")
	assert.False(t, EventFilter{Until: now}.Match(e))
}

func TestEventFilter_Less(t *testing.T) {
	early := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := Event{ID: 1, Date: early.Add(time.Hour), Participants: 5}
	b := Event{ID: 2, Date: early, Participants: 10}
	c := Event{ID: 3, Date: early, Participants: 10}

	byDate := EventFilter{OrderBy: SortByDate}
	assert.True(t, byDate.Less(b, a))
	assert.True(t, byDate.Less(b, c), "ties break on id")

	byPopularity := EventFilter{OrderBy: SortByPopularity}
	assert.True(t, byPopularity.Less(b, a))
	assert.False(t, byPopularity.Less(c, b))

	assert.True(t, EventFilter{}.Less(a, b))
}
