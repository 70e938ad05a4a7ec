package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxParticipants is the largest count every backend stores as a 32-bit integer.
const MaxParticipants = math.MaxInt32

type Event struct {
	ID           int64
	Title        string
	Location     string
	Date         time.Time
	Participants int
}

// EventSpec holds the caller supplied fields of an event.
type EventSpec struct {
	Title        string
	Location     string
	Date         time.Time
	Participants int
}

func (s EventSpec) Validate() error {
	var err error
	if strings.TrimSpace(s.Title) == "" {
		err = errors.Join(err, fmt.Errorf("%w: title is required", ErrValidation))
	}
	if strings.TrimSpace(s.Location) == "" {
		err = errors.Join(err, fmt.Errorf("%w: location is required", ErrValidation))
	}
	if s.Date.IsZero() {
		err = errors.Join(err, fmt.Errorf("%w: date is required", ErrValidation))
	}
	if s.Participants < 0 {
		err = errors.Join(err, fmt.Errorf("%w: participants must not be negative", ErrValidation))
	}
	if s.Participants > MaxParticipants {
		err = errors.Join(err, fmt.Errorf("%w: participants must not exceed %d", ErrValidation, MaxParticipants))
	}
	return err
}

// Normalize trims text fields and brings the date to the stored precision.
func (s EventSpec) Normalize() EventSpec {
	s.Title = strings.TrimSpace(s.Title)
	s.Location = strings.TrimSpace(s.Location)
	s.Date = NormalizeDate(s.Date)
	return s
}

func (s EventSpec) Event(id int64) Event {
	return Event{
		ID:           id,
		Title:        s.Title,
		Location:     s.Location,
		Date:         s.Date,
		Participants: s.Participants,
	}
}

// NormalizeDate returns t in UTC truncated to whole seconds, the precision every backend stores.
func NormalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

type SortCriterion string

const (
	SortByCreationTime SortCriterion = "creationTime"
	SortByDate         SortCriterion = "date"
	SortByPopularity   SortCriterion = "popularity"
)

func ParseSortCriterion(s string) (SortCriterion, error) {
	switch s {
	case string(SortByDate):
		return SortByDate, nil
	case string(SortByPopularity):
		return SortByPopularity, nil
	case string(SortByCreationTime), "creation_time":
		return SortByCreationTime, nil
	}
	return "", fmt.Errorf("%w: invalid sort criteria %q", ErrInvalidArgument, s)
}

// EventFilter narrows ListEvents. Zero values disable a condition.
type EventFilter struct {
	Location *string
	// After is exclusive.
	After time.Time
	// Until is inclusive.
	Until time.Time
	// OrderBy defaults to creation order.
	OrderBy SortCriterion
}

func (f EventFilter) Match(e Event) bool {
	if f.Location != nil && e.Location != *f.Location {
		return false
	}
	if !f.After.IsZero() && !e.Date.After(f.After) {
		return false
	}
	if !f.Until.IsZero() && e.Date.After(f.Until) {
		return false
	}
	return true
}

// Less orders events by the filter criterion, breaking ties on ID.
func (f EventFilter) Less(a, b Event) bool {
	switch f.OrderBy {
	case SortByDate:
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
	case SortByPopularity:
		if a.Participants != b.Participants {
			return a.Participants > b.Participants
		}
	}
	return a.ID < b.ID
}
