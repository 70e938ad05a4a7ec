package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const eventColumns = `id, title, location, date, participants`

type Storage struct {
	db  *pgxpool.Pool
	log *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

func New(db *pgxpool.Pool, l *logrus.Logger) *Storage {
	log := l.WithFields(map[string]interface{}{
		"from": "event-storage",
	})
	log.Info("event storage connected")
	return &Storage{
		db:  db,
		log: log,
	}
}

// CreateEvents inserts all specs in one transaction, in order.
func (s *Storage) CreateEvents(ctx context.Context, specs []domain.EventSpec) ([]domain.Event, error) {
	created := make([]domain.Event, 0, len(specs))
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, spec := range specs {
			row := tx.QueryRow(ctx,
				`INSERT INTO events (title, location, date, participants)
				 VALUES ($1, $2, $3, $4)
				 RETURNING `+eventColumns,
				spec.Title, spec.Location, spec.Date, spec.Participants,
			)
			event, err := scanEvent(row)
			if err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
			created = append(created, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	row := s.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// UpdateEvent locks the row before writing so concurrent updates of one event serialize.
func (s *Storage) UpdateEvent(ctx context.Context, event domain.Event) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, event.ID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE events SET title = $2, location = $3, date = $4, participants = $5 WHERE id = $1`,
			event.ID, event.Title, event.Location, event.Date, event.Participants,
		)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
}

func (s *Storage) DeleteEvent(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE event_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete subscriptions: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *Storage) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	query, args := buildListQuery(filter)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Event, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return events, nil
}

func buildListQuery(filter domain.EventFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if filter.Location != nil {
		args = append(args, *filter.Location)
		conditions = append(conditions, fmt.Sprintf("location = $%d", len(args)))
	}
	if !filter.After.IsZero() {
		args = append(args, filter.After)
		conditions = append(conditions, fmt.Sprintf("date > $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + eventColumns + ` FROM events`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	switch filter.OrderBy {
	case domain.SortByDate:
		b.WriteString(" ORDER BY date ASC, id ASC")
	case domain.SortByPopularity:
		b.WriteString(" ORDER BY participants DESC, id ASC")
	default:
		b.WriteString(" ORDER BY id ASC")
	}
	return b.String(), args
}

func (s *Storage) Subscribe(ctx context.Context, eventID, userID int64) (domain.Subscription, error) {
	var sub domain.Subscription
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO subscriptions (event_id, user_id, created_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (event_id, user_id) DO NOTHING`,
			eventID, userID, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		err = tx.QueryRow(ctx,
			`SELECT id, event_id, user_id, created_at FROM subscriptions
			 WHERE event_id = $1 AND user_id = $2`,
			eventID, userID,
		).Scan(&sub.ID, &sub.EventID, &sub.UserID, &sub.CreatedAt)
		if err != nil {
			return fmt.Errorf("get subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Subscription{}, err
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

func (s *Storage) ListSubscriptions(ctx context.Context, eventID int64) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("get event: %w", err)
		}
		rows, err := tx.Query(ctx,
			`SELECT id, event_id, user_id, created_at FROM subscriptions
			 WHERE event_id = $1 ORDER BY id ASC`,
			eventID,
		)
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		subs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Subscription, error) {
			var sub domain.Subscription
			err := row.Scan(&sub.ID, &sub.EventID, &sub.UserID, &sub.CreatedAt)
			sub.CreatedAt = sub.CreatedAt.UTC()
			return sub, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// lockEvent keeps the event from being deleted while a subscription is written.
func lockEvent(ctx context.Context, tx pgx.Tx, id int64) error {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Title, &e.Location, &e.Date, &e.Participants)
	e.Date = e.Date.UTC()
	return e, err
}
