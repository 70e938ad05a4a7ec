package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goserg/eventserver/gen/model"
	"github.com/goserg/eventserver/gen/table"
	"github.com/goserg/eventserver/internal/domain"
	"github.com/goserg/eventserver/internal/migrate"
	"github.com/goserg/eventserver/internal/storage"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/sirupsen/logrus"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

// Open opens the database file with a single connection and applies migrations.
// The single connection serializes every statement, writers never interleave.
func Open(fileName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", buildSource(fileName))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = db.Ping()
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	err = migrate.UpSQLite(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

func buildSource(fileName string) string {
	return "file:" + fileName + "?cache=shared&_foreign_keys=on"
}

func New(db *sql.DB, l *logrus.Logger) *Storage {
	log := l.WithFields(map[string]interface{}{
		"from": "event-storage",
	})
	log.Info("event storage connected")
	return &Storage{
		db:  db,
		log: log,
	}
}

func (s *Storage) CreateEvents(ctx context.Context, specs []domain.EventSpec) ([]domain.Event, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) ([]domain.Event, error) {
		created := make([]domain.Event, 0, len(specs))
		for _, spec := range specs {
			var dest model.Events
			err := table.Events.
				INSERT(table.Events.MutableColumns).
				MODEL(convertEventSpecFromDomain(spec)).
				RETURNING(table.Events.AllColumns).
				QueryContext(ctx, tx, &dest)
			if err != nil {
				return nil, err
			}
			created = append(created, convertEventToDomain(dest))
		}
		return created, nil
	})
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	var dest model.Events
	err := sqlite.
		SELECT(table.Events.AllColumns).
		FROM(table.Events).
		WHERE(table.Events.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, s.db, &dest)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, err
	}
	return convertEventToDomain(dest), nil
}

func (s *Storage) UpdateEvent(ctx context.Context, event domain.Event) error {
	res, err := table.Events.
		UPDATE(table.Events.MutableColumns).
		MODEL(convertEventFromDomain(event)).
		WHERE(table.Events.ID.EQ(sqlite.Int(event.ID))).
		ExecContext(ctx, s.db)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Storage) DeleteEvent(ctx context.Context, id int64) error {
	return inTxSimple(ctx, s.db, func(tx *sql.Tx) error {
		_, err := table.Subscriptions.
			DELETE().
			WHERE(table.Subscriptions.EventID.EQ(sqlite.Int(id))).
			ExecContext(ctx, tx)
		if err != nil {
			return err
		}
		res, err := table.Events.
			DELETE().
			WHERE(table.Events.ID.EQ(sqlite.Int(id))).
			ExecContext(ctx, tx)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (s *Storage) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	condition := sqlite.Bool(true)
	if filter.Location != nil {
		condition = condition.AND(table.Events.Location.EQ(sqlite.String(*filter.Location)))
	}
	if !filter.After.IsZero() {
		condition = condition.AND(table.Events.Date.GT(sqlite.Int(filter.After.Unix())))
	}
	if !filter.Until.IsZero() {
		condition = condition.AND(table.Events.Date.LT_EQ(sqlite.Int(filter.Until.Unix())))
	}

	stmt := sqlite.
		SELECT(table.Events.AllColumns).
		FROM(table.Events).
		WHERE(condition)
	switch filter.OrderBy {
	case domain.SortByDate:
		stmt = stmt.ORDER_BY(table.Events.Date.ASC(), table.Events.ID.ASC())
	case domain.SortByPopularity:
		stmt = stmt.ORDER_BY(table.Events.Participants.DESC(), table.Events.ID.ASC())
	default:
		stmt = stmt.ORDER_BY(table.Events.ID.ASC())
	}

	var events []model.Events
	err := stmt.QueryContext(ctx, s.db, &events)
	if err != nil {
		return nil, err
	}
	return convertEventsToDomain(events), nil
}

func (s *Storage) Subscribe(ctx context.Context, eventID, userID int64) (domain.Subscription, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) (domain.Subscription, error) {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return domain.Subscription{}, err
		}
		_, err := table.Subscriptions.
			INSERT(table.Subscriptions.MutableColumns).
			MODEL(model.Subscriptions{
				EventID:   int32(eventID),
				UserID:    int32(userID),
				CreatedAt: time.Now().Unix(),
			}).
			ON_CONFLICT(table.Subscriptions.EventID, table.Subscriptions.UserID).
			DO_NOTHING().
			ExecContext(ctx, tx)
		if err != nil {
			return domain.Subscription{}, err
		}
		var dest model.Subscriptions
		err = sqlite.
			SELECT(table.Subscriptions.AllColumns).
			FROM(table.Subscriptions).
			WHERE(
				table.Subscriptions.EventID.EQ(sqlite.Int(eventID)).
					AND(table.Subscriptions.UserID.EQ(sqlite.Int(userID))),
			).
			QueryContext(ctx, tx, &dest)
		if err != nil {
			return domain.Subscription{}, err
		}
		return convertSubscriptionToDomain(dest), nil
	})
}

func (s *Storage) ListSubscriptions(ctx context.Context, eventID int64) ([]domain.Subscription, error) {
	return inTx(ctx, s.db, func(tx *sql.Tx) ([]domain.Subscription, error) {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return nil, err
		}
		var subs []model.Subscriptions
		err := sqlite.
			SELECT(table.Subscriptions.AllColumns).
			FROM(table.Subscriptions).
			WHERE(table.Subscriptions.EventID.EQ(sqlite.Int(eventID))).
			ORDER_BY(table.Subscriptions.ID.ASC()).
			QueryContext(ctx, tx, &subs)
		if err != nil {
			return nil, err
		}
		return convertSubscriptionsToDomain(subs), nil
	})
}

func eventExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var dest model.Events
	err := sqlite.
		SELECT(table.Events.ID).
		FROM(table.Events).
		WHERE(table.Events.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, tx, &dest)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
