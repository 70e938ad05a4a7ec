package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goserg/eventserver/auth/storage"
	"github.com/goserg/eventserver/auth/users"
	"github.com/goserg/eventserver/gen/model"
	"github.com/goserg/eventserver/gen/table"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.AuthStorage = (*Storage)(nil)

// New uses a database already opened and migrated by the event storage.
func New(db *sql.DB, l *logrus.Logger) *Storage {
	log := l.WithFields(map[string]interface{}{
		"from": "auth-storage",
	})
	log.Info("auth storage connected")
	return &Storage{
		db:  db,
		log: log,
	}
}

func (s *Storage) CreateUser(ctx context.Context, user users.User, secret users.Secret) (users.User, error) {
	dbUser := model.Users{
		Username:     user.Name,
		PasswordHash: bytesToHex(secret.PasswordHash),
		PasswordSalt: bytesToHex(secret.Salt),
		CreatedAt:    user.RegisteredAt.Unix(),
	}
	var dest model.Users
	err := table.Users.
		INSERT(table.Users.MutableColumns).
		MODEL(dbUser).
		RETURNING(table.Users.AllColumns).
		QueryContext(ctx, s.db, &dest)
	if err != nil {
		if isUniqueViolation(err) {
			return users.User{}, storage.ErrUserExists
		}
		return users.User{}, err
	}
	return convertUserToDomain(dest), nil
}

func (s *Storage) GetUserSecret(ctx context.Context, name string) (users.User, users.Secret, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(table.Users.AllColumns).
		FROM(table.Users).
		WHERE(table.Users.Username.EQ(sqlite.String(name))).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, users.Secret{}, storage.ErrUserNotFound
		}
		return users.User{}, users.Secret{}, err
	}
	hash, err := hexToBytes(dbUser.PasswordHash)
	if err != nil {
		return users.User{}, users.Secret{}, err
	}
	salt, err := hexToBytes(dbUser.PasswordSalt)
	if err != nil {
		return users.User{}, users.Secret{}, err
	}
	return convertUserToDomain(dbUser), users.Secret{
		PasswordHash: hash,
		Salt:         salt,
	}, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (users.User, error) {
	var dbUser model.Users
	err := table.Users.
		SELECT(
			table.Users.AllColumns.Except(
				table.Users.PasswordHash,
				table.Users.PasswordSalt,
			),
		).
		FROM(table.Users).
		WHERE(table.Users.ID.EQ(sqlite.Int(id))).
		QueryContext(ctx, s.db, &dbUser)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return users.User{}, storage.ErrUserNotFound
		}
		return users.User{}, err
	}
	return convertUserToDomain(dbUser), nil
}

func convertUserToDomain(user model.Users) users.User {
	return users.User{
		ID:           int64(user.ID),
		Name:         user.Username,
		RegisteredAt: time.Unix(user.CreatedAt, 0).UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func bytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func hexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
