package postgres

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goserg/eventserver/auth/storage"
	"github.com/goserg/eventserver/auth/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

type Storage struct {
	db  *pgxpool.Pool
	log *logrus.Entry
}

var _ storage.AuthStorage = (*Storage)(nil)

func New(db *pgxpool.Pool, l *logrus.Logger) *Storage {
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
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, password_salt, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		user.Name, bytesToHex(secret.PasswordHash), bytesToHex(secret.Salt), user.RegisteredAt,
	).Scan(&user.ID, &user.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return users.User{}, storage.ErrUserExists
		}
		return users.User{}, fmt.Errorf("insert user: %w", err)
	}
	user.RegisteredAt = user.RegisteredAt.UTC()
	return user, nil
}

func (s *Storage) GetUserSecret(ctx context.Context, name string) (users.User, users.Secret, error) {
	var (
		user       users.User
		hash, salt string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, username, created_at, password_hash, password_salt FROM users WHERE username = $1`,
		name,
	).Scan(&user.ID, &user.Name, &user.RegisteredAt, &hash, &salt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.User{}, users.Secret{}, storage.ErrUserNotFound
		}
		return users.User{}, users.Secret{}, fmt.Errorf("get user secret: %w", err)
	}
	hashBytes, err := hexToBytes(hash)
	if err != nil {
		return users.User{}, users.Secret{}, err
	}
	saltBytes, err := hexToBytes(salt)
	if err != nil {
		return users.User{}, users.Secret{}, err
	}
	user.RegisteredAt = user.RegisteredAt.UTC()
	return user, users.Secret{
		PasswordHash: hashBytes,
		Salt:         saltBytes,
	}, nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (users.User, error) {
	var user users.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.User{}, storage.ErrUserNotFound
		}
		return users.User{}, fmt.Errorf("get user: %w", err)
	}
	user.RegisteredAt = user.RegisteredAt.UTC()
	return user, nil
}

func bytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func hexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
