package storage

import (
	"context"
	"errors"

	"github.com/goserg/eventserver/auth/users"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type AuthStorage interface {
	// CreateUser stores the user and returns it with the assigned ID.
	// A taken name yields ErrUserExists.
	CreateUser(ctx context.Context, user users.User, secret users.Secret) (users.User, error)
	GetUserSecret(ctx context.Context, name string) (users.User, users.Secret, error)
	GetUser(ctx context.Context, id int64) (users.User, error)
}
