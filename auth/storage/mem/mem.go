package mem

import (
	"context"
	"sync"

	"github.com/goserg/eventserver/auth/storage"
	"github.com/goserg/eventserver/auth/users"
	"github.com/goserg/eventserver/internal/normalize"
)

type record struct {
	user   users.User
	secret users.Secret
}

type Storage struct {
	mu     sync.RWMutex
	lastID int64
	byName map[string]int64
	users  map[int64]record
}

var _ storage.AuthStorage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		byName: make(map[string]int64),
		users:  make(map[int64]record),
	}
}

func (s *Storage) CreateUser(_ context.Context, user users.User, secret users.Secret) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := normalize.Name(user.Name)
	if _, ok := s.byName[name]; ok {
		return users.User{}, storage.ErrUserExists
	}
	s.lastID++
	user.ID = s.lastID
	s.byName[name] = user.ID
	s.users[user.ID] = record{user: user, secret: secret}
	return user, nil
}

func (s *Storage) GetUserSecret(_ context.Context, name string) (users.User, users.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[normalize.Name(name)]
	if !ok {
		return users.User{}, users.Secret{}, storage.ErrUserNotFound
	}
	r := s.users[id]
	return r.user, r.secret, nil
}

func (s *Storage) GetUser(_ context.Context, id int64) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.users[id]
	if !ok {
		return users.User{}, storage.ErrUserNotFound
	}
	return r.user, nil
}
