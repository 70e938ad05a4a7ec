package mem

import (
	"context"
	"testing"

	"github.com/goserg/eventserver/auth/storage"
	"github.com/goserg/eventserver/auth/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_users(t *testing.T) {
	ctx := context.Background()
	s := New()

	alice, err := s.CreateUser(ctx, users.User{Name: "alice"}, users.Secret{PasswordHash: []byte("h")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.ID)

	_, err = s.CreateUser(ctx, users.User{Name: "alice"}, users.Secret{})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	user, secret, err := s.GetUserSecret(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, user)
	assert.Equal(t, []byte("h"), secret.PasswordHash)

	_, err = s.GetUser(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
