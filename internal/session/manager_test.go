package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(store), store
}

func TestManager_Initialize(t *testing.T) {
	t.Run("starts in loading state", func(t *testing.T) {
		manager, _ := newTestManager(t)
		assert.True(t, manager.Session().Loading)
	})

	t.Run("no stored token settles unauthenticated", func(t *testing.T) {
		manager, _ := newTestManager(t)

		manager.Initialize()

		sess := manager.Session()
		assert.False(t, sess.Loading)
		assert.False(t, sess.Authenticated)
		assert.Empty(t, sess.UserID)
	})

	t.Run("malformed stored token clears storage", func(t *testing.T) {
		manager, store := newTestManager(t)
		require.NoError(t, store.SetToken("not.validformat"))

		manager.Initialize()

		assert.False(t, manager.Authenticated())
		_, err := store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("expired stored token clears storage", func(t *testing.T) {
		manager, store := newTestManager(t)
		token := mintToken(t, jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		require.NoError(t, store.SetToken(token))

		manager.Initialize()

		assert.False(t, manager.Authenticated())
		_, err := store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("token without user identifier clears storage", func(t *testing.T) {
		manager, store := newTestManager(t)
		token := mintToken(t, jwt.MapClaims{"foo": "bar"})
		require.NoError(t, store.SetToken(token))

		manager.Initialize()

		assert.False(t, manager.Authenticated())
		_, err := store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("valid stored token settles authenticated", func(t *testing.T) {
		manager, store := newTestManager(t)
		token := mintToken(t, jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, store.SetToken(token))

		manager.Initialize()

		sess := manager.Session()
		assert.False(t, sess.Loading)
		assert.True(t, sess.Authenticated)
		assert.Equal(t, "u1", sess.UserID)
		assert.Equal(t, token, sess.Token)
	})
}

func TestManager_Login(t *testing.T) {
	t.Run("valid token without expiry", func(t *testing.T) {
		manager, store := newTestManager(t)
		token := mintToken(t, jwt.MapClaims{"user_id": "u1"})

		require.NoError(t, manager.Login(token))

		sess := manager.Session()
		assert.True(t, sess.Authenticated)
		assert.Equal(t, "u1", sess.UserID)

		stored, err := store.Token()
		require.NoError(t, err)
		assert.Equal(t, token, stored)
	})

	t.Run("malformed token fails and logs out", func(t *testing.T) {
		manager, store := newTestManager(t)
		require.NoError(t, manager.Login(mintToken(t, jwt.MapClaims{"user_id": "u1"})))

		err := manager.Login("garbage")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)

		assert.False(t, manager.Authenticated())
		_, err = store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("token without user identifier fails and logs out", func(t *testing.T) {
		manager, store := newTestManager(t)

		err := manager.Login(mintToken(t, jwt.MapClaims{"foo": "bar"}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidToken)

		assert.False(t, manager.Authenticated())
		_, err = store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestManager_Logout(t *testing.T) {
	t.Run("login then logout clears everything", func(t *testing.T) {
		manager, store := newTestManager(t)
		require.NoError(t, manager.Login(mintToken(t, jwt.MapClaims{"user_id": "u1"})))

		manager.Logout()

		sess := manager.Session()
		assert.False(t, sess.Authenticated)
		assert.Empty(t, sess.UserID)
		assert.Empty(t, sess.Token)

		_, err := store.Token()
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("is idempotent", func(t *testing.T) {
		manager, _ := newTestManager(t)
		manager.Logout()
		manager.Logout()
		assert.False(t, manager.Authenticated())
	})
}

func TestManager_Invalidate(t *testing.T) {
	t.Run("notifies observers once per transition", func(t *testing.T) {
		manager, _ := newTestManager(t)

		notified := 0
		manager.Subscribe(func() { notified++ })

		require.NoError(t, manager.Login(mintToken(t, jwt.MapClaims{"user_id": "u1"})))

		manager.Invalidate()
		manager.Invalidate()
		manager.Invalidate()

		assert.Equal(t, 1, notified)
		assert.False(t, manager.Authenticated())
	})

	t.Run("fires again after a new login", func(t *testing.T) {
		manager, _ := newTestManager(t)

		notified := 0
		manager.Subscribe(func() { notified++ })

		require.NoError(t, manager.Login(mintToken(t, jwt.MapClaims{"user_id": "u1"})))
		manager.Invalidate()
		require.NoError(t, manager.Login(mintToken(t, jwt.MapClaims{"user_id": "u1"})))
		manager.Invalidate()

		assert.Equal(t, 2, notified)
	})

	t.Run("while unauthenticated is a no-op", func(t *testing.T) {
		manager, _ := newTestManager(t)
		manager.Initialize()

		notified := 0
		manager.Subscribe(func() { notified++ })

		manager.Invalidate()

		assert.Equal(t, 0, notified)
	})
}
