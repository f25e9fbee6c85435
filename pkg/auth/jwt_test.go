package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenly/chat-service/pkg/model"
)

var testIdentity = model.Identity{ID: "u1", Name: "Ada", Color: "#2e7d32"}

func TestVerifyToken(t *testing.T) {
	v := NewVerifier([]byte("test_secret"))

	t.Run("round trip", func(t *testing.T) {
		token, err := v.GenerateToken(testIdentity, time.Hour)
		require.NoError(t, err)

		identity, err := v.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, testIdentity, *identity)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := v.GenerateToken(testIdentity, -time.Minute)
		require.NoError(t, err)

		_, err = v.VerifyToken(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewVerifier([]byte("another_secret"))
		token, err := other.GenerateToken(testIdentity, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyToken(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := v.GenerateToken(model.Identity{Name: "Nobody"}, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyToken(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestFromRequest(t *testing.T) {
	v := NewVerifier([]byte("test_secret"))
	token, err := v.GenerateToken(testIdentity, time.Hour)
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

		identity, err := v.FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", identity.ID)
	})

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		identity, err := v.FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", identity.ID)
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		stale, err := v.GenerateToken(testIdentity, -time.Minute)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/ws", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: stale})
		r.Header.Set("Authorization", "Bearer "+token)

		_, err = v.FromRequest(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("no credential", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)

		_, err := v.FromRequest(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}
