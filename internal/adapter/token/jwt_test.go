package token

import (
	"testing"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func newTestJWT(t *testing.T) *JWT {
	t.Helper()
	j, err := NewJWT(testSecret, time.Hour, 10*time.Minute)
	require.NoError(t, err)
	return j
}

func TestNewJWT(t *testing.T) {
	_, err := NewJWT("short", time.Hour, time.Hour)
	require.Error(t, err)

	_, err = NewJWT(testSecret, 0, time.Hour)
	require.Error(t, err)
}

func TestJWTSession(t *testing.T) {
	j := newTestJWT(t)

	tok, err := j.IssueSession("u1")
	require.NoError(t, err)

	uid, err := j.ParseSession(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestJWTVerification(t *testing.T) {
	j := newTestJWT(t)

	tok, err := j.IssueVerification("u1")
	require.NoError(t, err)

	uid, err := j.ParseVerification(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestJWTRejects(t *testing.T) {
	j := newTestJWT(t)

	session, err := j.IssueSession("u1")
	require.NoError(t, err)
	verify, err := j.IssueVerification("u1")
	require.NoError(t, err)

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := j.ParseSession(verify)
		require.ErrorIs(t, err, domain.ErrInvalidToken)

		_, err = j.ParseVerification(session)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		j.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		t.Cleanup(func() { j.now = time.Now })

		_, err := j.ParseSession(session)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("OtherSecret", func(t *testing.T) {
		other, err := NewJWT("another-secret-of-16", time.Hour, time.Hour)
		require.NoError(t, err)

		_, err = other.ParseSession(session)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := j.ParseSession("not.a.token")
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("EmptySubject", func(t *testing.T) {
		_, err := j.IssueSession("")
		require.Error(t, err)
	})
}
