package storage

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{
	"uid", "email", "password_hash", "email_verified", "display_name", "photo_url",
}

func TestUsersRepositoryCreateUser(t *testing.T) {
	t.Run("Ok", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "ann@example.com", []byte("hash"), false, "Ann", "").
			WillReturnResult(sqlmock.NewResult(0, 1))

		u, err := NewUsersRepository(db).CreateUser(t.Context(), domain.User{
			Identity:     domain.Identity{Email: " Ann@Example.com ", DisplayName: "Ann"},
			PasswordHash: []byte("hash"),
		})
		require.NoError(t, err)
		assert.NoError(t, uuid.Validate(u.UID))
		assert.Equal(t, "ann@example.com", u.Email)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		_, err := NewUsersRepository(db).CreateUser(t.Context(), domain.User{
			Identity: domain.Identity{Email: "ann@example.com"},
		})
		require.ErrorIs(t, err, domain.ErrAlreadyExists)
	})
}

func TestUsersRepositoryRead(t *testing.T) {
	uid := uuid.NewString()

	t.Run("ByEmail", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM users WHERE email = \$1`).
			WithArgs("ann@example.com").
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(uid, "ann@example.com", []byte("hash"), true, "Ann", ""))

		u, err := NewUsersRepository(db).ReadUserByEmail(t.Context(), "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, uid, u.UID)
		assert.True(t, u.EmailVerified)
		assert.Equal(t, []byte("hash"), u.PasswordHash)
	})

	t.Run("ByUID", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM users WHERE uid = \$1`).
			WithArgs(uid).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(uid, "ann@example.com", []byte("hash"), false, "Ann", ""))

		u, err := NewUsersRepository(db).ReadUser(t.Context(), uid)
		require.NoError(t, err)
		assert.False(t, u.EmailVerified)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM users`).WillReturnError(sql.ErrNoRows)

		_, err := NewUsersRepository(db).ReadUserByEmail(t.Context(), "nobody@example.com")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("MalformedUID", func(t *testing.T) {
		db, mock := newMock(t)

		_, err := NewUsersRepository(db).ReadUser(t.Context(), "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUsersRepositoryMarkVerified(t *testing.T) {
	t.Run("Ok", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET email_verified = TRUE`).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewUsersRepository(db).MarkVerified(t.Context(), "u1"))
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewUsersRepository(db).MarkVerified(t.Context(), "u1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUsersRepositoryUpsertProfile(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO profiles .* ON CONFLICT \(uid\) DO UPDATE`).
		WithArgs("u1", "ann@example.com", "Ann", "", "+100").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewUsersRepository(db).UpsertProfile(t.Context(), domain.Profile{
		UID: "u1", Email: "Ann@example.com", Name: "Ann", Phone: "+100",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
