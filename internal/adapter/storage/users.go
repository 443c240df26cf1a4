package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.UsersStorage = (*UsersRepository)(nil)

const userColumns = `uid, email, password_hash, email_verified, display_name, photo_url`

type UsersRepository struct {
	sqldb sqldb
}

func NewUsersRepository(sqldb sqldb) UsersRepository {
	return UsersRepository{sqldb}
}

// CreateUser stores u under a new uid. Emails are unique ignoring case.
func (r UsersRepository) CreateUser(
	ctx context.Context, u domain.User,
) (domain.User, error) {
	const op = "UsersRepository.CreateUser"

	if err := ctx.Err(); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.UID = uuid.NewString()
	u.Email = normalizeEmail(u.Email)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := r.sqldb.ExecContext(ctx, query,
		u.UID, u.Email, u.PasswordHash, u.EmailVerified, u.DisplayName, u.PhotoURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		}
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r UsersRepository) ReadUserByEmail(
	ctx context.Context, email string,
) (domain.User, error) {
	const op = "UsersRepository.ReadUserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	u, err := r.readUser(ctx, query, normalizeEmail(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r UsersRepository) ReadUser(
	ctx context.Context, uid string,
) (domain.User, error) {
	const op = "UsersRepository.ReadUser"

	if err := uuid.Validate(uid); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1;`
	u, err := r.readUser(ctx, query, uid)
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r UsersRepository) MarkVerified(ctx context.Context, uid string) error {
	const op = "UsersRepository.MarkVerified"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.sqldb.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE WHERE uid = $1;`, uid,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

// UpsertProfile creates or replaces the profile keyed by uid.
func (r UsersRepository) UpsertProfile(ctx context.Context, p domain.Profile) error {
	const op = "UsersRepository.UpsertProfile"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO profiles (uid, email, name, photo_url, phone, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			photo_url = EXCLUDED.photo_url,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at;`

	_, err := r.sqldb.ExecContext(ctx, query,
		p.UID, normalizeEmail(p.Email), p.Name, p.PhotoURL, p.Phone,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r UsersRepository) readUser(
	ctx context.Context, query string, arg any,
) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	var u domain.User
	err := r.sqldb.QueryRowContext(ctx, query, arg).Scan(
		&u.UID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.DisplayName, &u.PhotoURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
