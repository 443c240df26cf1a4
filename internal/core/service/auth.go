package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"golang.org/x/crypto/bcrypt"
)

var _ port.AuthService = (*AuthService)(nil)

const minPasswordLen = 6

// AuthService signs users up and in. Signing in does not require a verified
// email; the client decides what an unverified identity may do.
type AuthService struct {
	users          port.UsersStorage
	tokens         port.TokenManager
	mailer         port.Mailer
	verifyLinkBase string
	hashCost       int
}

func NewAuthService(
	users port.UsersStorage,
	tokens port.TokenManager,
	mailer port.Mailer,
	verifyLinkBase string,
) (*AuthService, error) {
	const op = "NewAuthService"

	switch {
	case users == nil:
		return nil, fmt.Errorf("%s: users storage is nil", op)
	case tokens == nil:
		return nil, fmt.Errorf("%s: token manager is nil", op)
	case mailer == nil:
		return nil, fmt.Errorf("%s: mailer is nil", op)
	}

	if _, err := url.Parse(verifyLinkBase); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &AuthService{
		users:          users,
		tokens:         tokens,
		mailer:         mailer,
		verifyLinkBase: verifyLinkBase,
		hashCost:       bcrypt.DefaultCost,
	}, nil
}

// SignUp creates an unverified user and mails the verification link.
func (s *AuthService) SignUp(
	ctx context.Context, email, password, name string,
) (domain.Identity, error) {
	const op = "AuthService.SignUp"

	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w: email", op, domain.ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return domain.Identity{}, fmt.Errorf("%s: %w: password", op, domain.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.CreateUser(ctx, domain.User{
		Identity: domain.Identity{
			Email:       email,
			DisplayName: strings.TrimSpace(name),
		},
		PasswordHash: hash,
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sendVerification(ctx, u.Identity); err != nil {
		slog.Warn("failed to send verification", "op", op, "uid", u.UID, "err", err)
	}

	return u.Identity, nil
}

// SignIn checks the credentials and issues a session token. A verified user
// gets the profile synced; an unverified one gets the link mailed again.
func (s *AuthService) SignIn(
	ctx context.Context, email, password string,
) (string, domain.Identity, error) {
	const op = "AuthService.SignIn"
	log := slog.With("op", op)

	u, err := s.users.ReadUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrInvalidCredentials
		}
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	err = bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password))
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, domain.ErrInvalidCredentials)
	}

	token, err := s.tokens.IssueSession(u.UID)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if u.EmailVerified {
		if err := s.users.UpsertProfile(ctx, u.Profile()); err != nil {
			log.Warn("failed to sync profile", "uid", u.UID, "err", err)
		}
	} else if err := s.sendVerification(ctx, u.Identity); err != nil {
		log.Warn("failed to resend verification", "uid", u.UID, "err", err)
	}

	log.Debug("signed in", "uid", u.UID, "verified", u.EmailVerified)
	return token, u.Identity, nil
}

func (s *AuthService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	const op = "AuthService.Verify"

	uid, err := s.tokens.ParseVerification(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.MarkVerified(ctx, uid); err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.ReadUser(ctx, uid)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.UpsertProfile(ctx, u.Profile()); err != nil {
		slog.Warn("failed to sync profile", "op", op, "uid", uid, "err", err)
	}
	return u.Identity, nil
}

// Authenticate resolves a session token to the current stored identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	const op = "AuthService.Authenticate"

	uid, err := s.tokens.ParseSession(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.ReadUser(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrInvalidToken
		}
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return u.Identity, nil
}

func (s *AuthService) SaveProfile(ctx context.Context, p domain.Profile) error {
	const op = "AuthService.SaveProfile"

	if p.UID == "" {
		return fmt.Errorf("%s: %w: uid", op, domain.ErrInvalidArgument)
	}

	if err := s.users.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, id domain.Identity) error {
	token, err := s.tokens.IssueVerification(id.UID)
	if err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, id, s.verifyLink(token))
}

func (s *AuthService) verifyLink(token string) string {
	sep := "?"
	if strings.Contains(s.verifyLinkBase, "?") {
		sep = "&"
	}
	return s.verifyLinkBase + sep + "token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
