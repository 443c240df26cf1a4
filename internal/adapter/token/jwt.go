package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.TokenManager = (*JWT)(nil)

const (
	issuer     = "storefront"
	typSession = "session"
	typVerify  = "verify"
)

type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// JWT issues HMAC signed session and email verification tokens.
type JWT struct {
	secret     []byte
	sessionTTL time.Duration
	verifyTTL  time.Duration
	now        func() time.Time
}

func NewJWT(secret string, sessionTTL, verifyTTL time.Duration) (*JWT, error) {
	const op = "NewJWT"

	switch {
	case len(secret) < 16:
		return nil, fmt.Errorf("%s: secret must be at least 16 bytes", op)
	case sessionTTL <= 0 || verifyTTL <= 0:
		return nil, fmt.Errorf("%s: ttl must be positive", op)
	}

	return &JWT{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		verifyTTL:  verifyTTL,
		now:        time.Now,
	}, nil
}

func (j *JWT) IssueSession(uid string) (string, error) {
	const op = "JWT.IssueSession"
	t, err := j.issue(uid, typSession, j.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (j *JWT) ParseSession(token string) (string, error) {
	const op = "JWT.ParseSession"
	uid, err := j.parse(token, typSession)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

func (j *JWT) IssueVerification(uid string) (string, error) {
	const op = "JWT.IssueVerification"
	t, err := j.issue(uid, typVerify, j.verifyTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (j *JWT) ParseVerification(token string) (string, error) {
	const op = "JWT.ParseVerification"
	uid, err := j.parse(token, typVerify)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

func (j *JWT) issue(uid, typ string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("empty subject")
	}

	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
	})

	s, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

// parse reports every rejection as domain.ErrInvalidToken.
func (j *JWT) parse(token, typ string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if claims.TokenType != typ {
		return "", fmt.Errorf("%w: token type mismatch %q", domain.ErrInvalidToken, claims.TokenType)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", domain.ErrInvalidToken)
	}
	return claims.Subject, nil
}
