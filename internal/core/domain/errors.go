package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("email is not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidPriceRange  = errors.New("invalid price range")
	ErrSuperseded         = errors.New("superseded by a newer request")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvalidArgument    = errors.New("invalid argument")
)
