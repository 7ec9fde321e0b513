package gate

import "errors"

// Sentinel errors returned by resolvers and middleware.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
