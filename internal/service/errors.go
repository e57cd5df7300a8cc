package service

import "errors"

// Typed outcomes returned to the transport layer. None of these is
// retried here, they are deterministic given current store state.
var (
	// ErrValidation covers structurally bad input before any store access.
	ErrValidation = errors.New("invalid request")

	// ErrConflict means the username or email is already taken, whether
	// caught by a pre-check or by the unique index at write time.
	ErrConflict = errors.New("user already exists")

	// ErrInvalidCredentials covers both unknown username and wrong
	// password, deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLockedAccount is returned before the password is even checked
	// once the failed-attempt threshold has been reached.
	ErrLockedAccount = errors.New("account locked")

	// ErrUnauthorized means the refresh token is missing, revoked or
	// expired.
	ErrUnauthorized = errors.New("refresh token invalid")

	// ErrRoleMissing means expected seed data is absent. This is a
	// deployment defect, not a per-request condition.
	ErrRoleMissing = errors.New("default role missing")
)
