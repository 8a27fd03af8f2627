package auth

import "errors"

// Request-level failure taxonomy. The transport layer maps each sentinel to
// a status code through a fixed table; infrastructure failures
// (session.ErrUnavailable, rate.ErrUnavailable) pass through untranslated
// and become 500s, never 401s.
var (
	// ErrValidation means required input was missing or malformed.
	ErrValidation = errors.New("missing required fields")
	// ErrInvalidCredentials means the email/password pair did not check out.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists means the signup email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound means an authenticated identity no longer resolves
	// to a user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionInvalid means the session store holds no live entry for
	// the presented access token.
	ErrSessionInvalid = errors.New("invalid or expired session")
	// ErrTokenInvalid means the access token failed cryptographic
	// verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid means the refresh token is unknown, already
	// redeemed, or failed verification.
	ErrRefreshInvalid = errors.New("invalid or expired refresh token")
)
