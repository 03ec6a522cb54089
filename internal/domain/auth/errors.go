package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown login or a wrong
	// password; the two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrAccountBlocked is returned when the password is correct but the
	// account is flagged blocked.
	ErrAccountBlocked = errors.New("account is blocked")
	// ErrBruteForceBlocked is returned when the attempt cap was exceeded
	// within the block window.
	ErrBruteForceBlocked = errors.New("too many login attempts, try again later")
	// ErrTokenAbsent is returned when no bearer token was supplied.
	ErrTokenAbsent = errors.New("token is absent")
	// ErrTokenInvalid is returned when the token fails the signature or
	// expiry check.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenRevoked is returned when the token is on the revocation list.
	ErrTokenRevoked = errors.New("token has been revoked")
	// ErrTokenExpired is returned when the referenced session or identity
	// no longer resolves.
	ErrTokenExpired = errors.New("token has expired")
	// ErrPairingNotFound is returned when a pairing key is unknown.
	ErrPairingNotFound = errors.New("pairing not found")
	// ErrIdentityNotFound is returned when a pairing has no confirmed chat
	// or the bound identity is missing.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrNotAuthorized is returned when a role or root check failed.
	ErrNotAuthorized = errors.New("not authorized for this action")
	// ErrUnknownKey is returned when the active signing key is missing.
	ErrUnknownKey = errors.New("unknown signing key")
)
