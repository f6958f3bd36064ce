// Package identity exchanges Google ID tokens for local sessions.
package identity

import "errors"

var (
	// ErrInvalidCredential reports a Google credential that failed verification.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmailRequired reports a verified credential without a usable email claim.
	ErrEmailRequired = errors.New("credential carries no verified email")
	// ErrInvalidSession reports a session token that failed verification.
	ErrInvalidSession = errors.New("invalid session")
)
