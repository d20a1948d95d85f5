package service

import "errors"

// Error taxonomy surfaced to the controllers. Upstream failures are always
// translated into one of these before they cross a service boundary.
var (
	// ErrNotConfigured means the OAuth client credentials are missing and the
	// authorization flow cannot start.
	ErrNotConfigured = errors.New("oauth client credentials not configured")

	// ErrInvalidState means the authorization callback carried an unknown,
	// expired or already consumed state token.
	ErrInvalidState = errors.New("invalid or expired authorization state")

	// ErrTokenExchangeFailed means the provider rejected a code or refresh
	// token exchange for a non-authorization reason.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrUpstreamTimeout means a call to the provider did not complete within
	// the configured timeout.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrReauthorizationRequired means the refresh token is dead and the user
	// has to run the authorization flow again.
	ErrReauthorizationRequired = errors.New("reauthorization required")

	// ErrNotFound means no connection exists for the requested tenant.
	ErrNotFound = errors.New("connection not found")

	// ErrValidation means the input to a configuration or flow operation was
	// malformed.
	ErrValidation = errors.New("validation failed")
)
