package trello

import "errors"

// Common Trello client errors
var (
	// ErrUpstreamAuth is returned for every non-2xx Trello response. The
	// dominant real-world cause of upstream failures is an expired or
	// missing per-user token, so all HTTP failures surface as a credential
	// problem.
	ErrUpstreamAuth = errors.New("invalid or missing Trello token")

	// ErrMissingAPIKey indicates the client was constructed without a
	// service API key.
	ErrMissingAPIKey = errors.New("trello API key is required")

	// ErrMissingToken indicates a request was attempted without a per-user
	// access token.
	ErrMissingToken = errors.New("trello access token is required")
)
