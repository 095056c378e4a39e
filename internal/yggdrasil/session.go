package yggdrasil

import (
	"errors"
	"fmt"
)

// Profile is a named player identity available under one login account.
// Profiles compare by value.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the ephemeral result of a successful authenticate or refresh
// call.
type Session struct {
	AccessToken       string
	ClientToken       string
	UUID              string
	Name              string
	AvailableProfiles []Profile
	SelectedProfile   Profile
}

// ServerError is a non-success HTTP status from the auth server, carrying the
// status code and the server's best-effort error message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("auth server returned %d: %s", e.StatusCode, e.Message)
}

var (
	// ErrMalformedResponse is a 200 response missing required fields.
	ErrMalformedResponse = errors.New("malformed response from auth server")

	// ErrNoProfiles means the account has no profiles to discover.
	ErrNoProfiles = errors.New("no profiles available for this account")

	// ErrNoProfile means an authenticate/refresh response carried neither a
	// selected profile nor any available ones.
	ErrNoProfile = errors.New("no profile available in response")
)
