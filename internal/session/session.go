// Package session carries the caller's identity as an explicit value.
package session

import (
	"errors"
	"strings"

	"golang.org/x/oauth2"
)

// ErrAnonymous is returned when an identity has no token source.
var ErrAnonymous = errors.New("no credentials: set FOLIO_API_TOKEN or pass --token")

// Identity is the authenticated user handed to components that call the remote API.
type Identity struct {
	userID string
	tokens oauth2.TokenSource
}

// New wraps an existing token source.
func New(userID string, tokens oauth2.TokenSource) Identity {
	return Identity{userID: userID, tokens: tokens}
}

// NewStatic builds an identity from a bearer token issued by the identity provider.
// A blank token yields an anonymous identity.
func NewStatic(userID, token string) Identity {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{userID: userID}
	}
	return New(userID, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// UserID returns the user identifier, possibly empty.
func (i Identity) UserID() string {
	return i.userID
}

// TokenSource returns the bearer token source, nil for an anonymous identity.
func (i Identity) TokenSource() oauth2.TokenSource {
	return i.tokens
}

// Validate reports ErrAnonymous when the identity cannot authenticate requests.
func (i Identity) Validate() error {
	if i.tokens == nil {
		return ErrAnonymous
	}
	return nil
}
