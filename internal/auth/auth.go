package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
)

// Static errors for err113 compliance.
var (
	ErrEmptyToken = errors.New("token key must not be empty")
)

// Authenticator produces the Authorization header value for a request.
type Authenticator interface {
	Authorization() (string, error)
}

// BasicAuth authenticates with a username and password.
type BasicAuth struct {
	Username string
	Password string
}

// NewBasicAuth creates HTTP Basic credentials.
func NewBasicAuth(username, password string) *BasicAuth {
	return &BasicAuth{Username: username, Password: password}
}

// Authorization returns "Basic <base64(user:password)>".
func (b *BasicAuth) Authorization() (string, error) {
	credentials := b.Username + ":" + b.Password

	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)), nil
}

// TokenAuth authenticates with "Authorization: Token <key>".
type TokenAuth struct {
	Key string
}

// NewTokenAuth creates token credentials.
func NewTokenAuth(key string) *TokenAuth {
	return &TokenAuth{Key: key}
}

// Authorization returns "Token <key>".
func (t *TokenAuth) Authorization() (string, error) {
	if t.Key == "" {
		return "", ErrEmptyToken
	}

	return "Token " + t.Key, nil
}

// Apply sets the Authorization header on req unless the caller already set one.
func Apply(authenticator Authenticator, req *http.Request) error {
	if authenticator == nil || req.Header.Get("Authorization") != "" {
		return nil
	}

	value, err := authenticator.Authorization()
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", value)

	return nil
}
