package auth

import (
	"context"
	"encoding/base64"
)

// BasicAuth sends a username and password in an Authorization header.
type BasicAuth struct {
	noRefresh
	username string
	password string
}

// NewBasicAuth returns a BasicAuth. Both values must be non-blank.
func NewBasicAuth(username, password string) (*BasicAuth, error) {
	if err := requireCredential("basic auth", "username", username); err != nil {
		return nil, err
	}
	if err := requireCredential("basic auth", "password", password); err != nil {
		return nil, err
	}
	return &BasicAuth{username: username, password: password}, nil
}

// Username returns the configured username.
func (b *BasicAuth) Username() string { return b.username }

func (b *BasicAuth) PrepareRequestHeaders(context.Context) (map[string]string, error) {
	return map[string]string{
		"Authorization": "Basic " + basicCredentials(b.username, b.password),
	}, nil
}

func basicCredentials(user, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + secret))
}
