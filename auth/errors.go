package auth

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/alexjbarnes/apiconfig"
)

// errMalformedResponse marks token endpoint responses that could not be
// decoded.
var errMalformedResponse = errors.New("malformed token response")

// errTransientStatus marks token endpoint responses with a status worth
// retrying, such as 429 or 503.
var errTransientStatus = errors.New("transient server status")

// refreshError classifies a failed fetch into the token refresh kinds while
// keeping err in the chain.
func refreshError(name string, err error) error {
	kind := apiconfig.ErrTokenRefresh

	var netErr net.Error
	switch {
	case errors.Is(err, apiconfig.ErrInvalidCredentials):
	case errors.Is(err, context.DeadlineExceeded):
		kind = apiconfig.ErrTokenRefreshTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			kind = apiconfig.ErrTokenRefreshTimeout
		} else {
			kind = apiconfig.ErrTokenRefreshNetwork
		}
	case errors.Is(err, errTransientStatus):
		kind = apiconfig.ErrTokenRefreshNetwork
	case errors.Is(err, errMalformedResponse):
		kind = apiconfig.ErrTokenRefreshJSON
	}

	return apiconfig.Errorf(kind, "%s token refresh failed: %w", name, err)
}

// requireCredential rejects empty or blank credential values.
func requireCredential(strategy, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apiconfig.Errorf(apiconfig.ErrMissingCredentials, "%s: %s is required", strategy, field)
	}
	return nil
}
