// Package auth implements the authentication strategies a client uses to
// decorate outgoing requests, and the token refresh protocol for the ones
// backed by short-lived tokens.
package auth

//go:generate mockgen -destination=mock_strategy_test.go -package=auth . Strategy

import (
	"context"
	"time"

	"github.com/alexjbarnes/apiconfig"
)

// DefaultExpiryMargin is subtracted from a token's expiry when deciding
// whether it is still usable, so a token is never sent moments before it
// lapses.
const DefaultExpiryMargin = 5 * time.Minute

// Strategy produces the credentials for a request. Implementations are safe
// for concurrent use and may be shared between client configurations.
type Strategy interface {
	// PrepareRequestHeaders returns the headers to add to a request.
	PrepareRequestHeaders(ctx context.Context) (map[string]string, error)
	// PrepareRequestParams returns the query parameters to add to a request.
	PrepareRequestParams(ctx context.Context) (map[string]string, error)
	// CanRefresh reports whether Refresh can obtain new credentials.
	CanRefresh() bool
	// IsExpired reports whether the held credentials should be refreshed.
	IsExpired() bool
	// Refresh obtains new credentials and returns what was obtained.
	Refresh(ctx context.Context) (*TokenRefreshResult, error)
	// RefreshCallback returns a function that triggers Refresh, or nil when
	// the strategy cannot refresh.
	RefreshCallback() RefreshFunc
}

// RefreshFunc triggers a credential refresh.
type RefreshFunc func(ctx context.Context) error

// TokenData describes a token obtained from a token endpoint.
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at,omitzero"`
}

// ExpiresAt returns the absolute expiry of the token, or the zero time when
// it is unknown.
func (d TokenData) ExpiresAt() time.Time {
	if d.ExpiresIn <= 0 || d.ObtainedAt.IsZero() {
		return time.Time{}
	}
	return d.ObtainedAt.Add(time.Duration(d.ExpiresIn) * time.Second)
}

// TokenRefreshResult is returned by a successful Refresh. ConfigUpdates
// carries client configuration changes the refresh implies, if any.
type TokenRefreshResult struct {
	TokenData     TokenData      `json:"token_data"`
	ConfigUpdates map[string]any `json:"config_updates,omitempty"`
}

// noRefresh supplies the defaults for strategies that hold static
// credentials.
type noRefresh struct{}

func (noRefresh) CanRefresh() bool { return false }

func (noRefresh) IsExpired() bool { return false }

func (noRefresh) Refresh(context.Context) (*TokenRefreshResult, error) {
	return nil, apiconfig.Wrap(apiconfig.ErrRefreshNotSupported, nil, "strategy does not support token refresh")
}

func (noRefresh) RefreshCallback() RefreshFunc { return nil }

func (noRefresh) PrepareRequestParams(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

// refreshCallback builds the RefreshFunc for a refreshable strategy.
func refreshCallback(s Strategy) RefreshFunc {
	if !s.CanRefresh() {
		return nil
	}
	return func(ctx context.Context) error {
		res, err := s.Refresh(ctx)
		if err != nil {
			return err
		}
		if res == nil {
			return apiconfig.Wrap(apiconfig.ErrTokenRefresh, nil, "refresh returned no result")
		}
		return nil
	}
}
