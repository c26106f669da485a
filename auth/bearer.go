package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// BearerAuth sends a token in an "Authorization: Bearer" header. It is
// static unless given a refresh function.
type BearerAuth struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	refreshMu  sync.Mutex
	refresh    func(ctx context.Context) (*TokenRefreshResult, error)
	canRefresh func() bool
	jwtExpiry  bool

	now    func() time.Time
	margin time.Duration
	logger *slog.Logger
}

// NewBearerAuth returns a BearerAuth for token.
func NewBearerAuth(token string, opts ...Option) (*BearerAuth, error) {
	if err := requireCredential("bearer auth", "access token", token); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	b := &BearerAuth{
		token:      token,
		refresh:    o.refresh,
		canRefresh: o.canRefresh,
		jwtExpiry:  o.jwtExpiry,
		now:        o.now,
		margin:     o.margin,
		logger:     o.logger,
	}
	if b.jwtExpiry {
		b.expiresAt = jwtExpiry(token)
	}

	return b, nil
}

// NewBearerAuthFromTokenData builds a BearerAuth from stored token data,
// carrying over its expiry.
func NewBearerAuthFromTokenData(d TokenData, opts ...Option) (*BearerAuth, error) {
	b, err := NewBearerAuth(d.AccessToken, opts...)
	if err != nil {
		return nil, err
	}
	if exp := d.ExpiresAt(); !exp.IsZero() {
		b.expiresAt = exp
	}
	return b, nil
}

// Token returns the current access token.
func (b *BearerAuth) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *BearerAuth) PrepareRequestHeaders(context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer " + b.Token()}, nil
}

func (b *BearerAuth) PrepareRequestParams(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (b *BearerAuth) CanRefresh() bool {
	if b.refresh == nil {
		return false
	}
	if b.canRefresh != nil {
		return b.canRefresh()
	}
	return true
}

// IsExpired reports whether the token's known expiry, less the safety
// margin, has passed. Tokens without a known expiry never expire.
func (b *BearerAuth) IsExpired() bool {
	b.mu.RLock()
	exp := b.expiresAt
	b.mu.RUnlock()

	if exp.IsZero() {
		return false
	}
	return !b.now().Before(exp.Add(-b.margin))
}

func (b *BearerAuth) Refresh(ctx context.Context) (*TokenRefreshResult, error) {
	if !b.CanRefresh() {
		return nil, apiconfig.Wrap(apiconfig.ErrRefreshNotSupported, nil, "bearer auth: no refresh function configured")
	}

	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	res, err := b.refresh(ctx)
	if err != nil {
		b.logger.Warn("bearer token refresh failed", "error", err)
		return nil, refreshError("bearer", err)
	}
	if res == nil || res.TokenData.AccessToken == "" {
		return nil, apiconfig.Wrap(apiconfig.ErrTokenRefresh, nil, "bearer token refresh returned no access token")
	}

	now := b.now()
	if res.TokenData.ObtainedAt.IsZero() {
		res.TokenData.ObtainedAt = now
	}
	if res.TokenData.TokenType == "" {
		res.TokenData.TokenType = "Bearer"
	}

	exp := res.TokenData.ExpiresAt()
	if exp.IsZero() && b.jwtExpiry {
		exp = jwtExpiry(res.TokenData.AccessToken)
	}

	b.mu.Lock()
	b.token = res.TokenData.AccessToken
	b.expiresAt = exp
	b.mu.Unlock()

	b.logger.Info("bearer token refreshed", "token", logging.Mask(res.TokenData.AccessToken))

	return res, nil
}

func (b *BearerAuth) RefreshCallback() RefreshFunc {
	return refreshCallback(b)
}

// jwtExpiry returns the exp claim of an unverified JWT, or the zero time
// for opaque tokens and tokens without exp.
func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
