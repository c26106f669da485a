package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/internal/httputil"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// OAuth2Auth authenticates with an OAuth2 access token obtained from a
// token endpoint. Like the Tripletex strategy it fetches lazily and
// refreshes on demand.
type OAuth2Auth struct {
	fetchToken func(ctx context.Context) (*oauth2.Token, error)

	mu    sync.RWMutex
	token *oauth2.Token

	fetchMu sync.Mutex

	now    func() time.Time
	margin time.Duration
	logger *slog.Logger
}

// NewOAuth2ClientCredentials returns a strategy using the client
// credentials grant. Token requests use the *http.Client set with
// WithHTTPClient, or a client with the default timeout; other Doer
// implementations are rejected because the oauth2 package needs an
// *http.Client.
func NewOAuth2ClientCredentials(cfg *clientcredentials.Config, opts ...Option) (*OAuth2Auth, error) {
	if cfg == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "oauth2 auth: config is required")
	}
	if err := requireCredential("oauth2 auth", "client id", cfg.ClientID); err != nil {
		return nil, err
	}
	if err := requireCredential("oauth2 auth", "token url", cfg.TokenURL); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	hc := httputil.NewClient()
	if o.client != nil {
		c, ok := o.client.(*http.Client)
		if !ok {
			return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
				"oauth2 auth: http client must be an *http.Client, got %T", o.client)
		}
		hc = c
	}

	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		return cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, hc))
	}

	return newOAuth2Auth(fetch, o), nil
}

// NewOAuth2Auth wraps an arbitrary token source. The source decides how
// tokens are obtained; Refresh always asks it for a new one.
func NewOAuth2Auth(src oauth2.TokenSource, opts ...Option) (*OAuth2Auth, error) {
	if src == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "oauth2 auth: token source is required")
	}
	fetch := func(context.Context) (*oauth2.Token, error) {
		return src.Token()
	}
	return newOAuth2Auth(fetch, newOptions(opts)), nil
}

func newOAuth2Auth(fetch func(context.Context) (*oauth2.Token, error), o *options) *OAuth2Auth {
	return &OAuth2Auth{
		fetchToken: fetch,
		now:        o.now,
		margin:     o.margin,
		logger:     o.logger,
	}
}

func (a *OAuth2Auth) PrepareRequestHeaders(ctx context.Context) (map[string]string, error) {
	tok, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": tok.Type() + " " + tok.AccessToken}, nil
}

func (a *OAuth2Auth) PrepareRequestParams(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (a *OAuth2Auth) CanRefresh() bool { return true }

// IsExpired reports whether no token is held or the held token is within
// the safety margin of its expiry. Tokens without an expiry never expire.
func (a *OAuth2Auth) IsExpired() bool {
	a.mu.RLock()
	tok := a.token
	a.mu.RUnlock()
	return a.expired(tok)
}

func (a *OAuth2Auth) expired(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return true
	}
	if tok.Expiry.IsZero() {
		return false
	}
	return !a.now().Before(tok.Expiry.Add(-a.margin))
}

func (a *OAuth2Auth) Refresh(ctx context.Context) (*TokenRefreshResult, error) {
	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()

	tok, err := a.fetchAndStore(ctx)
	if err != nil {
		return nil, refreshError("oauth2", err)
	}

	now := a.now()
	data := TokenData{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		RefreshToken: tok.RefreshToken,
		ObtainedAt:   now,
	}
	if !tok.Expiry.IsZero() {
		data.ExpiresIn = int(tok.Expiry.Sub(now).Seconds())
	}

	return &TokenRefreshResult{TokenData: data}, nil
}

func (a *OAuth2Auth) RefreshCallback() RefreshFunc {
	return refreshCallback(a)
}

func (a *OAuth2Auth) current(ctx context.Context) (*oauth2.Token, error) {
	a.mu.RLock()
	tok := a.token
	a.mu.RUnlock()
	if !a.expired(tok) {
		return tok, nil
	}

	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()

	a.mu.RLock()
	tok = a.token
	a.mu.RUnlock()
	if !a.expired(tok) {
		return tok, nil
	}

	tok, err := a.fetchAndStore(ctx)
	if err != nil {
		return nil, apiconfig.Wrap(apiconfig.ErrAuthStrategy, err, "oauth2 auth: fetching token")
	}
	return tok, nil
}

// fetchAndStore must be called with fetchMu held.
func (a *OAuth2Auth) fetchAndStore(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.fetchToken(ctx)
	if err != nil {
		a.logger.Warn("oauth2 token fetch failed", "error", err)
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "invalid_client" ||
			(re.Response != nil && httputil.IsAuthFailure(re.Response.StatusCode))) {
			return nil, apiconfig.Errorf(apiconfig.ErrInvalidCredentials, "oauth2 token endpoint rejected credentials: %w", err)
		}
		if errors.As(err, &re) && re.Response != nil && httputil.IsTransientStatus(re.Response.StatusCode) {
			return nil, fmt.Errorf("%w: %w", errTransientStatus, err)
		}
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "oauth2 token response has no access token: %w", errMalformedResponse)
	}

	a.mu.Lock()
	a.token = tok
	a.mu.Unlock()

	a.logger.Info("oauth2 token fetched", "token", logging.Mask(tok.AccessToken), "expiry", tok.Expiry)

	return tok, nil
}
