package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/internal/httputil"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

const (
	DefaultTripletexHostname = "https://tripletex.no"
	DefaultTripletexVersion  = "v2"

	// sessionExpiresIn is the lifetime reported for a fresh session token.
	sessionExpiresIn = 172800

	expirationDateLayout = "2006-01-02T15:04:05.000Z"
)

// fetchTimeout bounds every token endpoint request.
var fetchTimeout = httputil.ClientTimeout

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// session is replaced as a whole so a token is never paired with another
// token's expiry.
type session struct {
	token     string
	expiresAt time.Time
}

// TripletexSessionAuth exchanges a consumer token and an employee token for
// a short-lived session token, and authenticates requests with it. The
// session token is fetched on first use and whenever it is about to expire.
type TripletexSessionAuth struct {
	consumerToken string
	employeeToken string
	companyID     string
	baseURL       string

	client      Doer
	refreshable bool

	mu       sync.RWMutex
	session  *session
	attempts int

	// fetchMu serialises fetch-and-assign.
	fetchMu sync.Mutex

	now    func() time.Time
	margin time.Duration
	logger *slog.Logger
}

// NewTripletexSessionAuth returns a session strategy. Refresh is only
// available when an HTTP client is supplied with WithHTTPClient; without one
// a default client is still used for the lazy fetch.
func NewTripletexSessionAuth(consumerToken, employeeToken string, opts ...Option) (*TripletexSessionAuth, error) {
	if err := requireCredential("tripletex auth", "consumer token", consumerToken); err != nil {
		return nil, err
	}
	if err := requireCredential("tripletex auth", "employee token", employeeToken); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	if err := requireCredential("tripletex auth", "hostname", o.hostname); err != nil {
		return nil, err
	}

	t := &TripletexSessionAuth{
		consumerToken: consumerToken,
		employeeToken: employeeToken,
		companyID:     o.companyID,
		baseURL:       joinBaseURL(o.hostname, o.version),
		client:        o.client,
		refreshable:   o.client != nil,
		now:           o.now,
		margin:        o.margin,
		logger:        o.logger,
	}
	if t.client == nil {
		t.client = httputil.NewClient()
	}
	if o.sessionToken != "" {
		t.session = &session{token: o.sessionToken, expiresAt: o.sessionExpiry}
	}

	return t, nil
}

func joinBaseURL(hostname, version string) string {
	base := strings.TrimRight(hostname, "/")
	if v := strings.Trim(version, "/"); v != "" {
		base += "/" + v
	}
	return base
}

// Session returns the held session token and its expiry. The token is empty
// before the first fetch.
func (t *TripletexSessionAuth) Session() (string, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.session == nil {
		return "", time.Time{}
	}
	return t.session.token, t.session.expiresAt
}

// RefreshAttempts returns the number of consecutive failed fetches since
// the last successful one.
func (t *TripletexSessionAuth) RefreshAttempts() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attempts
}

func (t *TripletexSessionAuth) PrepareRequestHeaders(ctx context.Context) (map[string]string, error) {
	token, err := t.currentToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization": "Basic " + basicCredentials(t.companyID, token),
	}, nil
}

func (t *TripletexSessionAuth) PrepareRequestParams(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (t *TripletexSessionAuth) CanRefresh() bool {
	return t.refreshable
}

// IsExpired reports whether no token is held or the held token is within
// the safety margin of its expiry.
func (t *TripletexSessionAuth) IsExpired() bool {
	t.mu.RLock()
	s := t.session
	t.mu.RUnlock()
	return t.expired(s)
}

func (t *TripletexSessionAuth) expired(s *session) bool {
	if s == nil {
		return true
	}
	return !t.now().Before(s.expiresAt.Add(-t.margin))
}

// Refresh fetches a new session token regardless of the held token's
// expiry.
func (t *TripletexSessionAuth) Refresh(ctx context.Context) (*TokenRefreshResult, error) {
	if !t.refreshable {
		return nil, apiconfig.Wrap(apiconfig.ErrRefreshNotSupported, nil,
			"tripletex auth: refresh requires an http client")
	}

	t.fetchMu.Lock()
	defer t.fetchMu.Unlock()

	s, err := t.fetchAndStore(ctx)
	if err != nil {
		return nil, refreshError("tripletex", err)
	}

	return &TokenRefreshResult{
		TokenData: TokenData{
			AccessToken: s.token,
			ExpiresIn:   sessionExpiresIn,
			TokenType:   "session",
			ObtainedAt:  t.now(),
		},
	}, nil
}

func (t *TripletexSessionAuth) RefreshCallback() RefreshFunc {
	return refreshCallback(t)
}

// currentToken returns a usable session token, fetching one when none is
// held or the held one has expired.
func (t *TripletexSessionAuth) currentToken(ctx context.Context) (string, error) {
	t.mu.RLock()
	s := t.session
	t.mu.RUnlock()
	if !t.expired(s) {
		return s.token, nil
	}

	t.fetchMu.Lock()
	defer t.fetchMu.Unlock()

	// Another caller may have fetched while we waited.
	t.mu.RLock()
	s = t.session
	t.mu.RUnlock()
	if !t.expired(s) {
		return s.token, nil
	}

	s, err := t.fetchAndStore(ctx)
	if err != nil {
		if apiconfig.KindOf(err) == nil {
			err = apiconfig.Wrap(apiconfig.ErrAuthStrategy, err, "tripletex auth: fetching session token")
		}
		return "", err
	}
	return s.token, nil
}

// fetchAndStore must be called with fetchMu held.
func (t *TripletexSessionAuth) fetchAndStore(ctx context.Context) (*session, error) {
	s, err := t.fetch(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.attempts++
		t.logger.Warn("tripletex session token fetch failed",
			"attempts", t.attempts,
			"error", err,
		)
		return nil, err
	}

	t.session = s
	t.attempts = 0
	t.logger.Info("tripletex session token fetched",
		"token", logging.Mask(s.token),
		"expires_at", s.expiresAt,
	)

	return s, nil
}

func (t *TripletexSessionAuth) fetch(ctx context.Context) (*session, error) {
	expiresAt := sessionExpiry(t.now())

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("consumerToken", t.consumerToken)
	q.Set("employeeToken", t.employeeToken)
	q.Set("expirationDate", expiresAt.Format(expirationDateLayout))

	endpoint := t.baseURL + "/token/session/:create"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apiconfig.Wrap(apiconfig.ErrAuthStrategy, err, "tripletex auth: building session request")
	}
	req.Header.Set("Accept", "application/json")

	t.logger.Debug("requesting tripletex session token", "endpoint", endpoint)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting tripletex session token: %w", stripQuery(err))
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("reading tripletex session response: %w", err)
	}

	switch {
	case httputil.IsAuthFailure(resp.StatusCode):
		return nil, apiconfig.Errorf(apiconfig.ErrInvalidCredentials,
			"tripletex rejected credentials (status %d): %s", resp.StatusCode, httputil.SanitizeBody(body))
	case httputil.IsTransientStatus(resp.StatusCode):
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"tripletex session endpoint returned status %d: %w: %s", resp.StatusCode, errTransientStatus, httputil.SanitizeBody(body))
	case resp.StatusCode != http.StatusOK:
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"tripletex session endpoint returned status %d: %s", resp.StatusCode, httputil.SanitizeBody(body))
	}

	if !gjson.ValidBytes(body) {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"decoding tripletex session response: %w", errMalformedResponse)
	}

	token := gjson.GetBytes(body, "value.token")
	if token.Type != gjson.String || token.Str == "" {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"tripletex session response has no value.token: %w", errMalformedResponse)
	}

	return &session{token: token.Str, expiresAt: expiresAt}, nil
}

// sessionExpiry returns the last second of the UTC day two days after now.
func sessionExpiry(now time.Time) time.Time {
	d := now.UTC().AddDate(0, 0, 2)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
}

// stripQuery removes the query string from a *url.Error so credentials in
// it never reach logs or error messages.
func stripQuery(err error) error {
	if ue, ok := err.(*url.Error); ok {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}
