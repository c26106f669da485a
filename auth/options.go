package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// Option configures a strategy. Options that do not apply to a strategy
// are ignored by it.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	margin time.Duration
	client Doer

	refresh    func(ctx context.Context) (*TokenRefreshResult, error)
	canRefresh func() bool
	jwtExpiry  bool

	headerFn func(ctx context.Context) (map[string]string, error)
	paramFn  func(ctx context.Context) (map[string]string, error)

	companyID     string
	hostname      string
	version       string
	sessionToken  string
	sessionExpiry time.Time
}

func newOptions(opts []Option) *options {
	o := &options{
		now:       time.Now,
		margin:    DefaultExpiryMargin,
		companyID: "0",
		hostname:  DefaultTripletexHostname,
		version:   DefaultTripletexVersion,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}

// WithLogger sets the logger used for token lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithExpiryMargin overrides DefaultExpiryMargin.
func WithExpiryMargin(d time.Duration) Option {
	return func(o *options) { o.margin = d }
}

// WithHTTPClient sets the client used to reach token endpoints. For the
// Tripletex strategy it also enables Refresh. The OAuth2 client
// credentials strategy accepts only an *http.Client.
func WithHTTPClient(c Doer) Option {
	return func(o *options) { o.client = c }
}

// WithRefreshFunc makes a bearer or custom strategy refreshable. canRefresh
// may be nil, in which case the strategy can refresh whenever fn is set.
func WithRefreshFunc(fn func(ctx context.Context) (*TokenRefreshResult, error), canRefresh func() bool) Option {
	return func(o *options) {
		o.refresh = fn
		o.canRefresh = canRefresh
	}
}

// WithJWTExpiry derives a bearer token's expiry from its exp claim. The
// signature is not verified; the claim is only used to schedule refresh.
func WithJWTExpiry() Option {
	return func(o *options) { o.jwtExpiry = true }
}

// WithHeaderCallback sets the custom strategy's header producer.
func WithHeaderCallback(fn func(ctx context.Context) (map[string]string, error)) Option {
	return func(o *options) { o.headerFn = fn }
}

// WithParamCallback sets the custom strategy's query parameter producer.
func WithParamCallback(fn func(ctx context.Context) (map[string]string, error)) Option {
	return func(o *options) { o.paramFn = fn }
}

// WithCompanyID sets the Tripletex company the session acts for. Defaults
// to "0", the employee's own company.
func WithCompanyID(id string) Option {
	return func(o *options) { o.companyID = id }
}

// WithHostname sets the Tripletex API host, including scheme.
func WithHostname(h string) Option {
	return func(o *options) { o.hostname = h }
}

// WithVersion sets the Tripletex API version path segment. An empty
// version omits the segment.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithSessionToken seeds the Tripletex strategy with a previously obtained
// session token, typically loaded from storage.
func WithSessionToken(token string, expiresAt time.Time) Option {
	return func(o *options) {
		o.sessionToken = token
		o.sessionExpiry = expiresAt
	}
}
