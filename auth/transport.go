package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexjbarnes/apiconfig/internal/httputil"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// Transport is an http.RoundTripper that authenticates each request with a
// Strategy. Headers holds static headers applied before the strategy's, so
// auth headers win on collision.
//
// An expired refreshable strategy is refreshed before the request is sent.
// A 401 response triggers one refresh and one retry when the request body
// can be replayed.
type Transport struct {
	Strategy Strategy
	Headers  map[string]string
	Base     http.RoundTripper
	Logger   *slog.Logger
}

// NewTransport returns a Transport over http.DefaultTransport.
func NewTransport(s Strategy, headers map[string]string) *Transport {
	return &Transport{Strategy: s, Headers: headers}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := logging.OrDiscard(t.Logger)
	ctx := req.Context()

	if t.Strategy != nil && t.Strategy.CanRefresh() && t.Strategy.IsExpired() {
		if _, err := t.Strategy.Refresh(ctx); err != nil {
			closeBody(req)
			return nil, err
		}
	}

	out, err := t.authorize(req)
	if err != nil {
		closeBody(req)
		return nil, err
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || t.Strategy == nil || !t.Strategy.CanRefresh() {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	logger.Debug("request unauthorized, refreshing credentials", "url", req.URL.Redacted())
	httputil.Drain(resp)

	if _, err := t.Strategy.Refresh(ctx); err != nil {
		return nil, err
	}

	retry, err := t.authorize(req)
	if err != nil {
		return nil, err
	}
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replaying request body: %w", err)
		}
		retry.Body = body
	}

	return t.base().RoundTrip(retry)
}

// closeBody closes the request body on paths that return before the base
// transport takes ownership of it.
func closeBody(req *http.Request) {
	if req.Body != nil && req.Body != http.NoBody {
		_ = req.Body.Close()
	}
}

// authorize returns a clone of req carrying the static headers and the
// strategy's headers and params. req itself is never modified.
func (t *Transport) authorize(req *http.Request) (*http.Request, error) {
	ctx := req.Context()
	out := req.Clone(ctx)

	for k, v := range t.Headers {
		out.Header.Set(k, v)
	}

	if t.Strategy == nil {
		return out, nil
	}

	headers, err := t.Strategy.PrepareRequestHeaders(ctx)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		out.Header.Set(k, v)
	}

	params, err := t.Strategy.PrepareRequestParams(ctx)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		q := out.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		out.URL.RawQuery = q.Encode()
	}

	return out, nil
}
