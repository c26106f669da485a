package auth

import (
	"context"
	"maps"

	"github.com/alexjbarnes/apiconfig"
)

// CustomAuth delegates header and parameter production to caller supplied
// callbacks.
type CustomAuth struct {
	headerFn   func(ctx context.Context) (map[string]string, error)
	paramFn    func(ctx context.Context) (map[string]string, error)
	refresh    func(ctx context.Context) (*TokenRefreshResult, error)
	canRefresh func() bool
}

// NewCustomAuth returns a CustomAuth configured by WithHeaderCallback,
// WithParamCallback and WithRefreshFunc. At least one of the header and
// param callbacks is required.
func NewCustomAuth(opts ...Option) (*CustomAuth, error) {
	o := newOptions(opts)
	if o.headerFn == nil && o.paramFn == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"custom auth: a header callback or param callback is required")
	}
	return &CustomAuth{
		headerFn:   o.headerFn,
		paramFn:    o.paramFn,
		refresh:    o.refresh,
		canRefresh: o.canRefresh,
	}, nil
}

func (c *CustomAuth) PrepareRequestHeaders(ctx context.Context) (map[string]string, error) {
	return invokeCallback(ctx, "header", c.headerFn)
}

func (c *CustomAuth) PrepareRequestParams(ctx context.Context) (map[string]string, error) {
	return invokeCallback(ctx, "param", c.paramFn)
}

// PrepareRequest merges the callback output into copies of headers and
// params. Callback values win on key collisions; the inputs are left
// untouched.
func (c *CustomAuth) PrepareRequest(ctx context.Context, headers, params map[string]string) (map[string]string, map[string]string, error) {
	outHeaders := maps.Clone(headers)
	if outHeaders == nil {
		outHeaders = map[string]string{}
	}
	outParams := maps.Clone(params)
	if outParams == nil {
		outParams = map[string]string{}
	}

	h, err := c.PrepareRequestHeaders(ctx)
	if err != nil {
		return nil, nil, err
	}
	p, err := c.PrepareRequestParams(ctx)
	if err != nil {
		return nil, nil, err
	}

	maps.Copy(outHeaders, h)
	maps.Copy(outParams, p)

	return outHeaders, outParams, nil
}

func (c *CustomAuth) CanRefresh() bool {
	if c.refresh == nil {
		return false
	}
	if c.canRefresh != nil {
		return c.canRefresh()
	}
	return true
}

func (c *CustomAuth) IsExpired() bool { return false }

func (c *CustomAuth) Refresh(ctx context.Context) (*TokenRefreshResult, error) {
	if c.refresh == nil {
		return nil, apiconfig.Wrap(apiconfig.ErrRefreshNotSupported, nil, "custom auth: no refresh function configured")
	}
	res, err := c.refresh(ctx)
	if err != nil {
		return nil, apiconfig.Wrap(apiconfig.ErrAuthStrategy, err, "custom auth refresh failed")
	}
	return res, nil
}

func (c *CustomAuth) RefreshCallback() RefreshFunc {
	return refreshCallback(c)
}

func invokeCallback(ctx context.Context, kind string, fn func(context.Context) (map[string]string, error)) (map[string]string, error) {
	if fn == nil {
		return map[string]string{}, nil
	}
	out, err := fn(ctx)
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "custom auth %s callback failed: %w", kind, err)
	}
	if out == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "custom auth %s callback returned no mapping", kind)
	}
	return maps.Clone(out), nil
}
