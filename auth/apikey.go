package auth

import (
	"context"
	"strings"

	"github.com/alexjbarnes/apiconfig"
)

// APIKeyAuth sends an API key either as a header or as a query parameter,
// never both.
type APIKeyAuth struct {
	noRefresh
	apiKey     string
	headerName string
	paramName  string
}

// NewAPIKeyAuth returns an APIKeyAuth. Exactly one of headerName and
// paramName must be set.
func NewAPIKeyAuth(apiKey, headerName, paramName string) (*APIKeyAuth, error) {
	if err := requireCredential("api key auth", "api key", apiKey); err != nil {
		return nil, err
	}

	hasHeader := headerName != ""
	hasParam := paramName != ""
	switch {
	case hasHeader && hasParam:
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"api key auth: only one of header name and param name may be set")
	case !hasHeader && !hasParam:
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy,
			"api key auth: one of header name or param name is required")
	}

	name := headerName + paramName
	if strings.TrimSpace(name) != name || strings.ContainsAny(name, " \t\r\n") {
		return nil, apiconfig.Errorf(apiconfig.ErrAuthStrategy, "api key auth: invalid name %q", name)
	}

	return &APIKeyAuth{apiKey: apiKey, headerName: headerName, paramName: paramName}, nil
}

// NewAPIKeyHeaderAuth sends apiKey in the named header.
func NewAPIKeyHeaderAuth(apiKey, headerName string) (*APIKeyAuth, error) {
	return NewAPIKeyAuth(apiKey, headerName, "")
}

// NewAPIKeyParamAuth sends apiKey in the named query parameter.
func NewAPIKeyParamAuth(apiKey, paramName string) (*APIKeyAuth, error) {
	return NewAPIKeyAuth(apiKey, "", paramName)
}

func (a *APIKeyAuth) PrepareRequestHeaders(context.Context) (map[string]string, error) {
	if a.headerName == "" {
		return map[string]string{}, nil
	}
	return map[string]string{a.headerName: a.apiKey}, nil
}

func (a *APIKeyAuth) PrepareRequestParams(context.Context) (map[string]string, error) {
	if a.paramName == "" {
		return map[string]string{}, nil
	}
	return map[string]string{a.paramName: a.apiKey}, nil
}
