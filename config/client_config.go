package config

import (
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/auth"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
)

// ClientConfig describes how to reach and authenticate with an API.
//
// Optional fields are pointers or empty strings; when merging, an unset
// field in the overriding config inherits the base value instead of
// clearing it. Treat a ClientConfig as immutable once shared.
type ClientConfig struct {
	Hostname        string            `mapstructure:"hostname" json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Version         string            `mapstructure:"version" json:"version,omitempty" yaml:"version,omitempty"`
	Headers         map[string]string `mapstructure:"headers" json:"headers,omitempty" yaml:"headers,omitempty"`
	Timeout         *time.Duration    `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries         *int              `mapstructure:"retries" json:"retries,omitempty" yaml:"retries,omitempty"`
	LogRequestBody  *bool             `mapstructure:"log_request_body" json:"log_request_body,omitempty" yaml:"log_request_body,omitempty"`
	LogResponseBody *bool             `mapstructure:"log_response_body" json:"log_response_body,omitempty" yaml:"log_response_body,omitempty"`

	// AuthStrategy is shared, never copied, by Clone and Merge.
	AuthStrategy auth.Strategy `mapstructure:"auth_strategy" json:"-" yaml:"-"`

	// Extra holds keys with no dedicated field.
	Extra map[string]any `mapstructure:",remain" json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewClientConfig decodes a merged provider mapping into a validated
// ClientConfig. Durations accept Go duration strings or numbers of
// seconds; ints and bools accept their string forms.
func NewClientConfig(values map[string]any) (*ClientConfig, error) {
	c := &ClientConfig{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(durationHook, scalarHook),
		Result:     c,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := dec.Decode(deepCopyMap(values)); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrInvalidConfig, "decoding client config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func durationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType || data == nil {
		return data, nil
	}
	return CoerceDuration(data)
}

func scalarHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil || from == to {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int:
		return CoerceInt(data)
	case reflect.Bool:
		return CoerceBool(data)
	case reflect.Float64:
		return CoerceFloat(data)
	}
	return data, nil
}

// Validate checks field constraints.
func (c *ClientConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Hostname, validation.By(noWhitespace)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Retries, validation.Min(0)),
	)
	if err != nil {
		return apiconfig.Errorf(apiconfig.ErrInvalidConfig, "invalid client config: %w", err)
	}
	return nil
}

func noWhitespace(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, " \t\r\n") {
		return validation.NewError("validation_no_whitespace", "must not contain whitespace")
	}
	return nil
}

// Clone returns a deep copy of c. The auth strategy is shared.
func (c *ClientConfig) Clone() *ClientConfig {
	out := *c
	out.Headers = maps.Clone(c.Headers)
	out.Timeout = clonePtr(c.Timeout)
	out.Retries = clonePtr(c.Retries)
	out.LogRequestBody = clonePtr(c.LogRequestBody)
	out.LogResponseBody = clonePtr(c.LogResponseBody)
	out.Extra = deepCopyMap(c.Extra)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Merge returns a new config with other layered over c. Headers are
// unioned with other winning on collisions; every other field set in other
// replaces c's value. Neither input is modified. The result is validated.
func (c *ClientConfig) Merge(other *ClientConfig) (*ClientConfig, error) {
	if other == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrInvalidConfig, "cannot merge a nil client config")
	}

	out := c.Clone()

	if len(other.Headers) > 0 {
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(other.Headers))
		}
		maps.Copy(out.Headers, other.Headers)
	}
	if other.Hostname != "" {
		out.Hostname = other.Hostname
	}
	if other.Version != "" {
		out.Version = other.Version
	}
	if other.Timeout != nil {
		out.Timeout = clonePtr(other.Timeout)
	}
	if other.Retries != nil {
		out.Retries = clonePtr(other.Retries)
	}
	if other.LogRequestBody != nil {
		out.LogRequestBody = clonePtr(other.LogRequestBody)
	}
	if other.LogResponseBody != nil {
		out.LogResponseBody = clonePtr(other.LogResponseBody)
	}
	if other.AuthStrategy != nil {
		out.AuthStrategy = other.AuthStrategy
	}
	for k, v := range other.Extra {
		if v == nil {
			continue
		}
		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[k] = deepCopy(v)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeConfigs is base.Merge(other) with both arguments required.
func MergeConfigs(base, other *ClientConfig) (*ClientConfig, error) {
	if base == nil || other == nil {
		return nil, apiconfig.Errorf(apiconfig.ErrInvalidConfig, "merge requires two client configs")
	}
	return base.Merge(other)
}

// ApplyUpdates decodes updates, typically the ConfigUpdates of a token
// refresh, and merges them over c.
func (c *ClientConfig) ApplyUpdates(updates map[string]any) (*ClientConfig, error) {
	if len(updates) == 0 {
		return c.Clone(), nil
	}
	other, err := NewClientConfig(updates)
	if err != nil {
		return nil, err
	}
	return c.Merge(other)
}

// EffectiveTimeout returns Timeout or DefaultTimeout.
func (c *ClientConfig) EffectiveTimeout() time.Duration {
	if c.Timeout == nil {
		return DefaultTimeout
	}
	return *c.Timeout
}

// EffectiveRetries returns Retries or DefaultRetries.
func (c *ClientConfig) EffectiveRetries() int {
	if c.Retries == nil {
		return DefaultRetries
	}
	return *c.Retries
}

// BaseURL joins Hostname and Version.
func (c *ClientConfig) BaseURL() string {
	base := strings.TrimRight(c.Hostname, "/")
	if v := strings.Trim(c.Version, "/"); v != "" {
		base += "/" + v
	}
	return base
}

// HTTPClient returns a client that applies Headers and AuthStrategy to
// every request, with the effective timeout.
func (c *ClientConfig) HTTPClient() *http.Client {
	return &http.Client{
		Timeout:   c.EffectiveTimeout(),
		Transport: auth.NewTransport(c.AuthStrategy, maps.Clone(c.Headers)),
	}
}

var sensitiveKeys = []string{"authorization", "cookie", "token", "key", "secret", "password"}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// redactValue masks v when it sits under a sensitive key and descends into
// nested maps and slices otherwise.
func redactValue(key string, v any) any {
	if isSensitive(key) {
		if s, ok := v.(string); ok {
			return logging.Mask(s)
		}
		return "****"
	}
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = redactValue(k, e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, e := range x {
			out[k] = e
			if isSensitive(k) {
				out[k] = logging.Mask(e)
			}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = redactValue("", e)
		}
		return out
	default:
		return deepCopy(v)
	}
}

// Redacted returns a display form of c with credential-bearing headers and
// extra values masked and the auth strategy reduced to its type.
func (c *ClientConfig) Redacted() map[string]any {
	out := map[string]any{
		"base_url": c.BaseURL(),
		"timeout":  c.EffectiveTimeout().String(),
		"retries":  c.EffectiveRetries(),
	}
	if c.Hostname != "" {
		out["hostname"] = c.Hostname
	}
	if c.Version != "" {
		out["version"] = c.Version
	}
	if len(c.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			headers[k] = v
			if isSensitive(k) {
				headers[k] = logging.Mask(v)
			}
		}
		out["headers"] = headers
	}
	if c.LogRequestBody != nil {
		out["log_request_body"] = *c.LogRequestBody
	}
	if c.LogResponseBody != nil {
		out["log_response_body"] = *c.LogResponseBody
	}
	if c.AuthStrategy != nil {
		out["auth_strategy"] = fmt.Sprintf("%T", c.AuthStrategy)
	}
	if len(c.Extra) > 0 {
		out["extra"] = redactValue("", c.Extra)
	}
	return out
}
