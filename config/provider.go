// Package config resolves client configuration from layered providers.
package config

//go:generate mockgen -destination=mock_provider_test.go -package=config . Provider

import (
	"context"
	"fmt"

	"github.com/alexjbarnes/apiconfig"
)

// Provider supplies a flat configuration mapping. Later providers in a
// Manager override earlier ones key by key.
type Provider interface {
	Load(ctx context.Context) (map[string]any, error)
}

// LegacyProvider is the older provider shape without a context.
type LegacyProvider interface {
	GetConfig() (map[string]any, error)
}

// Named providers report a name used in errors and logs.
type Named interface {
	Name() string
}

// Watcher providers can report changes. Watch blocks until ctx is done,
// calling onChange after each change.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Closer providers hold resources released by Manager.Close.
type Closer interface {
	Close() error
}

type legacyAdapter struct {
	p LegacyProvider
}

func (a legacyAdapter) Load(context.Context) (map[string]any, error) {
	return a.p.GetConfig()
}

func (a legacyAdapter) Name() string {
	return ProviderName(a.p)
}

// AsProvider adapts v to a Provider. v must implement Provider or
// LegacyProvider.
func AsProvider(v any) (Provider, error) {
	switch p := v.(type) {
	case nil:
		return nil, apiconfig.Errorf(apiconfig.ErrConfigLoad, "provider is nil")
	case Provider:
		return p, nil
	case LegacyProvider:
		return legacyAdapter{p: p}, nil
	default:
		return nil, apiconfig.Errorf(apiconfig.ErrConfigLoad,
			"%T is not a config provider: it has neither Load nor GetConfig", v)
	}
}

// ProviderName returns p's name, or its type when it has none.
func ProviderName(p any) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
