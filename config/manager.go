package config

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// Manager merges the mappings of an ordered list of providers.
type Manager struct {
	mu        sync.RWMutex
	providers []Provider
	logger    *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a Manager over providers, in precedence order: later
// providers override earlier ones.
func NewManager(providers []Provider, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrDiscard(m.logger)

	for _, p := range providers {
		if err := m.Register(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Register appends a provider. v must implement Provider or
// LegacyProvider; anything else is rejected here rather than at load time.
func (m *Manager) Register(v any) error {
	p, err := AsProvider(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.providers = append(m.providers, p)
	m.mu.Unlock()

	m.logger.Debug("config provider registered", "provider", ProviderName(p))
	return nil
}

// Providers returns the registered providers in precedence order.
func (m *Manager) Providers() []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.providers)
}

// LoadConfig loads every provider in order and merges the results. The
// merge is shallow: a later provider's key replaces an earlier value in
// full, nested mappings included. Empty results contribute nothing.
//
// Loading stops at the first provider that fails; later providers are not
// called.
func (m *Manager) LoadConfig(ctx context.Context) (map[string]any, error) {
	merged := map[string]any{}

	for i, p := range m.Providers() {
		values, err := p.Load(ctx)
		if err != nil {
			name := ProviderName(p)
			m.logger.Warn("config provider failed", "provider", name, "index", i, "error", err)
			return nil, apiconfig.Errorf(apiconfig.ErrConfigLoad, "loading config from provider %d (%s): %w", i, name, err)
		}
		if len(values) == 0 {
			continue
		}
		maps.Copy(merged, values)
	}

	return merged, nil
}

// LoadClientConfig loads the merged mapping and decodes it into a
// ClientConfig.
func (m *Manager) LoadClientConfig(ctx context.Context) (*ClientConfig, error) {
	values, err := m.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewClientConfig(values)
}

// Watch runs every provider that implements Watcher and reloads the merged
// mapping after each change, passing the result to onReload. It blocks
// until ctx is cancelled or a watcher fails.
func (m *Manager) Watch(ctx context.Context, onReload func(map[string]any, error)) error {
	var watchers []Watcher
	for _, p := range m.Providers() {
		if w, ok := p.(Watcher); ok {
			watchers = append(watchers, w)
		}
	}
	if len(watchers) == 0 {
		return apiconfig.Errorf(apiconfig.ErrConfigProvider, "no registered provider supports watching")
	}

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, w := range watchers {
		g.Go(func() error {
			return w.Watch(gctx, notify)
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-changes:
				values, err := m.LoadConfig(gctx)
				m.logger.Info("config reloaded", "keys", len(values), "error", err)
				onReload(values, err)
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close releases providers that hold resources.
func (m *Manager) Close() error {
	var result *multierror.Error
	for _, p := range m.Providers() {
		if c, ok := p.(Closer); ok {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, apiconfig.Errorf(apiconfig.ErrConfigProvider,
					"closing provider %s: %w", ProviderName(p), err))
			}
		}
	}
	return result.ErrorOrNil()
}
