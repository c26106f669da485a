package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexjbarnes/apiconfig"
)

// DefaultEnvPrefix selects the environment variables EnvProvider reads.
const DefaultEnvPrefix = "APICONFIG_"

const defaultEnvPollInterval = 5 * time.Second

// EnvProvider reads prefixed environment variables. APICONFIG_TIMEOUT=30
// becomes {"timeout": 30}: the prefix is stripped, the key lowercased and
// the value's type inferred with InferValue.
type EnvProvider struct {
	prefix       string
	dotenvFiles  []string
	environ      func() []string
	pollInterval time.Duration
	exclude      map[string]bool
}

// EnvOption configures an EnvProvider.
type EnvOption func(*EnvProvider)

// WithPrefix replaces DefaultEnvPrefix.
func WithPrefix(prefix string) EnvOption {
	return func(e *EnvProvider) { e.prefix = prefix }
}

// WithDotenv also reads the given .env files. Process environment values
// win over file values, and missing files are skipped. The process
// environment is never modified.
func WithDotenv(files ...string) EnvOption {
	return func(e *EnvProvider) { e.dotenvFiles = files }
}

// WithEnviron replaces os.Environ as the variable source.
func WithEnviron(fn func() []string) EnvOption {
	return func(e *EnvProvider) { e.environ = fn }
}

// WithExclude skips the named variables. Names are full variable names,
// prefix included.
func WithExclude(names ...string) EnvOption {
	return func(e *EnvProvider) {
		if e.exclude == nil {
			e.exclude = make(map[string]bool, len(names))
		}
		for _, n := range names {
			e.exclude[n] = true
		}
	}
}

// WithPollInterval sets how often Watch checks for changes.
func WithPollInterval(d time.Duration) EnvOption {
	return func(e *EnvProvider) { e.pollInterval = d }
}

// NewEnvProvider returns an EnvProvider.
func NewEnvProvider(opts ...EnvOption) *EnvProvider {
	e := &EnvProvider{
		prefix:       DefaultEnvPrefix,
		environ:      os.Environ,
		pollInterval: defaultEnvPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *EnvProvider) Name() string { return "env:" + e.prefix }

func (e *EnvProvider) Load(context.Context) (map[string]any, error) {
	raw, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = InferValue(v)
	}
	return out, nil
}

// snapshot returns the matching raw values keyed by config key.
func (e *EnvProvider) snapshot() (map[string]string, error) {
	vars := map[string]string{}

	for _, file := range e.dotenvFiles {
		fileVars, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, apiconfig.Errorf(apiconfig.ErrConfigProvider, "reading %s: %w", file, err)
		}
		maps.Copy(vars, fileVars)
	}

	for _, kv := range e.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}

	out := map[string]string{}
	for k, v := range vars {
		if !strings.HasPrefix(k, e.prefix) || e.exclude[k] {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, e.prefix))
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out, nil
}

// Watch polls the environment and calls onChange when a matching variable
// is added, changed or removed.
func (e *EnvProvider) Watch(ctx context.Context, onChange func()) error {
	last, err := e.snapshot()
	if err != nil {
		return fmt.Errorf("taking environment snapshot: %w", err)
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current, err := e.snapshot()
			if err != nil {
				continue
			}
			if !maps.Equal(last, current) {
				last = current
				onChange()
			}
		}
	}
}
