// Package storage persists token data obtained by refreshable auth
// strategies, so a new process can reuse a token instead of fetching one.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/auth"
	"github.com/alexjbarnes/apiconfig/internal/logging"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
)

// Storage maps keys to token data. Implementations are safe for concurrent
// use.
type Storage interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data auth.TokenData) error
	// Load returns the data stored under key, or nil if there is none.
	Load(ctx context.Context, key string) (*auth.TokenData, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists the stored keys in no particular order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver string
	// Path of the bolt database file.
	Path string
	// Secret enables encryption of stored values for persistent drivers.
	Secret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	Logger *slog.Logger
}

// New opens the driver named by cfg.Driver. An empty driver selects memory.
func New(cfg Config) (Storage, error) {
	logger := logging.OrDiscard(cfg.Logger)
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	logger.Debug("opening token storage", "driver", driver)

	switch driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverBolt:
		path := cfg.Path
		if path == "" {
			p, err := DefaultBoltPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		b, err := OpenBolt(path, cfg.Secret)
		if err != nil {
			return nil, err
		}
		return b, nil
	case DriverRedis:
		r, err := NewRedis(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			Secret:   cfg.Secret,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "unknown token storage driver %q", cfg.Driver)
	}
}

// SaveResult stores the token data of a refresh result under key.
func SaveResult(ctx context.Context, s Storage, key string, res *auth.TokenRefreshResult) error {
	if res == nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "no refresh result to store for %q", key)
	}
	return s.Save(ctx, key, res.TokenData)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return apiconfig.Errorf(apiconfig.ErrStorage, "storage key is required")
	}
	return nil
}

// encode marshals data and seals it when a sealer is configured.
func encode(sl *sealer, key string, data auth.TokenData) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshalling token data: %w", err)
	}
	return sl.seal(raw, key)
}

func decode(sl *sealer, key string, raw []byte) (*auth.TokenData, error) {
	plain, err := sl.open(raw, key)
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "decrypting token %q: %w", key, err)
	}
	var data auth.TokenData
	if err := json.Unmarshal(plain, &data); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "decoding token %q: %w", key, err)
	}
	return &data, nil
}
