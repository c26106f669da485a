package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/auth"
)

const defaultRedisPrefix = "apiconfig:token:"

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	Secret   string
}

// Redis stores tokens as JSON strings. Keys expire with the token when its
// expiry is known.
type Redis struct {
	client *redis.Client
	prefix string
	sealer *sealer
	now    func() time.Time
}

// NewRedis connects to redis and checks the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "redis ping failed: %w", err)
	}

	r, err := NewRedisWithClient(client, cfg.Prefix, cfg.Secret)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

// NewRedisWithClient wraps an existing client. Close closes the client.
func NewRedisWithClient(client *redis.Client, prefix, secret string) (*Redis, error) {
	sl, err := newSealer(secret)
	if err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "preparing encryption: %w", err)
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, sealer: sl, now: time.Now}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Save(ctx context.Context, key string, data auth.TokenData) error {
	if err := checkKey(key); err != nil {
		return err
	}

	raw, err := encode(r.sealer, key, data)
	if err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "encoding token %q: %w", key, err)
	}

	var ttl time.Duration
	if exp := data.ExpiresAt(); !exp.IsZero() {
		ttl = exp.Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, key)
		}
	}

	if err := r.client.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "saving token %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, key string) (*auth.TokenData, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apiconfig.Errorf(apiconfig.ErrStorage, "loading token %q: %w", key, err)
	}
	return decode(r.sealer, key, raw)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return apiconfig.Errorf(apiconfig.ErrStorage, "deleting token %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	keys := make([]string, 0)
	pattern := r.prefix + "*"
	for {
		res, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, apiconfig.Errorf(apiconfig.ErrStorage, "listing tokens: %w", err)
		}
		for _, k := range res {
			keys = append(keys, strings.TrimPrefix(k, r.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return keys, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
