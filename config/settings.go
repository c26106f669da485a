package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/storage"
)

// SettingsPrefix is the prefix of the library's own environment settings.
const SettingsPrefix = "APICONFIG_"

// Settings holds process-level settings: logging and where refreshed
// tokens are persisted. They are separate from the per-API ClientConfig.
type Settings struct {
	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Token storage driver: memory, bolt or redis.
	TokenStorage string `env:"TOKEN_STORAGE" envDefault:"memory"`
	// Path of the bolt database. Defaults to ~/.apiconfig/tokens.db.
	TokenStoragePath string `env:"TOKEN_STORAGE_PATH"`
	// Secret used to encrypt stored tokens. Empty stores them in clear.
	TokenStorageSecret string `env:"TOKEN_STORAGE_SECRET"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"apiconfig:token:"`

	// Optional JSON config file layered over the environment.
	ConfigFile string `env:"CONFIG_FILE"`
}

// SettingsEnvKeys returns the environment variable names read into
// Settings. An EnvProvider using SettingsPrefix should exclude them so
// storage secrets never reach a ClientConfig.
func SettingsEnvKeys() []string {
	params, err := env.GetFieldParamsWithOptions(&Settings{}, env.Options{Prefix: SettingsPrefix})
	if err != nil {
		panic(fmt.Sprintf("settings env tags: %v", err))
	}
	keys := make([]string, 0, len(params))
	for _, p := range params {
		keys = append(keys, p.Key)
	}
	return keys
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// LoadSettings reads settings from the environment. It first attempts to
// load a .env file if present, then parses env vars.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	s := &Settings{}
	if err := env.ParseWithOptions(s, env.Options{Prefix: SettingsPrefix}); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrConfigLoad, "parsing settings: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrInvalidConfig, "validating settings: %w", err)
	}

	return s, nil
}

func (s *Settings) validate() error {
	s.TokenStorage = strings.ToLower(strings.TrimSpace(s.TokenStorage))

	switch s.TokenStorage {
	case storage.DriverMemory, storage.DriverBolt:
	case storage.DriverRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("%sREDIS_ADDR is required when token storage is redis", SettingsPrefix)
		}
	default:
		return fmt.Errorf("%sTOKEN_STORAGE must be one of memory, bolt, redis; got %q", SettingsPrefix, s.TokenStorage)
	}

	if s.RedisDB < 0 {
		return fmt.Errorf("%sREDIS_DB must not be negative", SettingsPrefix)
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

// StorageConfig returns the token storage configuration.
func (s *Settings) StorageConfig() storage.Config {
	return storage.Config{
		Driver:        s.TokenStorage,
		Path:          s.TokenStoragePath,
		Secret:        s.TokenStorageSecret,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
		RedisPrefix:   s.RedisPrefix,
	}
}
