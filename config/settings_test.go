package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/apiconfig"
	"github.com/alexjbarnes/apiconfig/storage"
)

// clearSettingsEnv unsets all settings env vars so tests start clean.
func clearSettingsEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENVIRONMENT",
		"LOG_LEVEL",
		"TOKEN_STORAGE",
		"TOKEN_STORAGE_PATH",
		"TOKEN_STORAGE_SECRET",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REDIS_PREFIX",
		"CONFIG_FILE",
	} {
		key = SettingsPrefix + key
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearSettingsEnv(t)

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, storage.DriverMemory, s.TokenStorage)
	assert.Equal(t, "localhost:6379", s.RedisAddr)
	assert.Equal(t, "apiconfig:token:", s.RedisPrefix)
	assert.Equal(t, 0, s.RedisDB)
	assert.Empty(t, s.ConfigFile)
	assert.False(t, s.IsProduction())
}

func TestLoadSettings_Custom(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("APICONFIG_ENVIRONMENT", "production")
	t.Setenv("APICONFIG_LOG_LEVEL", "warn")
	t.Setenv("APICONFIG_TOKEN_STORAGE", " Bolt ")
	t.Setenv("APICONFIG_TOKEN_STORAGE_PATH", "/var/lib/apiconfig/tokens.db")
	t.Setenv("APICONFIG_TOKEN_STORAGE_SECRET", "s3cret")
	t.Setenv("APICONFIG_CONFIG_FILE", "/etc/apiconfig/fiken.json")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.True(t, s.IsProduction())
	assert.Equal(t, "warn", s.LogLevel)
	assert.Equal(t, storage.DriverBolt, s.TokenStorage)
	assert.Equal(t, "/etc/apiconfig/fiken.json", s.ConfigFile)

	sc := s.StorageConfig()
	assert.Equal(t, storage.DriverBolt, sc.Driver)
	assert.Equal(t, "/var/lib/apiconfig/tokens.db", sc.Path)
	assert.Equal(t, "s3cret", sc.Secret)
}

func TestLoadSettings_Redis(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("APICONFIG_TOKEN_STORAGE", "redis")
	t.Setenv("APICONFIG_REDIS_ADDR", "cache:6380")
	t.Setenv("APICONFIG_REDIS_DB", "2")
	t.Setenv("APICONFIG_REDIS_PASSWORD", "pw")

	s, err := LoadSettings()
	require.NoError(t, err)

	sc := s.StorageConfig()
	assert.Equal(t, storage.DriverRedis, sc.Driver)
	assert.Equal(t, "cache:6380", sc.RedisAddr)
	assert.Equal(t, 2, sc.RedisDB)
	assert.Equal(t, "pw", sc.RedisPassword)
}

func TestLoadSettings_UnknownDriver(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("APICONFIG_TOKEN_STORAGE", "etcd")

	_, err := LoadSettings()
	require.Error(t, err)
	assert.ErrorIs(t, err, apiconfig.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "APICONFIG_TOKEN_STORAGE")
}

func TestValidate_RedisWithoutAddr(t *testing.T) {
	s := &Settings{TokenStorage: "redis"}
	err := s.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APICONFIG_REDIS_ADDR")
}

func TestLoadSettings_NegativeRedisDB(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("APICONFIG_REDIS_DB", "-1")

	_, err := LoadSettings()
	assert.ErrorIs(t, err, apiconfig.ErrInvalidConfig)
}

func TestLoadSettings_BadRedisDB(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("APICONFIG_REDIS_DB", "two")

	_, err := LoadSettings()
	assert.ErrorIs(t, err, apiconfig.ErrConfigLoad)
}

func TestSettingsEnvKeys(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"APICONFIG_ENVIRONMENT",
		"APICONFIG_LOG_LEVEL",
		"APICONFIG_TOKEN_STORAGE",
		"APICONFIG_TOKEN_STORAGE_PATH",
		"APICONFIG_TOKEN_STORAGE_SECRET",
		"APICONFIG_REDIS_ADDR",
		"APICONFIG_REDIS_PASSWORD",
		"APICONFIG_REDIS_DB",
		"APICONFIG_REDIS_PREFIX",
		"APICONFIG_CONFIG_FILE",
	}, SettingsEnvKeys())
}
