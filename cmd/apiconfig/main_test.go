package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alexjbarnes/apiconfig/auth"
	"github.com/alexjbarnes/apiconfig/config"
	"github.com/alexjbarnes/apiconfig/internal/logging"
	"github.com/alexjbarnes/apiconfig/storage"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out))
	assert.Equal(t, Version+"\n", out.String())
}

func TestRun_NoCommand(t *testing.T) {
	assert.Error(t, run(nil, &bytes.Buffer{}))
}

func TestRun_ShowOmitsSettings(t *testing.T) {
	for _, key := range config.SettingsEnvKeys() {
		t.Setenv(key, "")
	}
	t.Setenv("APICONFIG_TOKEN_STORAGE", "memory")
	t.Setenv("APICONFIG_TOKEN_STORAGE_SECRET", "storage-secret-value")
	t.Setenv("APICONFIG_REDIS_PASSWORD", "redis-password-value")
	t.Setenv("APICONFIG_HOSTNAME", "https://api.example.com")
	t.Setenv("APICONFIG_PAGE_SIZE", "50")

	var out bytes.Buffer
	require.NoError(t, run([]string{"show"}, &out))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "https://api.example.com", got["base_url"])
	assert.Equal(t, map[string]any{"page_size": float64(50)}, got["extra"])
	assert.NotContains(t, out.String(), "storage-secret-value")
	assert.NotContains(t, out.String(), "redis-password-value")
	assert.NotContains(t, out.String(), "token_storage")
}

func TestParseShowFlags(t *testing.T) {
	f, err := parseShowFlags("show", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", f.format)

	f, err = parseShowFlags("show", []string{"-format", "yaml", "-auth", "fiken"})
	require.NoError(t, err)
	assert.Equal(t, "yaml", f.format)
	assert.Equal(t, "fiken", f.auth)

	_, err = parseShowFlags("show", []string{"-format", "toml"})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	v := map[string]any{"base_url": "https://api.fiken.no/v2", "retries": 3}

	var js bytes.Buffer
	require.NoError(t, render(&js, "json", v))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, "https://api.fiken.no/v2", fromJSON["base_url"])

	var ym bytes.Buffer
	require.NoError(t, render(&ym, "yaml", v))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, 3, fromYAML["retries"])
}

func TestPresetStrategy(t *testing.T) {
	t.Setenv("FIKEN_ACCESS_TOKEN", "tok")
	s, err := presetStrategy("fiken", logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &auth.BearerAuth{}, s)

	_, err = presetStrategy("unknown", logging.Discard())
	assert.Error(t, err)
}

// tokenServer answers Tripletex session creation requests.
func tokenServer(t *testing.T, calls *atomic.Int32) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodPut || !strings.HasSuffix(r.URL.Path, "/token/session/:create") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":{"token":"session-abc"}}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("TRIPLETEX_TEST_CONSUMER_TOKEN", "consumer")
	t.Setenv("TRIPLETEX_TEST_EMPLOYEE_TOKEN", "employee")
	t.Setenv("TRIPLETEX_HOSTNAME", srv.URL)
}

func TestTripletexToken_FetchesAndStores(t *testing.T) {
	var calls atomic.Int32
	tokenServer(t, &calls)
	store := storage.NewMemory()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, tripletexToken(ctx, store, "tt", false, logging.Discard(), &out, http.DefaultClient))
	assert.Equal(t, "session-abc\n", out.String())
	assert.Equal(t, int32(1), calls.Load())

	stored, err := store.Load(ctx, "tt")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "session-abc", stored.AccessToken)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), stored.ExpiresAt(), time.Minute)
}

func TestTripletexToken_ReusesStored(t *testing.T) {
	var calls atomic.Int32
	tokenServer(t, &calls)
	store := storage.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tt", auth.TokenData{
		AccessToken: "stored-token",
		ExpiresIn:   3600,
		ObtainedAt:  time.Now(),
	}))

	var out bytes.Buffer
	require.NoError(t, tripletexToken(ctx, store, "tt", false, logging.Discard(), &out, http.DefaultClient))
	assert.Equal(t, "stored-token\n", out.String())
	assert.Equal(t, int32(0), calls.Load())
}

func TestTripletexToken_RefetchesExpiredOrForced(t *testing.T) {
	var calls atomic.Int32
	tokenServer(t, &calls)
	store := storage.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tt", auth.TokenData{
		AccessToken: "nearly-expired",
		ExpiresIn:   60,
		ObtainedAt:  time.Now(),
	}))

	var out bytes.Buffer
	require.NoError(t, tripletexToken(ctx, store, "tt", false, logging.Discard(), &out, http.DefaultClient))
	assert.Equal(t, "session-abc\n", out.String())

	out.Reset()
	require.NoError(t, tripletexToken(ctx, store, "tt", true, logging.Discard(), &out, http.DefaultClient))
	assert.Equal(t, "session-abc\n", out.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestTripletexToken_MissingCredentials(t *testing.T) {
	t.Setenv("TRIPLETEX_TEST_CONSUMER_TOKEN", "")
	t.Setenv("TRIPLETEX_TEST_EMPLOYEE_TOKEN", "")

	err := tripletexToken(context.Background(), storage.NewMemory(), "tt", false, logging.Discard(), &bytes.Buffer{}, http.DefaultClient)
	assert.Error(t, err)
}
