package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alexjbarnes/apiconfig"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock pinned to t that can be advanced.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStrategies_ImplementInterface(t *testing.T) {
	var _ Strategy = (*BasicAuth)(nil)
	var _ Strategy = (*BearerAuth)(nil)
	var _ Strategy = (*APIKeyAuth)(nil)
	var _ Strategy = (*CustomAuth)(nil)
	var _ Strategy = (*TripletexSessionAuth)(nil)
	var _ Strategy = (*OAuth2Auth)(nil)
}

func TestNoRefreshDefaults(t *testing.T) {
	s, err := NewBasicAuth("user", "pass")
	require.NoError(t, err)

	assert.False(t, s.CanRefresh())
	assert.False(t, s.IsExpired())
	assert.Nil(t, s.RefreshCallback())

	params, err := s.PrepareRequestParams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, params)

	res, err := s.Refresh(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apiconfig.ErrRefreshNotSupported)
	assert.ErrorIs(t, err, apiconfig.ErrAuthStrategy)
}

func TestRefreshCallback_NilWhenNotRefreshable(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(false)

	assert.Nil(t, refreshCallback(m))
}

func TestRefreshCallback_InvokesRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)
	m.EXPECT().Refresh(gomock.Any()).Return(&TokenRefreshResult{TokenData: TokenData{AccessToken: "new"}}, nil)

	cb := refreshCallback(m)
	require.NotNil(t, cb)
	assert.NoError(t, cb(context.Background()))
}

func TestRefreshCallback_PropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	boom := apiconfig.Errorf(apiconfig.ErrTokenRefreshNetwork, "dial failed")
	m.EXPECT().CanRefresh().Return(true)
	m.EXPECT().Refresh(gomock.Any()).Return(nil, boom)

	err := refreshCallback(m)(context.Background())
	assert.True(t, errors.Is(err, boom))
}

func TestRefreshCallback_NilResultIsRefreshError(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)
	m.EXPECT().Refresh(gomock.Any()).Return(nil, nil)

	err := refreshCallback(m)(context.Background())
	assert.ErrorIs(t, err, apiconfig.ErrTokenRefresh)
}

func TestTokenData_ExpiresAt(t *testing.T) {
	obtained := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d := TokenData{AccessToken: "t", ExpiresIn: 3600, ObtainedAt: obtained}
	assert.Equal(t, obtained.Add(time.Hour), d.ExpiresAt())

	assert.True(t, TokenData{AccessToken: "t", ExpiresIn: 3600}.ExpiresAt().IsZero())
	assert.True(t, TokenData{AccessToken: "t", ObtainedAt: obtained}.ExpiresAt().IsZero())
}

func TestRefreshError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, apiconfig.ErrTokenRefreshTimeout},
		{"malformed", errMalformedResponse, apiconfig.ErrTokenRefreshJSON},
		{"generic", errors.New("nope"), apiconfig.ErrTokenRefresh},
		{"credentials", apiconfig.Errorf(apiconfig.ErrInvalidCredentials, "401"), apiconfig.ErrTokenRefresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := refreshError("test", tt.err)
			assert.Equal(t, tt.want, apiconfig.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRequireCredential(t *testing.T) {
	assert.NoError(t, requireCredential("s", "f", "value"))
	for _, v := range []string{"", " ", "\t\n"} {
		err := requireCredential("s", "f", v)
		assert.ErrorIs(t, err, apiconfig.ErrMissingCredentials)
		assert.ErrorIs(t, err, apiconfig.ErrAuthStrategy)
	}
}
