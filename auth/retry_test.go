package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alexjbarnes/apiconfig"
)

func fastBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
}

func TestRefreshWithRetry_RetriesTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)

	transient := apiconfig.Errorf(apiconfig.ErrTokenRefreshNetwork, "connection reset")
	want := &TokenRefreshResult{TokenData: TokenData{AccessToken: "ok"}}
	gomock.InOrder(
		m.EXPECT().Refresh(gomock.Any()).Return(nil, transient),
		m.EXPECT().Refresh(gomock.Any()).Return(nil, transient),
		m.EXPECT().Refresh(gomock.Any()).Return(want, nil),
	)

	got, err := RefreshWithRetry(context.Background(), m, fastBackOff())
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestRefreshWithRetry_PermanentStopsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)

	rejected := apiconfig.Errorf(apiconfig.ErrTokenRefresh, "refresh: %w",
		apiconfig.Errorf(apiconfig.ErrInvalidCredentials, "401"))
	m.EXPECT().Refresh(gomock.Any()).Return(nil, rejected).Times(1)

	_, err := RefreshWithRetry(context.Background(), m, fastBackOff())
	assert.ErrorIs(t, err, apiconfig.ErrInvalidCredentials)
}

func TestRefreshWithRetry_GivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)

	timeout := apiconfig.Errorf(apiconfig.ErrTokenRefreshTimeout, "slow")
	m.EXPECT().Refresh(gomock.Any()).Return(nil, timeout).Times(4)

	_, err := RefreshWithRetry(context.Background(), m, fastBackOff())
	assert.ErrorIs(t, err, apiconfig.ErrTokenRefreshTimeout)
}

func TestRefreshWithRetry_NotRefreshable(t *testing.T) {
	s, err := NewBasicAuth("u", "p")
	require.NoError(t, err)

	_, err = RefreshWithRetry(context.Background(), s, nil)
	assert.ErrorIs(t, err, apiconfig.ErrRefreshNotSupported)
}

func TestRefreshWithRetry_NilResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockStrategy(ctrl)
	m.EXPECT().CanRefresh().Return(true)
	m.EXPECT().Refresh(gomock.Any()).Return(nil, nil)

	_, err := RefreshWithRetry(context.Background(), m, fastBackOff())
	assert.ErrorIs(t, err, apiconfig.ErrTokenRefresh)
}

func TestDefaultBackOff(t *testing.T) {
	b := DefaultBackOff()
	for range defaultRefreshRetries {
		assert.NotEqual(t, backoff.Stop, b.NextBackOff())
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
