package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-services/internal/common/config"
	"storefront-services/internal/common/errors"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), "deploy", func(context.Context) error {
		calls++
		if calls < 2 {
			return stderrors.New("rpc error: code = Unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_MapsErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
		calls    int
	}{
		{name: "permanent not found", err: stderrors.New("process not found"), wantCode: "RESOURCE_NOT_FOUND", calls: 1},
		{name: "exhausted timeout", err: stderrors.New("context deadline exceeded"), wantCode: "TIMEOUT_ERROR", calls: 3},
		{name: "exhausted unavailable", err: stderrors.New("unavailable"), wantCode: "EXTERNAL_SERVICE_ERROR", calls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastRetry(), "publish", func(context.Context) error {
				calls++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, tt.calls, calls)
			stdErr := errors.AsStandardError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Contains(t, stdErr.Details+stdErr.Message, "publish")
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	err := Retry(ctx, rc, "publish", func(context.Context) error {
		return stderrors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 5000})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.Equal(t, 5*time.Second, cc.ConnectionTimeout)
	assert.True(t, cc.UsePlaintextConnection)
}
