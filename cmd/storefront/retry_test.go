package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRetryWithBackoff(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name      string
		failures  int
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, retries: 3, wantCalls: 1},
		{name: "succeeds after failures", failures: 2, retries: 3, wantCalls: 3},
		{name: "gives up", failures: 5, retries: 3, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return errDown
				}
				return nil
			}, tt.retries, time.Millisecond, zaptest.NewLogger(t), "postgres")

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errDown)
				assert.Contains(t, err.Error(), "postgres failed after 3 attempts")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	}, 5, time.Hour, zaptest.NewLogger(t), "redis")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
