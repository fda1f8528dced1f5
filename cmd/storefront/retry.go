package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay
// after each failure. It gives up early when ctx is cancelled.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s abandoned after %d attempts: %w", operationName, i+1, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
