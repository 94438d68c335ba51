package request

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
)

// WaitRetry decides whether a failed call may be issued again. The first
// failure of a sequence starts the shared timer. Once more than RetryWindow
// has passed since then, WaitRetry returns ErrRetryWindowExceeded; otherwise
// it waits for the backoff delay and returns nil. The timer is cleared
// whenever WaitRetry returns an error, so the next call starts a fresh
// sequence.
func (s *Service) WaitRetry(ctx context.Context) error {
	timer := s.Timer()
	since, failures := timer.Mark()

	if s.RetryWindow > 0 && since > s.RetryWindow {
		retries := timer.Retries()
		s.ClearRequestTime()
		logging.Error("Giving up after retry window",
			zap.Duration("window", s.RetryWindow),
			zap.Int("retries", retries),
		)
		return fmt.Errorf("%w after %d retries (%s)", ErrRetryWindowExceeded, retries, since.Round(time.Millisecond))
	}

	delay := s.backoff(failures)
	logging.LogRetry(failures, delay, since)

	if err := sleep(ctx, delay); err != nil {
		s.ClearRequestTime()
		return ClassifyNetworkError(err, "")
	}
	timer.Retried()
	return nil
}

// ReAjax re-issues a failed call: it waits as WaitRetry does and then
// returns fn's result. An error from fn ends the retry sequence.
func (s *Service) ReAjax(ctx context.Context, fn func(context.Context) error) error {
	if err := s.WaitRetry(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		s.ClearRequestTime()
		return err
	}
	return nil
}

// backoff returns the delay before retry attempt (1-based)
func (s *Service) backoff(attempt int) time.Duration {
	delay := s.RetryDelay
	if delay <= 0 {
		return 0
	}
	if !s.UseExponentialBackoff {
		return delay
	}

	maxDelay := s.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}
	for i := 1; i < attempt; i++ {
		if delay >= maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
