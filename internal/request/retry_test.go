package request

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	timer := NewTimer()
	timer.now = func() time.Time { return now }

	if timer.Active() {
		t.Fatal("new timer should be idle")
	}

	since, attempt := timer.Mark()
	if since != 0 || attempt != 1 {
		t.Errorf("first Mark() = (%v, %d), want (0, 1)", since, attempt)
	}

	now = now.Add(5 * time.Second)
	since, attempt = timer.Mark()
	if since != 5*time.Second || attempt != 2 {
		t.Errorf("second Mark() = (%v, %d), want (5s, 2)", since, attempt)
	}

	timer.Retried()
	if timer.Failures() != 2 || timer.Retries() != 1 {
		t.Errorf("Failures() = %d, Retries() = %d, want 2 and 1", timer.Failures(), timer.Retries())
	}

	timer.Clear()
	if timer.Active() || timer.Failures() != 0 || timer.Retries() != 0 {
		t.Error("Clear() should reset the timer")
	}
}

func TestBackoff(t *testing.T) {
	svc := NewService()
	svc.RetryDelay = time.Second
	svc.MaxRetryDelay = 5 * time.Second

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := svc.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}

	svc.UseExponentialBackoff = false
	if got := svc.backoff(4); got != time.Second {
		t.Errorf("constant backoff(4) = %v, want 1s", got)
	}
}

func TestReAjax_CallsAgain(t *testing.T) {
	svc := newTestService()

	calls := 0
	err := svc.ReAjax(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("ReAjax() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if !svc.Timer().Active() {
		t.Error("timer should stay active until a success clears it")
	}
}

func TestReAjax_WindowExceeded(t *testing.T) {
	svc := newTestService()
	svc.RetryWindow = 10 * time.Second

	now := time.Now()
	svc.Timer().now = func() time.Time { return now }
	svc.Timer().Mark()
	now = now.Add(11 * time.Second)

	err := svc.ReAjax(context.Background(), func(context.Context) error {
		t.Error("fn should not be called after the window")
		return nil
	})

	if !errors.Is(err, ErrRetryWindowExceeded) {
		t.Fatalf("ReAjax() error = %v, want ErrRetryWindowExceeded", err)
	}
	if svc.Timer().Active() {
		t.Error("timer should be cleared after giving up")
	}
}

func TestReAjax_UnboundedWindow(t *testing.T) {
	svc := newTestService()
	svc.RetryWindow = 0

	now := time.Now()
	svc.Timer().now = func() time.Time { return now }
	svc.Timer().Mark()
	now = now.Add(24 * time.Hour)

	called := false
	err := svc.ReAjax(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("ReAjax() = %v, called = %v; zero window should always retry", err, called)
	}
}

func TestReAjax_Cancelled(t *testing.T) {
	svc := newTestService()
	svc.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := svc.ReAjax(ctx, func(context.Context) error {
		t.Error("fn should not be called after cancellation")
		return nil
	})
	if !IsCancelled(err) {
		t.Errorf("ReAjax() error = %v, want cancelled", err)
	}
	if svc.Timer().Active() {
		t.Error("cancellation should end the retry sequence")
	}
}

func TestReAjax_ClientErrorEndsSequence(t *testing.T) {
	svc := newTestService()

	err := svc.ReAjax(context.Background(), func(context.Context) error {
		return NewHTTPError(400, "http://backend/device-management/factory", "bad request")
	})
	if !IsHTTPError(err) {
		t.Fatalf("ReAjax() error = %v, want HTTP error", err)
	}
	if svc.Timer().Active() {
		t.Error("a non-retryable error should end the retry sequence")
	}
}

func TestWaitRetry_FreshSequenceAfterGivingUp(t *testing.T) {
	svc := newTestService()
	svc.RetryWindow = 10 * time.Second

	now := time.Now()
	svc.Timer().now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.RetryDelay = time.Hour
	if err := svc.WaitRetry(ctx); !IsCancelled(err) {
		t.Fatalf("WaitRetry() error = %v, want cancelled", err)
	}

	now = now.Add(time.Minute)
	svc.RetryDelay = time.Millisecond
	if err := svc.WaitRetry(context.Background()); err != nil {
		t.Fatalf("WaitRetry() after a cancelled sequence = %v, want a retry", err)
	}
}

func TestWaitRetry_ReportsRetriesIssued(t *testing.T) {
	svc := newTestService()
	svc.RetryWindow = 10 * time.Second

	now := time.Now()
	svc.Timer().now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := svc.WaitRetry(context.Background()); err != nil {
			t.Fatalf("WaitRetry() #%d error = %v", i+1, err)
		}
	}

	now = now.Add(11 * time.Second)
	err := svc.WaitRetry(context.Background())
	if !errors.Is(err, ErrRetryWindowExceeded) {
		t.Fatalf("WaitRetry() error = %v, want ErrRetryWindowExceeded", err)
	}
	if !strings.Contains(err.Error(), "after 2 retries") {
		t.Errorf("error = %q, want the 2 retries issued", err)
	}
}
