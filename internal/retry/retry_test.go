package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e *statusErr) StatusCode() int { return e.status }

type rateLimitedErr struct{}

func (rateLimitedErr) Error() string     { return "rate_limited" }
func (rateLimitedErr) RateLimited() bool { return true }

// recordingSleeper records requested delays instead of waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testPolicy(rec *recordingSleeper) Policy {
	p := DefaultPolicy()
	p.Sleep = rec.sleep
	return p
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{10, 10 * time.Second},
		{64, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	rec := &recordingSleeper{}
	calls := 0
	got, err := Do(context.Background(), testPolicy(rec), func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", &statusErr{status: 429}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Do() = %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestDo_NonRetryablePropagatesImmediately(t *testing.T) {
	rec := &recordingSleeper{}
	orig := &statusErr{status: 400}
	calls := 0
	_, err := Do(context.Background(), testPolicy(rec), func(ctx context.Context) (int, error) {
		calls++
		return 0, orig
	})
	if err != orig {
		t.Errorf("Do() error = %v, want original error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("delays = %v, want none", rec.delays)
	}
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	rec := &recordingSleeper{}
	calls := 0
	var last error
	_, err := Do(context.Background(), testPolicy(rec), func(ctx context.Context) (int, error) {
		calls++
		last = &statusErr{status: 500 + calls}
		return 0, last
	})
	if err != last {
		t.Errorf("Do() error = %v, want last error %v", err, last)
	}
	if calls != DefaultMaxAttempts {
		t.Errorf("calls = %d, want %d", calls, DefaultMaxAttempts)
	}
	if len(rec.delays) != DefaultMaxAttempts-1 {
		t.Errorf("delays = %v, want %d", rec.delays, DefaultMaxAttempts-1)
	}
}

func TestDo_PlainErrorIsNotRetried(t *testing.T) {
	rec := &recordingSleeper{}
	calls := 0
	_, err := Do(context.Background(), testPolicy(rec), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("Do() expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultPolicy()
	orig := &statusErr{status: 503}
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 0, orig
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, orig) {
		t.Errorf("Do() error = %v, want it to wrap the last failure", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &statusErr{status: 429}, true},
		{"500", &statusErr{status: 500}, true},
		{"503 wrapped", fmt.Errorf("query: %w", &statusErr{status: 503}), true},
		{"599", &statusErr{status: 599}, true},
		{"400", &statusErr{status: 400}, false},
		{"404", &statusErr{status: 404}, false},
		{"rate limit marker", rateLimitedErr{}, true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
