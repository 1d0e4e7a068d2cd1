package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failing(_ context.Context) (int, error) { return 0, errors.New("fail") }
func succeeding(_ context.Context) (int, error) { return 1, nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{Name: "tcgdex", FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, _ = Execute(context.Background(), cb, failing)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	_, err := Execute(context.Background(), cb, func(_ context.Context) (int, error) {
		t.Error("call should be rejected while open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 3})

	_, _ = Execute(context.Background(), cb, failing)
	_, _ = Execute(context.Background(), cb, failing)
	_, _ = Execute(context.Background(), cb, succeeding)
	_, _ = Execute(context.Background(), cb, failing)

	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_, _ = Execute(context.Background(), cb, failing)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	val, err := Execute(context.Background(), cb, succeeding)
	if err != nil || val != 1 {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_, _ = Execute(context.Background(), cb, failing)
	now = now.Add(2 * time.Second)
	_, _ = Execute(context.Background(), cb, failing)

	if cb.State() != CircuitOpen {
		t.Errorf("expected open after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_ShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	_, _ = Execute(context.Background(), cb, failing)
	if cb.State() != CircuitClosed {
		t.Errorf("permanent error should not trip, got %s", cb.State())
	}
}

func TestCircuitState_String(t *testing.T) {
	if CircuitClosed.String() != "closed" || CircuitOpen.String() != "open" ||
		CircuitHalfOpen.String() != "half-open" || CircuitState(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}

func TestCircuitFromSettings(t *testing.T) {
	cfg := CircuitFromSettings("tcgdex", 5, 10)
	if cfg.Name != "tcgdex" || cfg.FailureThreshold != 5 || cfg.ResetTimeout != 10*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}
