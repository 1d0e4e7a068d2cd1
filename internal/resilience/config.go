package resilience

import "time"

// PolicyFromSettings builds a RetryPolicy from config values. Zero values
// keep the defaults; maxRetries counts retries, not attempts.
func PolicyFromSettings(maxRetries, initialBackoffMs, maxBackoffMs int) RetryPolicy {
	p := DefaultRetryPolicy()
	if maxRetries >= 0 {
		p.MaxAttempts = maxRetries + 1
	}
	if initialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	return p
}

// CircuitFromSettings builds a CircuitConfig from config values.
func CircuitFromSettings(name string, failureThreshold, resetTimeoutSecs int) CircuitConfig {
	cfg := CircuitConfig{Name: name}
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
