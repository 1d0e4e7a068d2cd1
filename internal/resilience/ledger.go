package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Error types recorded in the failure ledger.
const (
	ErrorTypeTransient = "transient"
	ErrorTypePermanent = "permanent"
)

// Failure is one item that could not be fetched during a run. It is not
// retried within the run; the next run picks it up again.
type Failure struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Key       string    `json:"key"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"`
	FailedAt  time.Time `json:"failed_at"`
}

// ClassifyError returns ErrorTypeTransient or ErrorTypePermanent.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// Ledger collects per-item failures of a run.
type Ledger struct {
	runID string

	mu       sync.Mutex
	failures []Failure
	now      func() time.Time
}

// NewLedger creates an empty ledger for runID.
func NewLedger(runID string) *Ledger {
	return &Ledger{runID: runID, now: time.Now}
}

// Record adds a failure for key.
func (l *Ledger) Record(stage, key string, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, Failure{
		ID:        uuid.NewString(),
		RunID:     l.runID,
		Stage:     stage,
		Key:       key,
		Error:     err.Error(),
		ErrorType: ClassifyError(err),
		FailedAt:  l.now().UTC(),
	})
}

// Len returns the number of recorded failures.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}

// Failures returns the failures ordered by stage then key.
func (l *Ledger) Failures() []Failure {
	l.mu.Lock()
	out := make([]Failure, len(l.failures))
	copy(out, l.failures)
	l.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Counts returns the number of failures per error type.
func (l *Ledger) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int, 2)
	for _, f := range l.failures {
		counts[f.ErrorType]++
	}
	return counts
}
