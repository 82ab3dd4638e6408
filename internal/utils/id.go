package utils

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequence hands out process-unique, monotonically increasing identifiers starting at 1.
// The zero value is ready to use. Values are never reused.
type Sequence struct {
	last atomic.Uint64
}

// Next returns the next identifier.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// NewTraceID returns a random identifier used to correlate log lines and audit rows
// across process restarts, where connection ids start over.
func NewTraceID() string {
	return uuid.NewString()
}
