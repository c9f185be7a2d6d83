// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"github.com/Gerritbandison/system-command-center/pkg/telemetry/ringbuffer"
)

// DefaultHistoryCapacity is the rolling window length for trend rendering:
// 60 samples, a one-minute trailing window at the default 1 Hz cadence.
const DefaultHistoryCapacity = 60

// HistoryBuffer is a fixed-length rolling window of one metric series, oldest
// first, used only for visual trend rendering. It is pre-filled with zeros so
// its length is always exactly its capacity.
//
// Unavailable samples must not be pushed: the buffer keeps the last valid
// trend instead of recording a false zero.
type HistoryBuffer struct {
	rb *ringbuffer.RingBuffer[float64]
}

// NewHistoryBuffer creates a zero-filled buffer. Capacities <= 0 fall back to
// DefaultHistoryCapacity.
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	rb, _ := ringbuffer.New[float64](capacity)
	for i := 0; i < capacity; i++ {
		rb.Push(0)
	}
	return &HistoryBuffer{rb: rb}
}

// Push appends a sample, evicting the oldest.
func (h *HistoryBuffer) Push(v float64) {
	h.rb.Push(v)
}

// Snapshot returns a copy of the window, oldest first. Its length always
// equals the buffer capacity, and repeated calls without an intervening Push
// return identical sequences.
func (h *HistoryBuffer) Snapshot() []float64 {
	return h.rb.Snapshot()
}

// Capacity returns the fixed window length.
func (h *HistoryBuffer) Capacity() int {
	return h.rb.Cap()
}
