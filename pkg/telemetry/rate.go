// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import "time"

// CounterSample is a single observation of a monotonically-increasing kernel
// counter together with the instant it was taken.
type CounterSample struct {
	Value     uint64
	Timestamp time.Time
}

// RateSeries converts consecutive samples of one monotonic counter stream into
// a per-second rate. Each counter stream owns exactly one RateSeries; the state
// is mutated once per tick by the owning collector and is not safe for
// concurrent use.
type RateSeries struct {
	prev     CounterSample
	prevRate float64
	hasPrev  bool
}

// Update records a new counter observation and returns the derived per-second
// rate.
//
// Edge cases:
//   - the first sample of a stream yields rate 0
//   - a non-advancing clock (elapsed <= 0) yields the previously reported rate
//   - a counter reset or wraparound (value < previous) resynchronizes the
//     stream and yields rate 0, never a negative or absurdly large rate
func (r *RateSeries) Update(value uint64, now time.Time) float64 {
	if !r.hasPrev {
		r.prev = CounterSample{Value: value, Timestamp: now}
		r.hasPrev = true
		r.prevRate = 0
		return 0
	}

	elapsed := now.Sub(r.prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return r.prevRate
	}

	if value < r.prev.Value {
		// Counter reset (interface replaced, counters wrapped). Resync and
		// report no throughput for this tick.
		r.prev = CounterSample{Value: value, Timestamp: now}
		r.prevRate = 0
		return 0
	}

	rate := float64(value-r.prev.Value) / elapsed
	r.prev = CounterSample{Value: value, Timestamp: now}
	r.prevRate = rate
	return rate
}

// LastRate returns the most recently reported rate without updating state.
func (r *RateSeries) LastRate() float64 {
	return r.prevRate
}

// CPUTicks holds the idle and total tick counters for one CPU as read from a
// single /proc/stat snapshot.
type CPUTicks struct {
	Idle  uint64
	Total uint64
}

// CPUUsageTracker derives usage percentages from consecutive /proc/stat tick
// counter snapshots. Aggregate and per-core streams are tracked independently,
// keyed by CPU index (-1 for the aggregate "cpu" line).
type CPUUsageTracker struct {
	prev map[int32]CPUTicks
}

func NewCPUUsageTracker() *CPUUsageTracker {
	return &CPUUsageTracker{prev: make(map[int32]CPUTicks)}
}

// Update records the ticks for one CPU stream and returns its usage percentage
// since the previous snapshot, clamped to [0, 100]. The first observation of a
// stream yields 0. A non-advancing or reset total counter also yields 0 rather
// than dividing by zero.
func (t *CPUUsageTracker) Update(index int32, ticks CPUTicks) float64 {
	prev, ok := t.prev[index]
	t.prev[index] = ticks

	if !ok {
		return 0
	}
	if ticks.Total <= prev.Total || ticks.Idle < prev.Idle {
		return 0
	}

	dTotal := float64(ticks.Total - prev.Total)
	dIdle := float64(ticks.Idle - prev.Idle)

	usage := 100 * (1 - dIdle/dTotal)
	if usage < 0 {
		return 0
	}
	if usage > 100 {
		return 100
	}
	return usage
}
