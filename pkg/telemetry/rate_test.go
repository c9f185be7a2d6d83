// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

func TestRateSeries_FirstSample(t *testing.T) {
	var r telemetry.RateSeries
	rate := r.Update(1000, time.Now())
	assert.Equal(t, 0.0, rate, "first sample of a stream must yield rate 0")
	assert.Equal(t, 0.0, r.LastRate())
}

func TestRateSeries_SteadyRate(t *testing.T) {
	var r telemetry.RateSeries
	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	r.Update(1000, base)
	// 2 MiB transferred over 2 seconds is exactly 1 MiB/s.
	rate := r.Update(1000+2*1024*1024, base.Add(2*time.Second))
	assert.Equal(t, float64(1024*1024), rate)
	assert.Equal(t, float64(1024*1024), r.LastRate())
}

func TestRateSeries_NonAdvancingClock(t *testing.T) {
	var r telemetry.RateSeries
	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	r.Update(1000, base)
	r.Update(2000, base.Add(time.Second)) // 1000/s

	tests := []struct {
		name string
		at   time.Time
	}{
		{"same timestamp", base.Add(time.Second)},
		{"clock stepped backwards", base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := r.Update(3000, tt.at)
			assert.Equal(t, 1000.0, rate, "elapsed <= 0 must report the previous rate")
		})
	}
}

func TestRateSeries_CounterReset(t *testing.T) {
	var r telemetry.RateSeries
	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	r.Update(5000, base)
	r.Update(6000, base.Add(time.Second))

	// Counter went backwards (wrap or device replaced): resync, rate 0.
	rate := r.Update(100, base.Add(2*time.Second))
	assert.Equal(t, 0.0, rate)

	// The stream continues cleanly from the resynced baseline.
	rate = r.Update(600, base.Add(3*time.Second))
	assert.Equal(t, 500.0, rate)
}

func TestCPUUsageTracker_FirstSnapshot(t *testing.T) {
	tracker := telemetry.NewCPUUsageTracker()
	usage := tracker.Update(-1, telemetry.CPUTicks{Idle: 1000, Total: 2000})
	assert.Equal(t, 0.0, usage)
}

func TestCPUUsageTracker_Usage(t *testing.T) {
	tracker := telemetry.NewCPUUsageTracker()
	tracker.Update(-1, telemetry.CPUTicks{Idle: 1000, Total: 2000})

	// 500 total ticks elapsed, 400 idle: 20% busy.
	usage := tracker.Update(-1, telemetry.CPUTicks{Idle: 1400, Total: 2500})
	assert.InDelta(t, 20.0, usage, 1e-9)
}

func TestCPUUsageTracker_IndependentStreams(t *testing.T) {
	tracker := telemetry.NewCPUUsageTracker()
	tracker.Update(-1, telemetry.CPUTicks{Idle: 1000, Total: 2000})

	// First observation of core 0 yields 0 even though the aggregate stream is
	// already primed.
	usage := tracker.Update(0, telemetry.CPUTicks{Idle: 500, Total: 1000})
	assert.Equal(t, 0.0, usage)

	usage = tracker.Update(0, telemetry.CPUTicks{Idle: 500, Total: 1100})
	assert.InDelta(t, 100.0, usage, 1e-9)
}

func TestCPUUsageTracker_ResetAndClamp(t *testing.T) {
	tests := []struct {
		name  string
		first telemetry.CPUTicks
		next  telemetry.CPUTicks
		want  float64
	}{
		{
			name:  "total not advancing",
			first: telemetry.CPUTicks{Idle: 100, Total: 200},
			next:  telemetry.CPUTicks{Idle: 100, Total: 200},
			want:  0,
		},
		{
			name:  "counter reset",
			first: telemetry.CPUTicks{Idle: 1000, Total: 2000},
			next:  telemetry.CPUTicks{Idle: 10, Total: 20},
			want:  0,
		},
		{
			name:  "fully busy clamps to 100",
			first: telemetry.CPUTicks{Idle: 100, Total: 200},
			next:  telemetry.CPUTicks{Idle: 100, Total: 700},
			want:  100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := telemetry.NewCPUUsageTracker()
			tracker.Update(-1, tt.first)
			assert.Equal(t, tt.want, tracker.Update(-1, tt.next))
		})
	}
}
