// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"math"
	"time"
)

// Reading names are the renderer-facing metric identifiers. Each one maps to a
// gauge or rate the renderer draws as a dial, bar, or graph.
const (
	ReadingCPUUsage   = "cpu.usage"
	ReadingCPUTemp    = "cpu.temp"
	ReadingNVMeTemp   = "nvme.temp"
	ReadingGPUTemp    = "gpu.temp"
	ReadingGPUHotspot = "gpu.hotspot"
	ReadingMemUsed    = "memory.used"
	ReadingSwapUsed   = "swap.used"
	ReadingDiskRead   = "disk.read"
	ReadingDiskWrite  = "disk.write"
	ReadingNetRx      = "net.rx"
	ReadingNetTx      = "net.tx"
	ReadingWifi       = "wifi.signal"
)

// Reading is the renderer contract for one metric: latest value (or
// unavailable), severity band, and a history snapshot for trend rendering.
type Reading struct {
	Value   GaugeValue
	Band    SeverityBand
	History []float64
}

// TelemetryFrame is the per-tick aggregate handed to the renderer. It is
// assembled completely before publication and never mutated afterwards; no
// frame outlives its consumption, and nothing is persisted across restarts.
type TelemetryFrame struct {
	Timestamp     time.Time
	Hostname      string
	KernelVersion string
	// Duration of the whole sampling pass.
	Duration time.Duration
	// Typed panel payloads.
	Stats Metrics
	// Flattened per-metric readings for gauge/graph rendering.
	Readings map[string]Reading
	// Per-collector outcome for this tick.
	CollectorStats map[MetricType]CollectorStat
}

// unbounded disables severity classification for throughput-style readings:
// any valid rate is nominal, only source loss shows as OFFLINE.
var unbounded = Thresholds{Low: math.Inf(1), High: math.Inf(1)}

// DefaultThresholds is the built-in severity table, overridable from the
// thresholds config file. Temperature pairs follow the sensors they describe:
// the GPU hotspot sensor runs hotter than the edge sensor before it matters.
func DefaultThresholds() map[string]Thresholds {
	return map[string]Thresholds{
		ReadingCPUUsage:   {Low: 70, High: 90},
		ReadingCPUTemp:    {Low: 55, High: 75},
		ReadingNVMeTemp:   {Low: 55, High: 75},
		ReadingGPUTemp:    {Low: 55, High: 80},
		ReadingGPUHotspot: {Low: 60, High: 85},
		ReadingMemUsed:    {Low: 75, High: 90},
		ReadingSwapUsed:   {Low: 50, High: 80},
		ReadingDiskRead:   unbounded,
		ReadingDiskWrite:  unbounded,
		ReadingNetRx:      unbounded,
		ReadingNetTx:      unbounded,
		ReadingWifi:       unbounded,
	}
}

// readingSpec is one row of the declarative reading table: how to pull a
// renderer-facing value out of the typed tick metrics.
type readingSpec struct {
	name    string
	extract func(m *Metrics) GaugeValue
}

func gaugeFromRate(ok bool, v float64) GaugeValue {
	if !ok {
		return UnavailableGauge()
	}
	return Gauge(v)
}

// readingTable defines every renderer-facing reading in a fixed order. The
// five generations of the original dashboards each hardcoded this wiring in
// per-panel update methods; here it is data.
var readingTable = []readingSpec{
	{ReadingCPUUsage, func(m *Metrics) GaugeValue {
		return gaugeFromRate(m.CPU != nil, safeCPUUsage(m.CPU))
	}},
	{ReadingCPUTemp, func(m *Metrics) GaugeValue {
		if m.Thermal == nil {
			return UnavailableGauge()
		}
		return m.Thermal.CPUTemp
	}},
	{ReadingNVMeTemp, func(m *Metrics) GaugeValue {
		if m.Thermal == nil {
			return UnavailableGauge()
		}
		return m.Thermal.NVMeTemp
	}},
	{ReadingGPUTemp, func(m *Metrics) GaugeValue {
		if m.GPU == nil {
			return UnavailableGauge()
		}
		return m.GPU.EdgeTemp
	}},
	{ReadingGPUHotspot, func(m *Metrics) GaugeValue {
		if m.GPU == nil {
			return UnavailableGauge()
		}
		return m.GPU.HotspotTemp
	}},
	{ReadingMemUsed, func(m *Metrics) GaugeValue {
		if m.Memory == nil {
			return UnavailableGauge()
		}
		return Gauge(m.Memory.MemPercent)
	}},
	{ReadingSwapUsed, func(m *Metrics) GaugeValue {
		if m.Memory == nil {
			return UnavailableGauge()
		}
		return Gauge(m.Memory.SwapPercent)
	}},
	{ReadingDiskRead, func(m *Metrics) GaugeValue {
		return gaugeFromRate(m.DiskIO != nil, safeDiskRead(m.DiskIO))
	}},
	{ReadingDiskWrite, func(m *Metrics) GaugeValue {
		return gaugeFromRate(m.DiskIO != nil, safeDiskWrite(m.DiskIO))
	}},
	{ReadingNetRx, func(m *Metrics) GaugeValue {
		return gaugeFromRate(m.Network != nil, safeNetRx(m.Network))
	}},
	{ReadingNetTx, func(m *Metrics) GaugeValue {
		return gaugeFromRate(m.Network != nil, safeNetTx(m.Network))
	}},
	{ReadingWifi, func(m *Metrics) GaugeValue {
		if m.Network == nil {
			return UnavailableGauge()
		}
		return m.Network.WifiQuality
	}},
}

func safeCPUUsage(s *CPUStats) float64 {
	if s == nil {
		return 0
	}
	return s.UsagePercent
}

func safeDiskRead(s *DiskIOStats) float64 {
	if s == nil {
		return 0
	}
	return s.ReadBytesPerSec
}

func safeDiskWrite(s *DiskIOStats) float64 {
	if s == nil {
		return 0
	}
	return s.WriteBytesPerSec
}

func safeNetRx(s *NetworkStats) float64 {
	if s == nil {
		return 0
	}
	return s.RxBytesPerSec
}

func safeNetTx(s *NetworkStats) float64 {
	if s == nil {
		return 0
	}
	return s.TxBytesPerSec
}
