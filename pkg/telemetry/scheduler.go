// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// collectionOrder is the fixed order collectors run in within a tick.
// Correctness does not depend on ordering across independent metrics, but a
// fixed order keeps tick timings comparable.
var collectionOrder = []MetricType{
	MetricTypeCPU,
	MetricTypeThermal,
	MetricTypeGPU,
	MetricTypeMemory,
	MetricTypeDisk,
	MetricTypeNetwork,
	MetricTypeStorage,
	MetricTypeProcess,
	MetricTypeSystem,
}

// TickScheduler drives the sampling cadence: on each tick it invokes every
// collector synchronously in a fixed order, assembles a TelemetryFrame, and
// publishes it to the frame bus.
//
// Scheduling is cooperative and single-threaded: one goroutine executes the
// whole sampling pass to completion before the next tick is considered, so no
// collector's rate state is ever visible mid-update. A collector failure
// degrades its metrics to OFFLINE; a panic escaping the pass is caught and
// logged, and the next tick still runs. The scheduler never stops ticking
// because of one bad read.
type TickScheduler struct {
	logger     logr.Logger
	config     CollectionConfig
	bus        *FrameBus
	collectors []Collector
	histories  map[string]*HistoryBuffer

	// thresholds may be swapped at runtime by the config watcher.
	mu         sync.RWMutex
	thresholds map[string]Thresholds

	hostname      string
	kernelVersion string
}

// NewTickScheduler instantiates every enabled registered collector in the
// fixed collection order and prepares zero-filled history buffers.
func NewTickScheduler(logger logr.Logger, config CollectionConfig, bus *FrameBus) (*TickScheduler, error) {
	config.ApplyDefaults()
	if err := config.Validate(ValidateOptions{RequireHostProcPath: true, RequireHostSysPath: true}); err != nil {
		return nil, err
	}

	schedLogger := logger.WithName("scheduler")

	var collectors []Collector
	for _, metricType := range collectionOrder {
		if !config.EnabledCollectors[metricType] {
			schedLogger.V(1).Info("collector disabled", "metric_type", metricType)
			continue
		}
		factory, err := GetCollector(metricType)
		if err != nil {
			schedLogger.V(1).Info("collector not registered", "metric_type", metricType)
			continue
		}
		collector, err := factory(schedLogger, config)
		if err != nil {
			schedLogger.Error(err, "failed to create collector", "metric_type", metricType)
			continue
		}
		collectors = append(collectors, collector)
	}
	if len(collectors) == 0 {
		return nil, fmt.Errorf("no collectors could be created")
	}

	hostname, _ := os.Hostname()

	s := &TickScheduler{
		logger:        schedLogger,
		config:        config,
		bus:           bus,
		collectors:    collectors,
		histories:     make(map[string]*HistoryBuffer, len(readingTable)),
		thresholds:    DefaultThresholds(),
		hostname:      hostname,
		kernelVersion: kernelRelease(),
	}
	for _, spec := range readingTable {
		s.histories[spec.name] = NewHistoryBuffer(DefaultHistoryCapacity)
	}
	return s, nil
}

// SetThresholds replaces the severity table. Unknown reading names are
// ignored; missing entries keep their previous thresholds.
func (s *TickScheduler) SetThresholds(overrides map[string]Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Replace, never mutate: a sampling pass may still hold the old table.
	next := make(map[string]Thresholds, len(s.thresholds))
	for name, t := range s.thresholds {
		next[name] = t
	}
	for name, t := range overrides {
		if _, known := next[name]; known {
			next[name] = t
		} else {
			s.logger.V(1).Info("ignoring thresholds for unknown reading", "reading", name)
		}
	}
	s.thresholds = next
}

// Run ticks until ctx is cancelled. The first sampling pass happens
// immediately so rate streams are primed before the renderer sees a frame.
func (s *TickScheduler) Run(ctx context.Context) error {
	s.logger.Info("starting tick scheduler",
		"interval", s.config.Interval, "collectors", len(s.collectors))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tick scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one guarded sampling pass and publishes the resulting frame.
func (s *TickScheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			// A tick-level failure is diagnostic only; the next tick is still
			// scheduled.
			s.logger.Error(fmt.Errorf("panic: %v", r), "sampling pass failed")
		}
	}()

	frame := s.Sample(ctx)
	if s.bus != nil {
		if err := s.bus.Publish(frame); err != nil {
			s.logger.Error(err, "failed to publish frame")
		}
	}
}

// Sample executes one full sampling pass and assembles the TelemetryFrame.
// A single collector's failure never aborts the pass: its stats stay nil and
// its readings classify as OFFLINE.
func (s *TickScheduler) Sample(ctx context.Context) *TelemetryFrame {
	started := time.Now()
	metrics := Metrics{}
	collectorStats := make(map[MetricType]CollectorStat, len(s.collectors))

	for _, collector := range s.collectors {
		collectorStart := time.Now()
		data, err := collector.Collect(ctx)
		stat := CollectorStat{
			Status:   CollectorStatusActive,
			Duration: time.Since(collectorStart),
		}
		if err != nil {
			stat.Status = CollectorStatusFailed
			stat.Error = err
			s.logger.V(1).Info("collector failed this tick",
				"metric_type", collector.Type(), "error", err.Error())
		} else {
			s.store(&metrics, collector.Type(), data)
		}
		collectorStats[collector.Type()] = stat
	}

	frame := &TelemetryFrame{
		Timestamp:      started,
		Hostname:       s.hostname,
		KernelVersion:  s.kernelVersion,
		Stats:          metrics,
		Readings:       s.assembleReadings(&metrics),
		CollectorStats: collectorStats,
	}
	frame.Duration = time.Since(started)
	return frame
}

// store routes a collector's typed result into the tick metrics.
func (s *TickScheduler) store(m *Metrics, metricType MetricType, data any) {
	ok := true
	switch metricType {
	case MetricTypeCPU:
		m.CPU, ok = data.(*CPUStats)
	case MetricTypeThermal:
		m.Thermal, ok = data.(*ThermalStats)
	case MetricTypeGPU:
		m.GPU, ok = data.(*GPUStats)
	case MetricTypeMemory:
		m.Memory, ok = data.(*MemoryStats)
	case MetricTypeDisk:
		m.DiskIO, ok = data.(*DiskIOStats)
	case MetricTypeNetwork:
		m.Network, ok = data.(*NetworkStats)
	case MetricTypeStorage:
		m.Storage, ok = data.([]MountStats)
	case MetricTypeProcess:
		m.Processes, ok = data.([]ProcessInfo)
	case MetricTypeSystem:
		m.System, ok = data.(*SystemStats)
	default:
		ok = false
	}
	if !ok {
		s.logger.Error(fmt.Errorf("unexpected data type %T", data),
			"collector returned wrong type", "metric_type", metricType)
	}
}

// assembleReadings walks the declarative reading table: classify each value,
// push valid samples into history, and snapshot the window. Unavailable
// samples are not pushed, so a dead sensor keeps its last valid trend instead
// of flatlining to a false zero.
func (s *TickScheduler) assembleReadings(m *Metrics) map[string]Reading {
	s.mu.RLock()
	thresholds := s.thresholds
	s.mu.RUnlock()

	readings := make(map[string]Reading, len(readingTable))
	for _, spec := range readingTable {
		value := spec.extract(m)
		history := s.histories[spec.name]
		if value.Valid {
			history.Push(value.Value)
		}
		readings[spec.name] = Reading{
			Value:   value,
			Band:    Classify(value, thresholds[spec.name]),
			History: history.Snapshot(),
		}
	}
	return readings
}
