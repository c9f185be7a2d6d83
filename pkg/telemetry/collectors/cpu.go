// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/go-logr/logr"
)

func init() {
	telemetry.Register(telemetry.MetricTypeCPU,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewCPUCollector(logger, config)
		})
}

// CPUCollector derives processor utilization from /proc/stat tick counters
// and clock/topology data from /proc/cpuinfo.
//
// Aggregate and per-core usage are both derived from a single /proc/stat read
// so the two can never straddle a counter rollover: one snapshot, both
// derivations.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#proc-stat
type CPUCollector struct {
	telemetry.BaseCollector
	statPath    string
	cpuinfoPath string
	usage       *telemetry.CPUUsageTracker
}

func NewCPUCollector(logger logr.Logger, config telemetry.CollectionConfig) (*CPUCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0", // /proc/stat has been around forever
	}

	return &CPUCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeCPU,
			"CPU Usage Collector",
			logger,
			config,
			capabilities,
		),
		statPath:    filepath.Join(config.HostProcPath, "stat"),
		cpuinfoPath: filepath.Join(config.HostProcPath, "cpuinfo"),
		usage:       telemetry.NewCPUUsageTracker(),
	}, nil
}

func (c *CPUCollector) Collect(ctx context.Context) (any, error) {
	stats, err := c.collectUsage()
	if err != nil {
		return nil, err
	}
	// cpuinfo is best-effort; frequency and topology gaps degrade gracefully.
	c.collectCPUInfo(stats)
	return stats, nil
}

// collectUsage reads /proc/stat once and feeds both the aggregate "cpu" line
// and every "cpuN" line through the usage tracker.
//
// Line format: cpu user nice system idle iowait irq softirq [steal guest guest_nice]
func (c *CPUCollector) collectUsage() (*telemetry.CPUStats, error) {
	data, err := os.ReadFile(c.statPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.statPath, err)
	}

	stats := &telemetry.CPUStats{}
	sawAggregate := false

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		name := fields[0]
		var index int32 = -1
		if name != "cpu" {
			num, err := strconv.ParseInt(strings.TrimPrefix(name, "cpu"), 10, 32)
			if err != nil {
				// "cpufreq" etc.
				continue
			}
			index = int32(num)
		}

		ticks, ok := parseTicks(fields[1:])
		if !ok {
			c.Logger().V(2).Info("skipping unparseable cpu line", "line", line)
			continue
		}

		usage := c.usage.Update(index, ticks)
		if index == -1 {
			stats.UsagePercent = usage
			sawAggregate = true
		} else {
			for int32(len(stats.PerCoreUsage)) <= index {
				stats.PerCoreUsage = append(stats.PerCoreUsage, 0)
			}
			stats.PerCoreUsage[index] = usage
		}
	}

	if !sawAggregate {
		return nil, fmt.Errorf("no aggregate cpu line found in %s", c.statPath)
	}
	return stats, nil
}

// parseTicks sums all tick fields for the total and picks field 4 (idle).
func parseTicks(fields []string) (telemetry.CPUTicks, bool) {
	var ticks telemetry.CPUTicks
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return telemetry.CPUTicks{}, false
		}
		ticks.Total += v
		if i == 3 {
			ticks.Idle = v
		}
	}
	return ticks, true
}

// collectCPUInfo parses /proc/cpuinfo for the average current frequency and
// the physical/logical core counts.
func (c *CPUCollector) collectCPUInfo(stats *telemetry.CPUStats) {
	data, err := os.ReadFile(c.cpuinfoPath)
	if err != nil {
		c.Logger().V(1).Info("failed to read cpuinfo", "path", c.cpuinfoPath, "error", err.Error())
		return
	}

	var freqSum float64
	var freqCount int
	var logical int32
	var physical int32

	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "processor":
			logical++
		case "cpu MHz":
			if mhz, err := strconv.ParseFloat(value, 64); err == nil {
				freqSum += mhz
				freqCount++
			}
		case "cpu cores":
			if physical == 0 {
				if cores, err := strconv.ParseInt(value, 10, 32); err == nil {
					physical = int32(cores)
				}
			}
		}
	}

	stats.LogicalCores = logical
	if physical == 0 && logical > 0 {
		physical = logical / 2
	}
	stats.PhysicalCores = physical
	if freqCount > 0 {
		stats.AvgFreqMHz = telemetry.Gauge(freqSum / float64(freqCount))
	}
}
