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
	telemetry.Register(telemetry.MetricTypeMemory,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewMemoryCollector(logger, config)
		})
}

// MemoryCollector reads memory and swap usage from /proc/meminfo.
//
// "Used" follows the free(1) definition: total minus available for memory,
// total minus free for swap.
type MemoryCollector struct {
	telemetry.BaseCollector
	meminfoPath string
}

func NewMemoryCollector(logger logr.Logger, config telemetry.CollectionConfig) (*MemoryCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &MemoryCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeMemory,
			"Memory Statistics Collector",
			logger,
			config,
			capabilities,
		),
		meminfoPath: filepath.Join(config.HostProcPath, "meminfo"),
	}, nil
}

func (c *MemoryCollector) Collect(ctx context.Context) (any, error) {
	return c.collectMemoryStats()
}

// collectMemoryStats parses /proc/meminfo. All values there are in kB.
//
// Line format: "MemTotal:       32794280 kB"
func (c *MemoryCollector) collectMemoryStats() (*telemetry.MemoryStats, error) {
	data, err := os.ReadFile(c.meminfoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.meminfoPath, err)
	}

	fields := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		v, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		fields[strings.TrimSpace(key)] = v * 1024 // kB to bytes
	}

	total, ok := fields["MemTotal"]
	if !ok {
		return nil, fmt.Errorf("no MemTotal in %s", c.meminfoPath)
	}

	stats := &telemetry.MemoryStats{
		MemTotal:     total,
		MemAvailable: fields["MemAvailable"],
		SwapTotal:    fields["SwapTotal"],
	}
	if stats.MemAvailable <= total {
		stats.MemUsed = total - stats.MemAvailable
	}
	if total > 0 {
		stats.MemPercent = float64(stats.MemUsed) / float64(total) * 100
	}

	swapFree := fields["SwapFree"]
	if swapFree <= stats.SwapTotal {
		stats.SwapUsed = stats.SwapTotal - swapFree
	}
	if stats.SwapTotal > 0 {
		stats.SwapPercent = float64(stats.SwapUsed) / float64(stats.SwapTotal) * 100
	}

	c.Logger().V(1).Info("collected memory statistics",
		"mem_percent", stats.MemPercent, "swap_percent", stats.SwapPercent)
	return stats, nil
}
