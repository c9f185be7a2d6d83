// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"strconv"
	"strings"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/go-logr/logr"
)

func init() {
	telemetry.Register(telemetry.MetricTypeProcess,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewProcessCollector(logger, config)
		})
}

var psCommand = []string{"ps", "aux", "--sort=-%cpu"}

// maxCommandNameLen truncates process names for the fixed-width listing.
const maxCommandNameLen = 22

// ProcessCollector reads the top processes by CPU from ps output. ps already
// owns the per-process CPU accounting the listing needs; re-deriving it from
// /proc/[pid]/stat would duplicate its bookkeeping for no gain. The
// subprocess is timeout-bounded like every command source, so a wedged ps
// cannot stall the tick.
type ProcessCollector struct {
	telemetry.BaseCollector
	topCount int
	run      telemetry.CommandRunner
}

func NewProcessCollector(logger logr.Logger, config telemetry.CollectionConfig) (*ProcessCollector, error) {
	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &ProcessCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeProcess,
			"Top Process Collector",
			logger,
			config,
			capabilities,
		),
		topCount: config.TopProcessCount,
		run:      telemetry.BoundedRunner(telemetry.RunCommand, config.CommandTimeout),
	}, nil
}

func (c *ProcessCollector) Collect(ctx context.Context) (any, error) {
	out, err := c.run(ctx, psCommand...)
	if err != nil {
		return nil, err
	}
	return c.parsePS(out), nil
}

// parsePS parses `ps aux` rows sorted by CPU descending and keeps the top N.
//
//	USER  PID %CPU %MEM    VSZ   RSS TTY STAT START TIME COMMAND
//	root  1234 12.5  0.8 123456 7890 ?   Ssl  10:01 1:23 /usr/bin/foo --bar
func (c *ProcessCollector) parsePS(out string) []telemetry.ProcessInfo {
	var procs []telemetry.ProcessInfo

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		if len(procs) >= c.topCount {
			break
		}

		// Split into at most 11 columns so the command keeps its arguments.
		fields := strings.Fields(line)
		if len(fields) < 11 {
			continue
		}

		pid, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			continue
		}
		cpu, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		mem, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			continue
		}

		procs = append(procs, telemetry.ProcessInfo{
			PID:        int32(pid),
			Name:       commandName(fields[10]),
			CPUPercent: cpu,
			MemPercent: mem,
		})
	}
	return procs
}

// commandName reduces an executable path to a display name: basename only,
// truncated to the listing width.
func commandName(command string) string {
	if idx := strings.LastIndexByte(command, '/'); idx >= 0 {
		command = command[idx+1:]
	}
	if len(command) > maxCommandNameLen {
		command = command[:maxCommandNameLen]
	}
	return command
}
