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
	"time"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/go-logr/logr"
)

func init() {
	telemetry.Register(telemetry.MetricTypeSystem,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewSystemCollector(logger, config)
		})
}

// SystemCollector reads system-wide activity: uptime and load average from
// procfs, process and thread counts from the /proc/[pid]/task directories,
// and the logged-in session count from `who`.
type SystemCollector struct {
	telemetry.BaseCollector
	procPath    string
	uptimePath  string
	loadavgPath string
	run         telemetry.CommandRunner
}

func NewSystemCollector(logger logr.Logger, config telemetry.CollectionConfig) (*SystemCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &SystemCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeSystem,
			"System Activity Collector",
			logger,
			config,
			capabilities,
		),
		procPath:    config.HostProcPath,
		uptimePath:  filepath.Join(config.HostProcPath, "uptime"),
		loadavgPath: filepath.Join(config.HostProcPath, "loadavg"),
		run:         telemetry.BoundedRunner(telemetry.RunCommand, config.CommandTimeout),
	}, nil
}

func (c *SystemCollector) Collect(ctx context.Context) (any, error) {
	stats := &telemetry.SystemStats{}

	// Read /proc/uptime
	// Format: uptime_seconds idle_seconds
	uptimeData, err := os.ReadFile(c.uptimePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.uptimePath, err)
	}
	uptimeFields := strings.Fields(string(uptimeData))
	if len(uptimeFields) < 1 {
		return nil, fmt.Errorf("unexpected format in %s", c.uptimePath)
	}
	uptimeSeconds, err := strconv.ParseFloat(uptimeFields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uptime: %w", err)
	}
	stats.Uptime = time.Duration(uptimeSeconds * float64(time.Second))

	// Read /proc/loadavg
	// Format: 0.00 0.01 0.05 1/234 5678
	loadavgData, err := os.ReadFile(c.loadavgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.loadavgPath, err)
	}
	loadFields := strings.Fields(string(loadavgData))
	if len(loadFields) < 1 {
		return nil, fmt.Errorf("unexpected format in %s", c.loadavgPath)
	}
	if stats.Load1Min, err = strconv.ParseFloat(loadFields[0], 64); err != nil {
		return nil, fmt.Errorf("failed to parse 1min load: %w", err)
	}

	stats.Processes, stats.Threads = c.countProcesses()
	stats.Users = c.countUsers(ctx)

	return stats, nil
}

// countProcesses walks the numeric /proc entries, summing each process's task
// directory for the thread count. Processes exiting mid-walk just drop out of
// the count.
func (c *SystemCollector) countProcesses() (procs, threads int32) {
	entries, err := os.ReadDir(c.procPath)
	if err != nil {
		c.Logger().V(1).Info("cannot enumerate processes", "path", c.procPath, "error", err.Error())
		return 0, 0
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(entry.Name(), 10, 32); err != nil {
			continue
		}
		procs++

		tasks, err := os.ReadDir(filepath.Join(c.procPath, entry.Name(), "task"))
		if err == nil {
			threads += int32(len(tasks))
		}
	}
	return procs, threads
}

// countUsers counts logged-in sessions, one per line of `who` output.
func (c *SystemCollector) countUsers(ctx context.Context) int32 {
	out, err := c.run(ctx, "who")
	if err != nil {
		c.Logger().V(2).Info("who failed", "error", err.Error())
		return 0
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return 0
	}
	return int32(len(strings.Split(out, "\n")))
}
