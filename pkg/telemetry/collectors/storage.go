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
	telemetry.Register(telemetry.MetricTypeStorage,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewStorageCollector(logger, config)
		})
}

// dfCommand lists mounted filesystems in bytes, excluding the pseudo
// filesystems that only clutter a capacity panel.
var dfCommand = []string{"df", "-B1", "-x", "tmpfs", "-x", "devtmpfs", "-x", "squashfs", "-x", "overlay"}

// StorageCollector reads per-mount capacity from df output. Filesystem usage
// has no stable procfs counterpart that accounts for reserved blocks the way
// df does, so this stays a command-output source.
type StorageCollector struct {
	telemetry.BaseCollector
	run telemetry.CommandRunner
}

func NewStorageCollector(logger logr.Logger, config telemetry.CollectionConfig) (*StorageCollector, error) {
	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &StorageCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeStorage,
			"Filesystem Capacity Collector",
			logger,
			config,
			capabilities,
		),
		run: telemetry.BoundedRunner(telemetry.RunCommand, config.CommandTimeout),
	}, nil
}

func (c *StorageCollector) Collect(ctx context.Context) (any, error) {
	out, err := c.run(ctx, dfCommand...)
	if err != nil {
		return nil, err
	}
	return c.parseDF(out), nil
}

// parseDF parses df -B1 output, skipping the header and deduplicating by
// mount point (bind mounts repeat the same filesystem).
//
//	Filesystem      1B-blocks         Used    Available Use% Mounted on
//	/dev/nvme0n1p2  501874008064 218729480192 257568776192  46% /
func (c *StorageCollector) parseDF(out string) []telemetry.MountStats {
	var mounts []telemetry.MountStats
	seen := make(map[string]bool)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		mount := fields[5]
		if seen[mount] {
			continue
		}

		total, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			c.Logger().V(2).Info("skipping unparseable df line", "line", line)
			continue
		}
		used, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[4], "%"), 64)
		if err != nil {
			continue
		}

		seen[mount] = true
		device := fields[0]
		if idx := strings.LastIndexByte(device, '/'); idx >= 0 {
			device = device[idx+1:]
		}
		mounts = append(mounts, telemetry.MountStats{
			Device:      device,
			Mount:       mount,
			TotalBytes:  total,
			UsedBytes:   used,
			UsedPercent: percent,
		})
	}
	return mounts
}
