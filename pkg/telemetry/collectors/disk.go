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
	telemetry.Register(telemetry.MetricTypeDisk,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewDiskCollector(logger, config)
		})
}

// sectorSize converts /proc/diskstats sector counters to bytes. The kernel
// reports diskstats sectors in 512-byte units regardless of the device's
// logical block size.
const sectorSize = 512

// DiskCollector derives NVMe read/write throughput from /proc/diskstats
// sector counters.
//
// Sectors read (field 6) and written (field 10) are summed across nvme*
// devices and fed through one RateSeries per direction. Partitions
// (nvme0n1p1) are excluded so I/O is not double counted.
//
// Reference: https://www.kernel.org/doc/html/latest/admin-guide/iostats.html
type DiskCollector struct {
	telemetry.BaseCollector
	diskstatsPath string
	readRate      *telemetry.RateSeries
	writeRate     *telemetry.RateSeries
	now           func() time.Time
}

func NewDiskCollector(logger logr.Logger, config telemetry.CollectionConfig) (*DiskCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &DiskCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeDisk,
			"Disk I/O Collector",
			logger,
			config,
			capabilities,
		),
		diskstatsPath: filepath.Join(config.HostProcPath, "diskstats"),
		readRate:      &telemetry.RateSeries{},
		writeRate:     &telemetry.RateSeries{},
		now:           time.Now,
	}, nil
}

func (c *DiskCollector) Collect(ctx context.Context) (any, error) {
	readBytes, writeBytes, err := c.readCounters()
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &telemetry.DiskIOStats{
		ReadBytesPerSec:  c.readRate.Update(readBytes, now),
		WriteBytesPerSec: c.writeRate.Update(writeBytes, now),
	}, nil
}

// readCounters sums sector counters across whole NVMe devices and converts to
// bytes.
//
// /proc/diskstats fields: major minor device reads reads_merged sectors_read
// read_ms writes writes_merged sectors_written ...
func (c *DiskCollector) readCounters() (readBytes, writeBytes uint64, err error) {
	data, err := os.ReadFile(c.diskstatsPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read %s: %w", c.diskstatsPath, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 14 {
			continue
		}
		device := fields[2]
		if !strings.HasPrefix(device, "nvme") || isPartition(device) {
			continue
		}

		if sectors, err := strconv.ParseUint(fields[5], 10, 64); err == nil {
			readBytes += sectors * sectorSize
		}
		if sectors, err := strconv.ParseUint(fields[9], 10, 64); err == nil {
			writeBytes += sectors * sectorSize
		}
	}
	return readBytes, writeBytes, nil
}

// isPartition reports whether an nvme device name refers to a partition
// (nvme0n1p2) rather than a whole namespace (nvme0n1).
func isPartition(device string) bool {
	return strings.ContainsRune(strings.TrimPrefix(device, "nvme"), 'p')
}
