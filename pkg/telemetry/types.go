// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"fmt"
	"path/filepath"
	"time"
)

// MetricType represents the type of telemetry metric
type MetricType string

const (
	MetricTypeCPU     MetricType = "cpu"
	MetricTypeThermal MetricType = "thermal"
	MetricTypeGPU     MetricType = "gpu"
	MetricTypeMemory  MetricType = "memory"
	MetricTypeDisk    MetricType = "disk"
	MetricTypeNetwork MetricType = "network"
	MetricTypeStorage MetricType = "storage"
	MetricTypeProcess MetricType = "process"
	MetricTypeSystem  MetricType = "system"
)

// CollectorStatus represents the operational status of a collector
type CollectorStatus string

const (
	CollectorStatusActive   CollectorStatus = "active"
	CollectorStatusDegraded CollectorStatus = "degraded"
	CollectorStatusFailed   CollectorStatus = "failed"
	CollectorStatusDisabled CollectorStatus = "disabled"
)

// CPUStats holds processor utilization and clock data derived from /proc/stat
// and /proc/cpuinfo. Aggregate and per-core usage are derived from the same
// /proc/stat snapshot so they cannot straddle a counter rollover.
type CPUStats struct {
	// Usage since the previous tick, percent of total time. 0 on first tick.
	UsagePercent float64
	// Per-core usage, indexed by core number.
	PerCoreUsage []float64
	// Average current frequency across cores from /proc/cpuinfo, in MHz.
	AvgFreqMHz GaugeValue
	// Core topology from /proc/cpuinfo.
	PhysicalCores int32
	LogicalCores  int32
}

// ThermalStats holds hwmon temperature gauges in °C.
type ThermalStats struct {
	CPUTemp  GaugeValue // package sensor (k10temp temp1_input)
	NVMeTemp GaugeValue // NVMe composite sensor
}

// GPUStats holds GPU telemetry. The temperature pair comes from the Intel PMT
// binary telemetry region and is only attempted in privileged mode; everything
// else comes from DRM sysfs and hwmon.
type GPUStats struct {
	EdgeTemp    GaugeValue // °C, PMT offset 0xA4
	HotspotTemp GaugeValue // °C, PMT offset 0xA8
	FreqMHz     GaugeValue // current frequency from DRM act_freq
	MaxFreqMHz  GaugeValue // maximum frequency from DRM max_freq
	VRAMUsed    GaugeValue // bytes
	VRAMTotal   GaugeValue // bytes
	FanRPM      GaugeValue // fastest fan, RPM
}

// MemoryStats holds memory and swap usage from /proc/meminfo, in bytes.
type MemoryStats struct {
	MemTotal     uint64
	MemAvailable uint64
	MemUsed      uint64
	MemPercent   float64
	SwapTotal    uint64
	SwapUsed     uint64
	SwapPercent  float64
}

// DiskIOStats holds NVMe throughput derived from /proc/diskstats sector
// counters (512 bytes per sector).
type DiskIOStats struct {
	ReadBytesPerSec  float64
	WriteBytesPerSec float64
}

// NetworkStats holds aggregate interface throughput derived from sysfs byte
// counters, plus wireless link quality.
type NetworkStats struct {
	RxBytesPerSec float64
	TxBytesPerSec float64
	// Link quality in percent from /proc/net/wireless; unavailable on wired-only
	// hosts.
	WifiQuality GaugeValue
}

// MountStats describes one mounted filesystem from df output.
type MountStats struct {
	Device      string
	Mount       string
	TotalBytes  uint64
	UsedBytes   uint64
	UsedPercent float64
}

// ProcessInfo is one row of the top-process listing from ps output.
type ProcessInfo struct {
	PID        int32
	Name       string
	CPUPercent float64
	MemPercent float64
}

// SystemStats holds system-wide activity data.
type SystemStats struct {
	Uptime    time.Duration // from /proc/uptime
	Load1Min  float64       // from /proc/loadavg
	Processes int32         // numeric entries under /proc
	Threads   int32         // sum of /proc/[pid]/task entries
	Users     int32         // logged-in sessions from `who`
}

// Metrics contains all collected telemetry for one tick. Nil pointers mean the
// collector failed or is disabled; the corresponding readings surface as
// OFFLINE.
type Metrics struct {
	CPU       *CPUStats
	Thermal   *ThermalStats
	GPU       *GPUStats
	Memory    *MemoryStats
	DiskIO    *DiskIOStats
	Network   *NetworkStats
	Storage   []MountStats
	Processes []ProcessInfo
	System    *SystemStats
}

// CollectorStat tracks one collector's outcome within a tick.
type CollectorStat struct {
	Status   CollectorStatus
	Duration time.Duration
	Error    error
}

// CollectionConfig represents configuration for telemetry collection
type CollectionConfig struct {
	// Interval between ticks. The reference cadence is 1s; the minimal
	// temperature-only setup runs at 2s.
	Interval time.Duration
	// EnabledCollectors gates individual collectors.
	EnabledCollectors map[MetricType]bool
	HostProcPath      string // Path to /proc (useful for containers)
	HostSysPath       string // Path to /sys (useful for containers)
	// TopProcessCount is the number of top processes to collect (by CPU usage).
	TopProcessCount int
	// CommandTimeout bounds external command invocations so a stuck subprocess
	// cannot stall the tick loop.
	CommandTimeout time.Duration
	// Privileged enables sources that need root, notably the PMT binary
	// telemetry region for GPU temperatures. When false those sources are not
	// attempted at all and their readings are OFFLINE.
	Privileged bool
}

// DefaultCollectionConfig returns a default configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		Interval: time.Second,
		EnabledCollectors: map[MetricType]bool{
			MetricTypeCPU:     true,
			MetricTypeThermal: true,
			MetricTypeGPU:     true,
			MetricTypeMemory:  true,
			MetricTypeDisk:    true,
			MetricTypeNetwork: true,
			MetricTypeStorage: true,
			MetricTypeProcess: true,
			MetricTypeSystem:  true,
		},
		HostProcPath:    "/proc",
		HostSysPath:     "/sys",
		TopProcessCount: 10,
		CommandTimeout:  3 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults
func (c *CollectionConfig) ApplyDefaults() {
	defaults := DefaultCollectionConfig()

	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.EnabledCollectors == nil {
		c.EnabledCollectors = defaults.EnabledCollectors
	}
	if c.HostProcPath == "" {
		c.HostProcPath = defaults.HostProcPath
	}
	if c.HostSysPath == "" {
		c.HostSysPath = defaults.HostSysPath
	}
	if c.TopProcessCount == 0 {
		c.TopProcessCount = defaults.TopProcessCount
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaults.CommandTimeout
	}
}

// ValidateOptions specifies validation requirements for CollectionConfig
type ValidateOptions struct {
	RequireHostProcPath bool
	RequireHostSysPath  bool
}

// Validate ensures that all configured paths are absolute paths and that
// required paths are non-empty.
func (c *CollectionConfig) Validate(opt ValidateOptions) error {
	if opt.RequireHostProcPath && c.HostProcPath == "" {
		return fmt.Errorf("HostProcPath is required but not provided")
	}
	if opt.RequireHostSysPath && c.HostSysPath == "" {
		return fmt.Errorf("HostSysPath is required but not provided")
	}

	if c.HostProcPath != "" && !filepath.IsAbs(c.HostProcPath) {
		return fmt.Errorf("HostProcPath must be an absolute path, got: %q", c.HostProcPath)
	}
	if c.HostSysPath != "" && !filepath.IsAbs(c.HostSysPath) {
		return fmt.Errorf("HostSysPath must be an absolute path, got: %q", c.HostSysPath)
	}
	return nil
}
