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
	"strings"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/go-logr/logr"
)

func init() {
	telemetry.Register(telemetry.MetricTypeGPU,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewGPUCollector(logger, config)
		})
}

// Intel PMT telemetry layout for the Arc B-series: two little-endian u32
// temperature sensors at fixed byte offsets inside the telem blob.
const (
	pmtEdgeTempOffset    = 0xA4
	pmtHotspotTempOffset = 0xA8
	pmtTempWidth         = 4
)

// GPUCollector reads Intel Arc telemetry.
//
// Temperatures come from the PMT (Platform Monitoring Technology) binary
// telemetry region, a vendor memory blob read at fixed byte offsets rather
// than through a generic sensor API. Reading it requires elevated
// permissions, so the source is only attempted in privileged mode; without it
// both temperature gauges report unavailable, indistinguishable from a host
// with no PMT hardware (the kernel interface does not disambiguate).
//
// Frequency and VRAM come from DRM sysfs, fan speed from the card's hwmon
// directory. All of those work unprivileged.
type GPUCollector struct {
	telemetry.BaseCollector
	pmtPath    string
	drmPath    string
	privileged bool
}

func NewGPUCollector(logger logr.Logger, config telemetry.CollectionConfig) (*GPUCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostSysPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		RequiresPrivileged: true, // for the PMT region only; the rest degrades
		MinKernelVersion:   "6.2.0",
	}

	return &GPUCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeGPU,
			"Intel GPU Telemetry Collector",
			logger,
			config,
			capabilities,
		),
		pmtPath:    filepath.Join(config.HostSysPath, "class", "intel_pmt"),
		drmPath:    filepath.Join(config.HostSysPath, "class", "drm"),
		privileged: config.Privileged,
	}, nil
}

func (c *GPUCollector) Collect(ctx context.Context) (any, error) {
	stats := &telemetry.GPUStats{}

	if c.privileged {
		stats.EdgeTemp, stats.HotspotTemp = c.readPMTTemps()
	}

	if device := c.findCard(); device != "" {
		c.readFrequency(device, stats)
		c.readVRAM(device, stats)
		c.readFans(device, stats)
	}

	return stats, nil
}

// readPMTTemps scans the PMT telem endpoints for a blob carrying a plausible
// edge/hotspot pair. Both sensors must read strictly inside (0, 120)°C or the
// whole pair is rejected as noise.
func (c *GPUCollector) readPMTTemps() (edge, hotspot telemetry.GaugeValue) {
	edge, hotspot = telemetry.UnavailableGauge(), telemetry.UnavailableGauge()

	entries, err := os.ReadDir(c.pmtPath)
	if err != nil {
		c.Logger().V(2).Info("no PMT telemetry class", "path", c.pmtPath, "error", err.Error())
		return
	}

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "telem") {
			continue
		}
		blobPath := filepath.Join(c.pmtPath, entry.Name(), "telem")

		t1, err1 := telemetry.ReadBinaryAt(blobPath, pmtEdgeTempOffset, pmtTempWidth)
		t2, err2 := telemetry.ReadBinaryAt(blobPath, pmtHotspotTempOffset, pmtTempWidth)
		if err1 != nil || err2 != nil {
			continue
		}
		if t1 > 0 && t1 < 120 && t2 > 0 && t2 < 120 {
			return telemetry.Gauge(float64(t1)), telemetry.Gauge(float64(t2))
		}
		c.Logger().V(2).Info("rejecting implausible PMT temperatures",
			"endpoint", entry.Name(), "t1", t1, "t2", t2)
	}
	return
}

// findCard returns the device directory of the first DRM render card.
// Connector entries (card1-DP-1 and friends) are skipped.
func (c *GPUCollector) findCard() string {
	entries, err := os.ReadDir(c.drmPath)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "card") || strings.Contains(name, "-") {
			continue
		}
		device := filepath.Join(c.drmPath, name, "device")
		if _, err := os.Stat(device); err == nil {
			return device
		}
	}
	return ""
}

func (c *GPUCollector) readFrequency(device string, stats *telemetry.GPUStats) {
	freqDir := filepath.Join(device, "tile0", "gt0", "freq0")
	if cur, err := telemetry.ReadScalarFloat(filepath.Join(freqDir, "act_freq"), 0); err == nil {
		stats.FreqMHz = telemetry.Gauge(cur)
	}
	if max, err := telemetry.ReadScalarFloat(filepath.Join(freqDir, "max_freq"), 0); err == nil {
		stats.MaxFreqMHz = telemetry.Gauge(max)
	}
}

func (c *GPUCollector) readVRAM(device string, stats *telemetry.GPUStats) {
	if used, err := telemetry.ReadScalarFloat(filepath.Join(device, "mem_info_vram_used"), 0); err == nil {
		stats.VRAMUsed = telemetry.Gauge(used)
	}
	if total, err := telemetry.ReadScalarFloat(filepath.Join(device, "mem_info_vram_total"), 0); err == nil {
		stats.VRAMTotal = telemetry.Gauge(total)
	}
}

// readFans reports the fastest of the card's fans (fan1..fan3).
func (c *GPUCollector) readFans(device string, stats *telemetry.GPUStats) {
	hwmonDir := filepath.Join(device, "hwmon")
	entries, err := os.ReadDir(hwmonDir)
	if err != nil {
		return
	}
	var max float64
	found := false
	for _, entry := range entries {
		for i := 1; i <= 3; i++ {
			fanPath := filepath.Join(hwmonDir, entry.Name(), fmt.Sprintf("fan%d_input", i))
			if rpm, err := telemetry.ReadScalarFloat(fanPath, 0); err == nil {
				found = true
				if rpm > max {
					max = rpm
				}
			}
		}
	}
	if found {
		stats.FanRPM = telemetry.Gauge(max)
	}
}
