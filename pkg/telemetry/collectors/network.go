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
	telemetry.Register(telemetry.MetricTypeNetwork,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewNetworkCollector(logger, config)
		})
}

// NetworkCollector derives aggregate interface throughput from sysfs byte
// counters and wireless link quality from /proc/net/wireless.
//
// rx_bytes and tx_bytes are summed across physical interfaces and fed through
// one RateSeries per direction. Loopback, docker0, and veth* pairs are
// excluded so container-internal traffic does not inflate the host numbers.
// Summing before rating means an interface being replaced shows
// as a counter reset, which the RateSeries resynchronizes from.
type NetworkCollector struct {
	telemetry.BaseCollector
	sysClassNetPath string
	wirelessPath    string
	rxRate          *telemetry.RateSeries
	txRate          *telemetry.RateSeries
	now             func() time.Time
}

func NewNetworkCollector(logger logr.Logger, config telemetry.CollectionConfig) (*NetworkCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostProcPath: true, RequireHostSysPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &NetworkCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeNetwork,
			"Network Throughput Collector",
			logger,
			config,
			capabilities,
		),
		sysClassNetPath: filepath.Join(config.HostSysPath, "class", "net"),
		wirelessPath:    filepath.Join(config.HostProcPath, "net", "wireless"),
		rxRate:          &telemetry.RateSeries{},
		txRate:          &telemetry.RateSeries{},
		now:             time.Now,
	}, nil
}

func (c *NetworkCollector) Collect(ctx context.Context) (any, error) {
	rxTotal, txTotal, err := c.readCounters()
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &telemetry.NetworkStats{
		RxBytesPerSec: c.rxRate.Update(rxTotal, now),
		TxBytesPerSec: c.txRate.Update(txTotal, now),
		WifiQuality:   c.readWifiQuality(),
	}, nil
}

// skipInterface filters out virtual interfaces that would double count
// traffic already seen on the physical uplink.
func skipInterface(name string) bool {
	return name == "lo" || name == "docker0" || strings.HasPrefix(name, "veth")
}

func (c *NetworkCollector) readCounters() (rxTotal, txTotal uint64, err error) {
	entries, err := os.ReadDir(c.sysClassNetPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to enumerate %s: %w", c.sysClassNetPath, err)
	}

	for _, entry := range entries {
		if skipInterface(entry.Name()) {
			continue
		}
		statsDir := filepath.Join(c.sysClassNetPath, entry.Name(), "statistics")

		// Interfaces can disappear between the enumeration and the read;
		// missing counters are skipped, not fatal.
		if rx, err := telemetry.ReadScalar(filepath.Join(statsDir, "rx_bytes")); err == nil {
			rxTotal += rx
		}
		if tx, err := telemetry.ReadScalar(filepath.Join(statsDir, "tx_bytes")); err == nil {
			txTotal += tx
		}
	}
	return rxTotal, txTotal, nil
}

// readWifiQuality parses /proc/net/wireless for the first wl* interface.
//
// Format (after two header lines):
//
//	wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
//
// Field 3 is signal level in dBm; quality maps it onto [0, 100] as
// 2 × (signal + 100), the conventional WEXT approximation.
func (c *NetworkCollector) readWifiQuality() telemetry.GaugeValue {
	data, err := os.ReadFile(c.wirelessPath)
	if err != nil {
		return telemetry.UnavailableGauge()
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "wl") {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 4 {
			continue
		}
		signal, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			continue
		}
		quality := 2 * (signal + 100)
		if quality < 0 {
			quality = 0
		}
		if quality > 100 {
			quality = 100
		}
		return telemetry.Gauge(quality)
	}
	return telemetry.UnavailableGauge()
}
