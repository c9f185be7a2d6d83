// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

func TestClassify(t *testing.T) {
	thresholds := telemetry.Thresholds{Low: 55, High: 75}

	tests := []struct {
		name  string
		value telemetry.GaugeValue
		want  telemetry.SeverityBand
	}{
		{"well below low", telemetry.Gauge(40), telemetry.SeverityNominal},
		{"just below low", telemetry.Gauge(54.9), telemetry.SeverityNominal},
		{"exactly low", telemetry.Gauge(55), telemetry.SeverityElevated},
		{"between bounds", telemetry.Gauge(65), telemetry.SeverityElevated},
		{"just below high", telemetry.Gauge(74.9), telemetry.SeverityElevated},
		{"exactly high", telemetry.Gauge(75), telemetry.SeverityCritical},
		{"above high", telemetry.Gauge(90), telemetry.SeverityCritical},
		{"unavailable", telemetry.UnavailableGauge(), telemetry.SeverityOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, telemetry.Classify(tt.value, thresholds))
		})
	}
}

func TestClassify_UnboundedRates(t *testing.T) {
	// Throughput readings carry infinite thresholds: any valid value is
	// nominal, only source loss is OFFLINE.
	thresholds := telemetry.DefaultThresholds()[telemetry.ReadingDiskRead]

	assert.Equal(t, telemetry.SeverityNominal,
		telemetry.Classify(telemetry.Gauge(1e12), thresholds))
	assert.Equal(t, telemetry.SeverityOffline,
		telemetry.Classify(telemetry.UnavailableGauge(), thresholds))
}

func TestDefaultThresholds_CoversEveryReading(t *testing.T) {
	defaults := telemetry.DefaultThresholds()
	for _, name := range []string{
		telemetry.ReadingCPUUsage,
		telemetry.ReadingCPUTemp,
		telemetry.ReadingNVMeTemp,
		telemetry.ReadingGPUTemp,
		telemetry.ReadingGPUHotspot,
		telemetry.ReadingMemUsed,
		telemetry.ReadingSwapUsed,
		telemetry.ReadingDiskRead,
		telemetry.ReadingDiskWrite,
		telemetry.ReadingNetRx,
		telemetry.ReadingNetTx,
		telemetry.ReadingWifi,
	} {
		_, ok := defaults[name]
		assert.True(t, ok, "missing default thresholds for %s", name)
	}
}
