// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

// SeverityBand classifies a metric value against its thresholds. It drives
// alerting and color-coding in the renderer.
type SeverityBand string

const (
	SeverityNominal  SeverityBand = "nominal"
	SeverityElevated SeverityBand = "elevated"
	SeverityCritical SeverityBand = "critical"
	// SeverityOffline means the underlying source is unavailable, independent
	// of thresholds.
	SeverityOffline SeverityBand = "offline"
)

// Thresholds holds the per-metric classification boundaries. Values below Low
// are nominal, values in [Low, High) are elevated, and values at or above High
// are critical.
type Thresholds struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Classify maps a gauge reading to a severity band. An invalid gauge is always
// OFFLINE regardless of thresholds.
func Classify(v GaugeValue, t Thresholds) SeverityBand {
	if !v.Valid {
		return SeverityOffline
	}
	switch {
	case v.Value < t.Low:
		return SeverityNominal
	case v.Value < t.High:
		return SeverityElevated
	default:
		return SeverityCritical
	}
}
