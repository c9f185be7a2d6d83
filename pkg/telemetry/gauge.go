// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

// GaugeValue is a directly-sampled instantaneous reading such as a temperature
// or a percentage. A sensor that is absent, unreadable, or returning implausible
// data yields an invalid GaugeValue rather than a sentinel number, so a missing
// sensor can never render as a false reading.
type GaugeValue struct {
	Value float64
	Valid bool
}

// Gauge returns a valid GaugeValue.
func Gauge(v float64) GaugeValue {
	return GaugeValue{Value: v, Valid: true}
}

// UnavailableGauge returns the explicit "no data" variant.
func UnavailableGauge() GaugeValue {
	return GaugeValue{}
}

// BoundedGauge returns a valid GaugeValue only if v lies within [min, max].
// Values outside the plausibility window are treated as sensor noise and
// reported as unavailable.
func BoundedGauge(v, min, max float64) GaugeValue {
	if v < min || v > max {
		return GaugeValue{}
	}
	return GaugeValue{Value: v, Valid: true}
}

// Plausibility bounds for temperature sensors in °C. Raw readings outside this
// window are rejected as noise.
const (
	MinPlausibleTemp = 0.0
	MaxPlausibleTemp = 120.0
)

// TempGauge applies the temperature plausibility window to a raw reading.
func TempGauge(v float64) GaugeValue {
	return BoundedGauge(v, MinPlausibleTemp, MaxPlausibleTemp)
}
