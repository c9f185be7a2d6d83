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

func TestTempGauge(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		wantValid bool
	}{
		{"typical reading", 45.0, true},
		{"lower bound", 0.0, true},
		{"upper bound", 120.0, true},
		{"implausibly hot sensor glitch", 130.0, false},
		{"negative from uninitialized register", -5.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := telemetry.TempGauge(tt.value)
			assert.Equal(t, tt.wantValid, g.Valid)
			if tt.wantValid {
				assert.Equal(t, tt.value, g.Value)
			}
		})
	}
}

func TestBoundedGauge(t *testing.T) {
	g := telemetry.BoundedGauge(50, 0, 100)
	assert.True(t, g.Valid)
	assert.Equal(t, 50.0, g.Value)

	assert.False(t, telemetry.BoundedGauge(101, 0, 100).Valid)
	assert.False(t, telemetry.BoundedGauge(-1, 0, 100).Valid)
}

func TestUnavailableGauge(t *testing.T) {
	g := telemetry.UnavailableGauge()
	assert.False(t, g.Valid)
	assert.Equal(t, 0.0, g.Value)
}
