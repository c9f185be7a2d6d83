// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gerritbandison/system-command-center/internal/config"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

const validThresholdsYAML = `cpu.temp:
  low: 60
  high: 85
memory.used:
  low: 80
  high: 95
`

func writeThresholdsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestThresholdsLoader_InitialLoad(t *testing.T) {
	path := writeThresholdsFile(t, validThresholdsYAML)

	var got map[string]telemetry.Thresholds
	loader, err := config.NewThresholdsLoader(path, logr.Discard(), func(m map[string]telemetry.Thresholds) {
		got = m
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, loader.Close())
	}()

	// Overrides applied over defaults.
	require.NotNil(t, got, "onUpdate must fire synchronously at construction")
	assert.Equal(t, telemetry.Thresholds{Low: 60, High: 85}, got[telemetry.ReadingCPUTemp])
	assert.Equal(t, telemetry.Thresholds{Low: 80, High: 95}, got[telemetry.ReadingMemUsed])

	// Everything the file omits keeps its default.
	defaults := telemetry.DefaultThresholds()
	assert.Equal(t, defaults[telemetry.ReadingSwapUsed], got[telemetry.ReadingSwapUsed])
}

func TestThresholdsLoader_AbsentFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")

	var got map[string]telemetry.Thresholds
	loader, err := config.NewThresholdsLoader(path, logr.Discard(), func(m map[string]telemetry.Thresholds) {
		got = m
	})
	require.NoError(t, err, "missing file is not an error; defaults apply until it appears")
	defer func() {
		require.NoError(t, loader.Close())
	}()

	assert.Equal(t, telemetry.DefaultThresholds(), got)
}

func TestThresholdsLoader_InvalidYAML(t *testing.T) {
	path := writeThresholdsFile(t, "cpu.temp: [not a mapping\n")
	_, err := config.NewThresholdsLoader(path, logr.Discard(), nil)
	assert.Error(t, err)
}

func TestThresholdsLoader_LowAboveHighRejected(t *testing.T) {
	path := writeThresholdsFile(t, "cpu.temp:\n  low: 90\n  high: 50\n")
	_, err := config.NewThresholdsLoader(path, logr.Discard(), nil)
	assert.Error(t, err)
}

func TestThresholdsLoader_UnknownReadingIgnored(t *testing.T) {
	path := writeThresholdsFile(t, "bogus.metric:\n  low: 1\n  high: 2\n")

	loader, err := config.NewThresholdsLoader(path, logr.Discard(), nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, loader.Close())
	}()

	_, leaked := loader.Current()["bogus.metric"]
	assert.False(t, leaked)
}

func TestThresholdsLoader_CurrentReturnsCopy(t *testing.T) {
	path := writeThresholdsFile(t, validThresholdsYAML)

	loader, err := config.NewThresholdsLoader(path, logr.Discard(), nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, loader.Close())
	}()

	first := loader.Current()
	first[telemetry.ReadingCPUTemp] = telemetry.Thresholds{Low: 1, High: 2}
	assert.NotEqual(t, first[telemetry.ReadingCPUTemp], loader.Current()[telemetry.ReadingCPUTemp])
}
