// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry/collectors"
)

func createTestSystemCollector(t *testing.T, procDir string, run telemetry.CommandRunner) *collectors.SystemCollector {
	t.Helper()
	config := telemetry.DefaultCollectionConfig()
	config.HostProcPath = procDir
	collector, err := collectors.NewSystemCollector(logr.Discard(), config)
	require.NoError(t, err)
	collector.SetRunner(run)
	return collector
}

func writeSystemProcTree(t *testing.T, procDir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "uptime"), []byte("3600.50 7200.00\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "loadavg"), []byte("1.50 0.80 0.40 2/345 6789\n"), 0644))

	// Two processes: one with 3 threads, one with 1.
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "123", "task", "123"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "123", "task", "124"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "123", "task", "125"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "456", "task", "456"), 0755))
	// Non-numeric entries are not processes.
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "sys"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(procDir, "driver"), 0755))
}

func TestSystemCollector_Collect(t *testing.T) {
	procDir := t.TempDir()
	writeSystemProcTree(t, procDir)

	collector := createTestSystemCollector(t, procDir, func(ctx context.Context, argv ...string) (string, error) {
		assert.Equal(t, []string{"who"}, argv)
		return "alice    tty1         2026-08-23 09:00\nbob      pts/0        2026-08-23 09:30 (10.0.0.2)\n", nil
	})

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)
	stats, ok := result.(*telemetry.SystemStats)
	require.True(t, ok)

	assert.Equal(t, time.Duration(3600.5*float64(time.Second)), stats.Uptime)
	assert.Equal(t, 1.50, stats.Load1Min)
	assert.Equal(t, int32(2), stats.Processes)
	assert.Equal(t, int32(4), stats.Threads)
	assert.Equal(t, int32(2), stats.Users)
}

func TestSystemCollector_NoLoggedInUsers(t *testing.T) {
	procDir := t.TempDir()
	writeSystemProcTree(t, procDir)

	collector := createTestSystemCollector(t, procDir, func(ctx context.Context, argv ...string) (string, error) {
		return "", nil
	})

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), result.(*telemetry.SystemStats).Users)
}

func TestSystemCollector_WhoFailureDegrades(t *testing.T) {
	procDir := t.TempDir()
	writeSystemProcTree(t, procDir)

	collector := createTestSystemCollector(t, procDir, func(ctx context.Context, argv ...string) (string, error) {
		return "", errors.New("who: not found")
	})

	result, err := collector.Collect(context.Background())
	require.NoError(t, err, "a missing who binary must not fail the tick")
	assert.Equal(t, int32(0), result.(*telemetry.SystemStats).Users)
}

func TestSystemCollector_MissingUptime(t *testing.T) {
	procDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "loadavg"), []byte("0.1 0.2 0.3 1/2 3\n"), 0644))

	collector := createTestSystemCollector(t, procDir, func(ctx context.Context, argv ...string) (string, error) {
		return "", nil
	})
	_, err := collector.Collect(context.Background())
	assert.Error(t, err)
}

func TestSystemCollector_MalformedLoadavg(t *testing.T) {
	procDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "uptime"), []byte("100.0 200.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(procDir, "loadavg"), []byte("not-a-load\n"), 0644))

	collector := createTestSystemCollector(t, procDir, func(ctx context.Context, argv ...string) (string, error) {
		return "", nil
	})
	_, err := collector.Collect(context.Background())
	assert.Error(t, err)
}
