// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Gerritbandison/system-command-center/internal/config"
	"github.com/Gerritbandison/system-command-center/internal/consumers/debug"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry/capabilities"
	_ "github.com/Gerritbandison/system-command-center/pkg/telemetry/collectors"
)

var (
	setupLog logr.Logger

	// CLI Options (alphabetical order)
	commandTimeout    time.Duration
	disableCollectors string
	hostProcPath      string
	hostSysPath       string
	interval          time.Duration
	thresholdsPath    string
	topProcesses      int
	verbosity         int
)

func init() {
	flag.DurationVar(&commandTimeout, "command-timeout", 3*time.Second,
		"Timeout for external command sources (ps, df, who)")
	flag.StringVar(&disableCollectors, "disable-collectors", "",
		"Comma-separated list of collectors to disable (e.g. 'gpu,storage')")
	flag.StringVar(&hostProcPath, "host-proc", "/proc",
		"Path to the host's proc filesystem")
	flag.StringVar(&hostSysPath, "host-sys", "/sys",
		"Path to the host's sys filesystem")
	flag.DurationVar(&interval, "interval", time.Second,
		"Sampling interval between ticks")
	flag.StringVar(&thresholdsPath, "thresholds", "",
		"Path to a YAML file overriding severity thresholds. Watched for changes; empty disables")
	flag.IntVar(&topProcesses, "top-processes", 10,
		"Number of top processes (by CPU) to report per tick")
	flag.IntVar(&verbosity, "v", 0,
		"Log verbosity (0=info, 1=debug, 2=trace)")
	flag.Parse()

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zapLog, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	setupLog = zapr.NewLogger(zapLog).WithName("setup")
}

func buildConfig(logger logr.Logger) telemetry.CollectionConfig {
	cfg := telemetry.DefaultCollectionConfig()
	cfg.Interval = interval
	cfg.HostProcPath = hostProcPath
	cfg.HostSysPath = hostSysPath
	cfg.TopProcessCount = topProcesses
	cfg.CommandTimeout = commandTimeout

	for _, name := range strings.Split(disableCollectors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		metricType := telemetry.MetricType(name)
		if _, enabled := cfg.EnabledCollectors[metricType]; !enabled {
			logger.Info("ignoring unknown collector in -disable-collectors", "name", name)
			continue
		}
		cfg.EnabledCollectors[metricType] = false
	}

	privileged, reason := capabilities.HasPrivilegedAccess()
	cfg.Privileged = privileged
	if !privileged {
		logger.Info("privileged telemetry sources disabled", "reason", reason)
	}

	return cfg
}

func run() error {
	logger := setupLog.WithName("agent")
	cfg := buildConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := telemetry.NewFrameBus(logger)
	defer bus.Close()

	scheduler, err := telemetry.NewTickScheduler(logger, cfg, bus)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if thresholdsPath != "" {
		loader, err := config.NewThresholdsLoader(thresholdsPath, logger, scheduler.SetThresholds)
		if err != nil {
			return fmt.Errorf("failed to load thresholds: %w", err)
		}
		defer func() {
			if err := loader.Close(); err != nil {
				logger.Error(err, "failed to close thresholds loader")
			}
		}()
	}

	frames, err := bus.Subscribe("debug", 4)
	if err != nil {
		return fmt.Errorf("failed to subscribe debug consumer: %w", err)
	}
	consumer := debug.NewConsumer(logger)
	go consumer.Run(ctx, frames)

	logger.Info("starting",
		"interval", cfg.Interval,
		"privileged", cfg.Privileged,
		"registered_collectors", len(telemetry.GetAvailableCollectors()))

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		setupLog.Error(err, "agent exited with error")
		os.Exit(1)
	}
}
