// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package debug logs a one-line summary of each telemetry frame. It exists
// for bring-up and troubleshooting: point it at a frame bus and watch the
// readings flow.
package debug

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

const consumerName = "debug"

// statsInterval controls how often cumulative consumer stats are logged.
const statsInterval = 60

type Consumer struct {
	logger logr.Logger

	framesProcessed atomic.Uint64
	startTime       time.Time
}

func NewConsumer(logger logr.Logger) *Consumer {
	return &Consumer{
		logger:    logger.WithName("debug-consumer"),
		startTime: time.Now(),
	}
}

func (c *Consumer) Name() string {
	return consumerName
}

// Run consumes frames until the channel closes or the context is cancelled.
func (c *Consumer) Run(ctx context.Context, frames <-chan *telemetry.TelemetryFrame) {
	c.logger.Info("starting debug consumer")
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			c.logFrame(frame)
		}
	}
}

func (c *Consumer) FramesProcessed() uint64 {
	return c.framesProcessed.Load()
}

func (c *Consumer) logFrame(frame *telemetry.TelemetryFrame) {
	n := c.framesProcessed.Add(1)

	offline := 0
	critical := 0
	for _, reading := range frame.Readings {
		switch reading.Band {
		case telemetry.SeverityOffline:
			offline++
		case telemetry.SeverityCritical:
			critical++
		}
	}

	c.logger.Info("frame",
		"host", frame.Hostname,
		"readings", len(frame.Readings),
		"critical", critical,
		"offline", offline,
		"duration", frame.Duration)

	if c.logger.V(1).Enabled() {
		for name, reading := range frame.Readings {
			if !reading.Value.Valid {
				c.logger.V(1).Info("reading", "name", name, "band", reading.Band)
				continue
			}
			c.logger.V(1).Info("reading",
				"name", name,
				"value", reading.Value.Value,
				"band", reading.Band)
		}
	}

	if n%statsInterval == 0 {
		c.logger.Info("debug consumer stats",
			"frames_processed", n,
			"uptime", time.Since(c.startTime).Round(time.Second))
	}
}
