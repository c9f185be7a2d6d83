// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package debug_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"

	"github.com/Gerritbandison/system-command-center/internal/consumers/debug"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

func TestConsumer_ProcessesFrames(t *testing.T) {
	consumer := debug.NewConsumer(logr.Discard())
	frames := make(chan *telemetry.TelemetryFrame, 3)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Run(context.Background(), frames)
	}()

	for i := 0; i < 3; i++ {
		frames <- &telemetry.TelemetryFrame{
			Hostname: "test-host",
			Readings: map[string]telemetry.Reading{
				telemetry.ReadingCPUTemp: {Value: telemetry.Gauge(45), Band: telemetry.SeverityNominal},
				telemetry.ReadingGPUTemp: {Band: telemetry.SeverityOffline},
			},
		}
	}
	close(frames)
	wg.Wait()

	assert.Equal(t, uint64(3), consumer.FramesProcessed())
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	consumer := debug.NewConsumer(logr.Discard())
	frames := make(chan *telemetry.TelemetryFrame)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Returns promptly without a frame ever arriving.
	consumer.Run(ctx, frames)
	assert.Equal(t, uint64(0), consumer.FramesProcessed())
}
