// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// ErrBusClosed is returned when attempting to publish to a closed bus
var ErrBusClosed = errors.New("frame bus is closed")

// FrameBus fans published TelemetryFrames out to named consumers. Publication
// is atomic from the consumer's point of view: a frame only enters the bus
// after the scheduler has finished assembling it.
//
// A slow consumer never blocks the tick loop; when its buffer is full the
// oldest frame is dropped. Frames are snapshots, so dropping stale ones loses
// nothing the next frame does not replace.
type FrameBus struct {
	mu     sync.RWMutex
	logger logr.Logger
	subs   map[string]chan *TelemetryFrame
	closed atomic.Bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewFrameBus creates a frame bus.
func NewFrameBus(logger logr.Logger) *FrameBus {
	return &FrameBus{
		logger: logger.WithName("frame-bus"),
		subs:   make(map[string]chan *TelemetryFrame),
	}
}

// Subscribe registers a named consumer and returns its frame channel. The
// buffer bounds how many unconsumed frames are retained before the oldest is
// dropped.
func (b *FrameBus) Subscribe(name string, buffer int) (<-chan *TelemetryFrame, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if buffer <= 0 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.subs[name]; exists {
		return nil, fmt.Errorf("consumer %q already subscribed", name)
	}
	ch := make(chan *TelemetryFrame, buffer)
	b.subs[name] = ch
	b.logger.Info("consumer subscribed", "name", name, "buffer", buffer)
	return ch, nil
}

// Publish delivers a frame to every consumer, dropping the oldest buffered
// frame of any consumer that has fallen behind.
func (b *FrameBus) Publish(frame *TelemetryFrame) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, ch := range b.subs {
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
				b.dropped.Add(1)
				b.logger.V(2).Info("dropped oldest frame for slow consumer", "consumer", name)
			default:
			}
			select {
			case ch <- frame:
			default:
				b.dropped.Add(1)
			}
		}
	}
	b.published.Add(1)
	return nil
}

// Close shuts the bus down and closes all consumer channels.
func (b *FrameBus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, ch := range b.subs {
		close(ch)
		delete(b.subs, name)
	}
	b.logger.Info("frame bus closed",
		"published", b.published.Load(), "dropped", b.dropped.Load())
}

// PublishedFrames returns the number of frames accepted for delivery.
func (b *FrameBus) PublishedFrames() uint64 {
	return b.published.Load()
}

// DroppedFrames returns the number of frames discarded due to slow consumers.
func (b *FrameBus) DroppedFrames() uint64 {
	return b.dropped.Load()
}
