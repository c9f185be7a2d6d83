// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package ringbuffer provides a fixed-capacity ring buffer used for rolling
// metric history windows.
package ringbuffer

import "fmt"

// RingBuffer is a fixed-capacity buffer that overwrites its oldest element
// once full. It is not safe for concurrent use; each metric stream owns its
// own buffer exclusively.
type RingBuffer[T any] struct {
	data  []T
	head  int // index of the oldest element
	count int
}

// New creates a RingBuffer with the given capacity.
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity must be positive, got %d", capacity)
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
	}, nil
}

// Push appends v, evicting the oldest element if the buffer is full.
func (rb *RingBuffer[T]) Push(v T) {
	if rb.count < len(rb.data) {
		rb.data[(rb.head+rb.count)%len(rb.data)] = v
		rb.count++
		return
	}
	rb.data[rb.head] = v
	rb.head = (rb.head + 1) % len(rb.data)
}

// Len returns the number of elements currently stored.
func (rb *RingBuffer[T]) Len() int {
	return rb.count
}

// Cap returns the buffer capacity.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.data)
}

// Snapshot returns the stored elements oldest first. The returned slice is a
// copy; mutating it does not affect the buffer.
func (rb *RingBuffer[T]) Snapshot() []T {
	out := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		out[i] = rb.data[(rb.head+i)%len(rb.data)]
	}
	return out
}
