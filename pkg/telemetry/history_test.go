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

func TestHistoryBuffer_ZeroFilled(t *testing.T) {
	h := telemetry.NewHistoryBuffer(5)
	snap := h.Snapshot()
	assert.Len(t, snap, 5, "length must equal capacity from the start")
	for _, v := range snap {
		assert.Equal(t, 0.0, v)
	}
}

func TestHistoryBuffer_PushEvictsOldest(t *testing.T) {
	h := telemetry.NewHistoryBuffer(3)
	h.Push(1)
	h.Push(2)
	assert.Equal(t, []float64{0, 1, 2}, h.Snapshot())

	h.Push(3)
	h.Push(4)
	assert.Equal(t, []float64{2, 3, 4}, h.Snapshot(), "oldest first, fixed length")
}

func TestHistoryBuffer_SnapshotIdempotent(t *testing.T) {
	h := telemetry.NewHistoryBuffer(4)
	h.Push(7)
	first := h.Snapshot()
	second := h.Snapshot()
	assert.Equal(t, first, second, "snapshot without push must not change the window")

	// Mutating a snapshot must not leak into the buffer.
	first[0] = 99
	assert.Equal(t, second, h.Snapshot())
}

func TestHistoryBuffer_DefaultCapacity(t *testing.T) {
	h := telemetry.NewHistoryBuffer(0)
	assert.Equal(t, telemetry.DefaultHistoryCapacity, h.Capacity())
	assert.Len(t, h.Snapshot(), telemetry.DefaultHistoryCapacity)
}
