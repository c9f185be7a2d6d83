// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"time"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
)

// Test hooks for substituting command runners and clocks.

func (c *StorageCollector) SetRunner(run telemetry.CommandRunner) { c.run = run }
func (c *ProcessCollector) SetRunner(run telemetry.CommandRunner) { c.run = run }
func (c *SystemCollector) SetRunner(run telemetry.CommandRunner)  { c.run = run }

func (c *DiskCollector) SetClock(now func() time.Time)    { c.now = now }
func (c *NetworkCollector) SetClock(now func() time.Time) { c.now = now }
