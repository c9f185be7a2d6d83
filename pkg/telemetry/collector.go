// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"context"

	"github.com/go-logr/logr"
)

// Collector performs one synchronous sampling pass for one metric type. A
// collector owns any per-stream rate state exclusively; no state is shared
// across collectors, so no locking is needed inside a tick.
type Collector interface {
	Type() MetricType
	Name() string

	// Collect performs a single collection and returns the metrics
	Collect(ctx context.Context) (any, error)

	Capabilities() CollectorCapabilities
}

// CollectorCapabilities describes what a collector needs from the platform.
type CollectorCapabilities struct {
	// RequiresPrivileged marks collectors whose source is only attempted with
	// elevated permissions (the PMT binary telemetry region).
	RequiresPrivileged bool
	MinKernelVersion   string
}

// BaseCollector carries the identity, logger, and config shared by all
// collectors.
type BaseCollector struct {
	metricType   MetricType
	name         string
	logger       logr.Logger
	config       CollectionConfig
	capabilities CollectorCapabilities
}

func NewBaseCollector(metricType MetricType, name string, logger logr.Logger, config CollectionConfig, capabilities CollectorCapabilities) BaseCollector {
	return BaseCollector{
		metricType:   metricType,
		name:         name,
		logger:       logger.WithName(string(metricType)),
		config:       config,
		capabilities: capabilities,
	}
}

func (b *BaseCollector) Type() MetricType {
	return b.metricType
}

func (b *BaseCollector) Name() string {
	return b.name
}

func (b *BaseCollector) Capabilities() CollectorCapabilities {
	return b.capabilities
}

func (b *BaseCollector) Logger() logr.Logger {
	return b.logger
}

func (b *BaseCollector) Config() CollectionConfig {
	return b.config
}
