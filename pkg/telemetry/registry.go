// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// NewCollector is a factory producing a collector instance bound to a logger
// and configuration.
type NewCollector func(logger logr.Logger, config CollectionConfig) (Collector, error)

var (
	registry       = make(map[MetricType]NewCollector)
	registryLogger = stdr.New(log.New(os.Stderr, "[telemetry.registry] ", log.LstdFlags))
)

// Register adds a NewCollector factory to the global registry for metricType.
//
// This function is called during package initialization (in init() functions)
// to register collector implementations before the scheduler instantiates
// them.
//
// On non-Linux platforms this is a no-op so unit tests can run on
// macOS/Windows. It panics if a collector for metricType is already
// registered on Linux.
func Register(metricType MetricType, collector NewCollector) {
	if runtime.GOOS != "linux" {
		registryLogger.V(1).Info("Skipping collector registration on non-Linux platform",
			"metric_type", metricType, "platform", runtime.GOOS)
		return
	}

	if _, exists := registry[metricType]; exists {
		panic(fmt.Sprintf("Collector for %s already registered", metricType))
	}
	registry[metricType] = collector
}

// GetCollector retrieves the collector factory for metricType.
func GetCollector(metricType MetricType) (NewCollector, error) {
	collector, exists := registry[metricType]
	if !exists {
		return nil, fmt.Errorf("collector for %s not found", metricType)
	}
	return collector, nil
}

// GetAvailableCollectors returns the metric types with a registered factory.
func GetAvailableCollectors() []MetricType {
	types := make([]MetricType, 0, len(registry))
	for metricType := range registry {
		types = append(types, metricType)
	}
	return types
}

// SetRegistryLogger allows setting a custom logger for the registry.
// This should be called before any collectors are registered.
func SetRegistryLogger(logger logr.Logger) {
	registryLogger = logger
}
