// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/go-logr/logr"
)

func init() {
	telemetry.Register(telemetry.MetricTypeThermal,
		func(logger logr.Logger, config telemetry.CollectionConfig) (telemetry.Collector, error) {
			return NewThermalCollector(logger, config)
		})
}

// milliDegrees converts hwmon temp*_input readings (milli-°C) to °C.
const milliDegrees = 0.001

// ThermalCollector reads CPU and NVMe temperatures from hwmon.
//
// Sensors are located by the hwmon "name" file (k10temp for AMD package
// temperature, nvme for the drive composite sensor) rather than by index,
// since hwmon numbering changes across boots. A missing or implausible sensor
// yields an unavailable gauge, never a substitute number.
type ThermalCollector struct {
	telemetry.BaseCollector
	hwmonPath string
}

func NewThermalCollector(logger logr.Logger, config telemetry.CollectionConfig) (*ThermalCollector, error) {
	if err := config.Validate(telemetry.ValidateOptions{RequireHostSysPath: true}); err != nil {
		return nil, err
	}

	capabilities := telemetry.CollectorCapabilities{
		MinKernelVersion: "2.6.0",
	}

	return &ThermalCollector{
		BaseCollector: telemetry.NewBaseCollector(
			telemetry.MetricTypeThermal,
			"Hwmon Temperature Collector",
			logger,
			config,
			capabilities,
		),
		hwmonPath: filepath.Join(config.HostSysPath, "class", "hwmon"),
	}, nil
}

func (c *ThermalCollector) Collect(ctx context.Context) (any, error) {
	return &telemetry.ThermalStats{
		CPUTemp:  c.readSensor("k10temp"),
		NVMeTemp: c.readSensor("nvme"),
	}, nil
}

// readSensor finds the hwmon device with the given name and reads its
// temp1_input, applying the temperature plausibility window.
func (c *ThermalCollector) readSensor(name string) telemetry.GaugeValue {
	entries, err := os.ReadDir(c.hwmonPath)
	if err != nil {
		c.Logger().V(2).Info("cannot enumerate hwmon devices", "path", c.hwmonPath, "error", err.Error())
		return telemetry.UnavailableGauge()
	}

	for _, entry := range entries {
		devicePath := filepath.Join(c.hwmonPath, entry.Name())
		nameData, err := os.ReadFile(filepath.Join(devicePath, "name"))
		if err != nil || strings.TrimSpace(string(nameData)) != name {
			continue
		}

		temp, err := telemetry.ReadScalarFloat(filepath.Join(devicePath, "temp1_input"), milliDegrees)
		if err != nil {
			c.Logger().V(2).Info("temperature sensor unreadable",
				"sensor", name, "device", entry.Name(), "error", err.Error())
			return telemetry.UnavailableGauge()
		}
		return telemetry.TempGauge(temp)
	}
	return telemetry.UnavailableGauge()
}
