// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package main prints the collector registry and privilege status for the
// current host, useful when diagnosing why a reading shows OFFLINE.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"

	"github.com/Gerritbandison/system-command-center/pkg/telemetry"
	"github.com/Gerritbandison/system-command-center/pkg/telemetry/capabilities"
	_ "github.com/Gerritbandison/system-command-center/pkg/telemetry/collectors" // trigger init() registration
)

func main() {
	fmt.Printf("System Command Center - Collector Status Report\n")
	fmt.Printf("Platform: %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	available := telemetry.GetAvailableCollectors()
	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "REGISTERED COLLECTORS (%d):\n", len(available))
	fmt.Fprintf(w, "Metric Type\tStatus\n")
	fmt.Fprintf(w, "-----------\t------\n")
	for _, metricType := range available {
		fmt.Fprintf(w, "%s\t✓\n", metricType)
	}
	w.Flush()

	privileged, reason := capabilities.HasPrivilegedAccess()
	fmt.Printf("\nPrivileged access: %v\n", privileged)
	if !privileged {
		fmt.Printf("Reason: %s\n", reason)
		fmt.Printf("GPU package temperatures need root or CAP_SYS_ADMIN and will report OFFLINE.\n")
	}

	if runtime.GOOS != "linux" {
		fmt.Printf("\nNOTE: collectors only register on Linux; this report is empty elsewhere.\n")
	}
}
