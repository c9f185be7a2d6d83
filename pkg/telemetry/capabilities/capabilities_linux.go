// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux

package capabilities

import (
	"os"
	"strconv"
	"strings"
)

// capSysAdmin is the CAP_SYS_ADMIN bit position in the kernel capability set.
const capSysAdmin = 21

// hasSysAdminCapability reads the effective capability mask from
// /proc/self/status (CapEff line, hex).
func hasSysAdminCapability() (bool, string) {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false, "cannot read /proc/self/status: " + err.Error()
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "CapEff:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		capValue, err := strconv.ParseUint(fields[1], 16, 64)
		if err != nil {
			continue
		}
		if capValue&(1<<capSysAdmin) != 0 {
			return true, ""
		}
		return false, "missing CAP_SYS_ADMIN"
	}
	return false, "no CapEff entry in /proc/self/status"
}
