// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package capabilities answers whether the current process may read
// privileged telemetry sources such as the Intel PMT binary region.
package capabilities

import "os"

// HasPrivilegedAccess reports whether privileged sources should be attempted,
// along with a human-readable reason when they should not. Root always
// qualifies; otherwise CAP_SYS_ADMIN in the effective capability set does.
func HasPrivilegedAccess() (bool, string) {
	if os.Geteuid() == 0 {
		return true, ""
	}
	return hasSysAdminCapability()
}
