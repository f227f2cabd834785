// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"fmt"
)

// QuirkDpAuxName names the DP AUX channel the hub's DDC bus hangs off.
// It is the only quirk key this device understands and must be set before
// Probe when no explicit bus path is configured.
const QuirkDpAuxName = "RealtekMstDpAuxName"

// SetQuirk applies a key/value pair from the host's quirk database.
func (d *Device) SetQuirk(key string, value string) error {
	switch key {
	case QuirkDpAuxName:
		d.config.DpAuxName = value
		return nil
	default:
		return &NotSupportedError{Reason: fmt.Sprintf("unsupported quirk key: %s", key)}
	}
}
