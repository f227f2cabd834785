// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const sysfsDpAuxClass = "/sys/class/drm_dp_aux_dev"

// resolveBusDevice finds the i2c-dev bus behind a DP AUX channel. From the
// drm_dp_aux_dev entry with the given name it walks to the connector device,
// locates the sibling i2c adapter carrying DDC for that port and takes the
// i2c-dev registered under it. Returns the /dev path of the bus and the
// sysfs path of the aux device.
func resolveBusDevice(fsys afero.Fs, auxName string) (string, string, error) {
	entries, err := afero.ReadDir(fsys, sysfsDpAuxClass)
	if err != nil {
		return "", "", &NotSupportedError{
			Reason: fmt.Sprintf("cannot enumerate DP aux devices: %v", err),
		}
	}

	var found bool

	for _, entry := range entries {
		auxPath := filepath.Join(sysfsDpAuxClass, entry.Name())

		name, err := afero.ReadFile(fsys, filepath.Join(auxPath, "name"))
		if err != nil || strings.TrimSpace(string(name)) != auxName {
			continue
		}

		if found {
			logger.Debugf("ignoring additional aux device %s", auxPath)
			continue
		}
		found = true

		connectorPath := filepath.Join(auxPath, "device")

		siblings, err := afero.ReadDir(fsys, connectorPath)
		if err != nil {
			logger.Debugf("cannot read connector device %s: %v", connectorPath, err)
			continue
		}

		for _, sibling := range siblings {
			if !strings.HasPrefix(sibling.Name(), "i2c-") || sibling.Name() == "i2c-dev" {
				continue
			}

			devDir := filepath.Join(connectorPath, sibling.Name(), "i2c-dev")

			buses, err := afero.ReadDir(fsys, devDir)
			if err != nil || len(buses) == 0 {
				logger.Debugf("no i2c-dev found under %s", filepath.Join(connectorPath, sibling.Name()))
				continue
			}
			if len(buses) > 1 {
				logger.Debugf("ignoring %d additional i2c-dev under %s", len(buses)-1, devDir)
			}

			busPath := "/dev/" + buses[0].Name()
			logger.Debugf("found i2c bus %s for DP aux %q", busPath, auxName)

			return busPath, auxPath, nil
		}
	}

	return "", "", &NotSupportedError{
		Reason: fmt.Sprintf("did not find an i2c-dev associated with DP aux %q", auxName),
	}
}
