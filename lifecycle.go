// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"time"
)

// Detach transitions the MCU into ISP mode so the external flash becomes
// accessible through the register interface, and lifts the hardware write
// protect via GPIO-88.
func (d *Device) Detach() error {
	d.setStatus(StatusRestart)

	if err := d.writeReg(regMcuMode, mcuModeIsp); err != nil {
		return err
	}
	if err := d.pollReg(regMcuMode, mcuModeIsp, mcuModeIsp, ispEntryTimeout); err != nil {
		return err
	}

	// accelerate the MCU clock; this also reduces spurious NACKs on the
	// register writes that follow
	if err := d.writeRegIndirect(indMcuClock, mcuClockIspBoost); err != nil {
		return err
	}

	d.flags.Set(FlagIsBootloader, true)
	d.setStatus(StatusIdle)

	logger.Debug("entered ISP mode, lifting flash write protect")

	return d.setGpio88(true)
}

// Attach re-engages the write protect and resets the MCU back into normal
// operation.
func (d *Device) Attach() error {
	if err := d.setGpio88(false); err != nil {
		return err
	}

	mode, err := d.readReg(regMcuMode)
	if err != nil {
		return err
	}

	if mode&mcuModeIsp != 0 {
		d.setStatus(StatusRestart)

		value, err := d.readReg(regMcuReset)
		if err != nil {
			return err
		}

		// the reset request frequently NACKs as the MCU powers down
		if err := d.writeReg(regMcuReset, value|0x02); err != nil {
			logger.Debugf("ignoring reset request failure: %v", err)
		}

		time.Sleep(resetSettleTime)

		mode, err = d.readReg(regMcuMode)
		if err != nil {
			return err
		}
		if mode&mcuModeIsp != 0 {
			d.flags.Set(FlagNeedsShutdown, true)
			return &NeedsUserActionError{
				Reason:        "device failed to reset when requested",
				NeedsShutdown: true,
			}
		}
	}

	d.flags.Set(FlagIsBootloader, false)
	d.setStatus(StatusIdle)

	return nil
}

// setGpio88 drives the write-protect override pin. High disables the
// external flash ~WP, low re-enables it. The pin is configured as a
// push-pull GPIO output first, preserving the high nibble of the config
// register.
func (d *Device) setGpio88(level bool) error {
	config, err := d.readRegIndirect(indGpio88Config)
	if err != nil {
		return err
	}
	if err := d.writeRegIndirect(indGpio88Config, config&0xF0|0x01); err != nil {
		return err
	}

	value, err := d.readRegIndirect(indGpio88Value)
	if err != nil {
		return err
	}

	if level {
		value |= 0x01
	} else {
		value &^= 0x01
	}

	return d.writeRegIndirect(indGpio88Value, value)
}
