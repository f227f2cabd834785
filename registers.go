// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"time"
)

// writeReg sets a single direct register.
func (d *Device) writeReg(addr byte, value byte) error {
	return d.bus.Write([]byte{addr, value})
}

// writeRegBurst loads data into a register in one bus transaction,
// used for the page-write FIFO.
func (d *Device) writeRegBurst(addr byte, data []byte) error {
	buf := make([]byte, len(data)+1)
	buf[0] = addr
	copy(buf[1:], data)

	return d.bus.Write(buf)
}

func (d *Device) readReg(addr byte) (byte, error) {
	var rx [1]byte

	if err := d.bus.WriteThenRead([]byte{addr}, rx[:]); err != nil {
		return 0, err
	}

	return rx[0], nil
}

// setIndirect points the 16-bit indirect register window at addr.
// The 0x9F write to the low register arms the window before the
// address bytes are loaded.
func (d *Device) setIndirect(addr uint16) error {
	if err := d.writeReg(regIndirectLo, 0x9F); err != nil {
		return err
	}
	if err := d.writeReg(regIndirectHi, byte(addr>>8)); err != nil {
		return err
	}

	return d.writeReg(regIndirectLo, byte(addr))
}

func (d *Device) readRegIndirect(addr uint16) (byte, error) {
	if err := d.setIndirect(addr); err != nil {
		return 0, err
	}

	return d.readReg(regIndirectHi)
}

func (d *Device) writeRegIndirect(addr uint16, value byte) error {
	if err := d.setIndirect(addr); err != nil {
		return err
	}

	return d.writeReg(regIndirectHi, value)
}

// pollReg reads addr until (value & mask) == expected, sleeping 1 ms between
// reads. The deadline is absolute on the monotonic clock, computed once.
func (d *Device) pollReg(addr byte, mask byte, expected byte, timeout time.Duration) error {
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		value, err := d.readReg(addr)

		if err != nil {
			return err
		}

		if value&mask == expected {
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{
				Addr:     addr,
				Mask:     mask,
				Expected: expected,
				Last:     value,
				Elapsed:  time.Since(start),
			}
		}

		time.Sleep(pollInterval)
	}
}
