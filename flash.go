// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// SPI flash primitives. Each operation lowers to a short script of register
// writes followed by a busy-flag poll; the session must already be in ISP
// mode with the hardware write protect lifted (see Detach).

package gomst

import (
	"fmt"
)

// setCmdAddress loads the 24-bit operation address into the command
// address registers, high byte first.
func (d *Device) setCmdAddress(addr uint32) error {
	if err := d.writeReg(regCmdAddrHi, byte(addr>>16)); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAddrMid, byte(addr>>8)); err != nil {
		return err
	}

	return d.writeReg(regCmdAddrLo, byte(addr))
}

// flashRead fills buf from flash starting at addr. The first byte of a read
// transaction returns unpredictable data, so the transfer starts one byte
// early (wrapping modulo 2^24) and the leading byte is discarded.
func (d *Device) flashRead(addr uint32, buf []byte) error {
	if addr >= FlashSize || len(buf) > FlashSize {
		return &InternalError{Reason: fmt.Sprintf("flash read out of range: %#x+%#x", addr, len(buf))}
	}

	if err := d.setCmdAddress((addr - 1) & 0xFFFFFF); err != nil {
		return err
	}
	if err := d.writeReg(regReadOpcode, opcodeRead); err != nil {
		return err
	}

	var discard [1]byte
	if err := d.bus.WriteThenRead([]byte{regWriteFifo}, discard[:]); err != nil {
		return err
	}

	total := uint32(len(buf))
	var done uint32

	for done < total {
		chunk := total - done
		if chunk > FlashPageSize {
			chunk = FlashPageSize
		}

		if err := d.bus.Read(buf[done : done+chunk]); err != nil {
			return err
		}

		done += chunk
		d.setProgress(done, total)
	}

	return nil
}

// sectorErase erases the 4 KiB sector at addr.
func (d *Device) sectorErase(addr uint32) error {
	if addr&(FlashSectorSize-1) != 0 {
		return &InternalError{Reason: fmt.Sprintf("sector erase address %#x is not sector-aligned", addr)}
	}

	logger.Debugf("erasing sector at %#x", addr)

	if err := d.setCmdAddress(addr); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAttr, cmdAttrErase); err != nil {
		return err
	}
	if err := d.writeReg(regEraseOpcode, opcodeSectorErase); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAttr, cmdAttrErase|cmdAttrEraseBusy); err != nil {
		return err
	}

	return d.pollReg(regCmdAttr, cmdAttrEraseBusy, 0, flashOpTimeout)
}

// blockErase erases the 64 KiB block at addr. The chip selects the block
// from the high address byte alone; mid and low bytes are written as zero.
func (d *Device) blockErase(addr uint32) error {
	if addr&(FlashBlockSize-1) != 0 {
		return &InternalError{Reason: fmt.Sprintf("block erase address %#x is not block-aligned", addr)}
	}

	logger.Debugf("erasing block at %#x", addr)

	if err := d.writeReg(regCmdAddrHi, byte(addr>>16)); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAddrMid, 0); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAddrLo, 0); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAttr, cmdAttrErase); err != nil {
		return err
	}
	if err := d.writeReg(regEraseOpcode, opcodeBlockErase); err != nil {
		return err
	}
	if err := d.writeReg(regCmdAttr, cmdAttrErase|cmdAttrEraseBusy); err != nil {
		return err
	}

	return d.pollReg(regCmdAttr, cmdAttrEraseBusy, 0, flashOpTimeout)
}

// pageWrite programs data at addr in chunks of up to 256 bytes. Each chunk
// waits for the previous page buffer to drain, loads the FIFO in a single
// burst transaction and starts the program cycle.
func (d *Device) pageWrite(addr uint32, data []byte) error {
	total := uint32(len(data))
	var written uint32

	for written < total {
		chunk := total - written
		if chunk > FlashPageSize {
			chunk = FlashPageSize
		}

		if err := d.writeReg(regWriteOpcode, opcodeWrite); err != nil {
			return err
		}
		if err := d.writeReg(regWriteLen, byte(chunk-1)); err != nil {
			return err
		}
		if err := d.setCmdAddress(addr); err != nil {
			return err
		}

		if err := d.pollReg(regMcuMode, mcuModeWriteBuf, 0, flashOpTimeout); err != nil {
			return err
		}

		if err := d.writeRegBurst(regWriteFifo, data[written:written+chunk]); err != nil {
			return err
		}

		if err := d.writeReg(regMcuMode, mcuModeIsp|mcuModeWriteBusy); err != nil {
			return err
		}

		if err := d.pollReg(regMcuMode, mcuModeWriteBusy, 0, flashOpTimeout); err != nil {
			return fmt.Errorf("writing page at %#x: %w", addr, err)
		}

		addr += chunk
		written += chunk
		d.setProgress(written, total)
	}

	return nil
}
