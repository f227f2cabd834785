// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"fmt"
	"time"
)

// FirmwareVersion is the major/minor pair a user bank reports.
type FirmwareVersion struct {
	Major uint8
	Minor uint8
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// DualBankInfo is the decoded dual-bank status record of the MCU.
// Enabled is false when the firmware does not answer the query or reports
// values outside the known enums; that is not an error, merely an old or
// unsupported firmware.
type DualBankInfo struct {
	Enabled      bool
	Mode         DualBankMode
	ActiveBank   FlashBank
	User1Version FirmwareVersion
	User2Version FirmwareVersion
}

// queryDualBank switches the MCU into DDCCI mode and fetches the dual-bank
// status record.
func (d *Device) queryDualBank() (*DualBankInfo, error) {
	if err := d.writeReg(regDdcci, ddcciEnterOpcode); err != nil {
		return nil, err
	}

	// give the MCU time to switch command sets
	time.Sleep(ddcciSettleTime)

	var resp [ddcciDualBankRspLen]byte

	if err := d.bus.WriteThenRead([]byte{ddcciDualBankOpcode}, resp[:]); err != nil {
		return nil, err
	}

	return decodeDualBank(resp[:]), nil
}

// decodeDualBank parses the fixed-layout 11-byte response. Out-of-range
// enum values downgrade to Enabled=false rather than failing, so the
// device is reported as not updatable instead of breaking setup.
func decodeDualBank(resp []byte) *DualBankInfo {
	info := &DualBankInfo{ActiveBank: BankInvalid}

	if resp[0] != regDdcci || resp[1] != ddcciEnterOpcode {
		// firmware predating the dual-bank query
		logger.Debugf("unexpected dual-bank response header % x", resp[:2])
		return info
	}

	if resp[2] != 1 {
		return info
	}

	mode := DualBankMode(resp[3])
	if mode > DualBankUserOnlyFlag {
		logger.Warnf("unexpected dual-bank mode %#02x, assuming not supported", resp[3])
		return info
	}

	bank := FlashBank(resp[4])
	if bank > BankUser2 {
		logger.Warnf("unexpected active bank %#02x, assuming not supported", resp[4])
		return info
	}

	info.Enabled = true
	info.Mode = mode
	info.ActiveBank = bank
	info.User1Version = FirmwareVersion{Major: resp[5], Minor: resp[6]}
	info.User2Version = FirmwareVersion{Major: resp[7], Minor: resp[8]}

	return info
}
