// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// register map and flash layout of the Realtek RTD2142 MST hub,
// as used by its in-band ISP protocol over the DP AUX I2C channel

package gomst

import "time"

// ChipAddress is the fixed 7-bit I2C peripheral address of the RTD2142.
const ChipAddress = 0x35

// Flash geometry. The MCU firmware lives in a 1 MiB external SPI flash
// holding a boot bank and two user banks with per-bank flag records.
const (
	FlashSize     = 0x100000
	FlashUserSize = 0x70000

	FlashUser1Addr = 0x10000
	FlashUser2Addr = 0x80000
	FlashFlag1Addr = 0xFE304
	FlashFlag2Addr = 0xFF304

	FlashSectorSize = 0x1000
	FlashBlockSize  = 0x10000
	FlashPageSize   = 0x100
)

type FlashBank uint8 // bank the MCU reports as currently active

const (
	BankBoot    FlashBank = 0
	BankUser1   FlashBank = 1
	BankUser2   FlashBank = 2
	BankInvalid FlashBank = 0xFF
)

func (b FlashBank) String() string {
	switch b {
	case BankBoot:
		return "boot"
	case BankUser1:
		return "user1"
	case BankUser2:
		return "user2"
	default:
		return "invalid"
	}
}

type DualBankMode uint8 // firmware layout modes reported over DDCCI

const (
	DualBankUserOnly     DualBankMode = 0
	DualBankDiff         DualBankMode = 1
	DualBankCopy         DualBankMode = 2
	DualBankUserOnlyFlag DualBankMode = 3
)

func (m DualBankMode) String() string {
	switch m {
	case DualBankUserOnly:
		return "user-only"
	case DualBankDiff:
		return "diff"
	case DualBankCopy:
		return "copy"
	case DualBankUserOnlyFlag:
		return "user-only-flag"
	default:
		return "unknown"
	}
}

// direct registers
const (
	regCmdAttr     = 0x60
	regEraseOpcode = 0x61
	regCmdAddrHi   = 0x64
	regCmdAddrMid  = 0x65
	regCmdAddrLo   = 0x66
	regReadOpcode  = 0x6A
	regWriteOpcode = 0x6D
	regMcuMode     = 0x6F
	regWriteFifo   = 0x70
	regWriteLen    = 0x71
	regDdcci       = 0xCA
	regMcuReset    = 0xEE
	regIndirectLo  = 0xF4
	regIndirectHi  = 0xF5
)

// regCmdAttr bits
const (
	cmdAttrErase     = 0xB8 // erase op type plus WREN
	cmdAttrEraseBusy = 0x01
)

// regMcuMode bits
const (
	mcuModeIsp       = 0x80
	mcuModeWriteBusy = 0x20
	mcuModeWriteBuf  = 0x10
)

// SPI flash opcodes issued through the command registers
const (
	opcodeSectorErase = 0x20
	opcodeBlockErase  = 0xD8
	opcodeRead        = 0x03
	opcodeWrite       = 0x02
)

// indirect (16-bit address space) registers
const (
	indGpio88Config = 0x104F
	indGpio88Value  = 0xFE3F
	indMcuClock     = 0x06A0

	mcuClockIspBoost = 0x74 // accelerates the MCU clock during ISP
)

// DDCCI opcodes
const (
	ddcciEnterOpcode    = 0x09
	ddcciDualBankOpcode = 0x01
	ddcciDualBankRspLen = 11
)

const (
	ddcciSettleTime = 200 * time.Millisecond
	resetSettleTime = 1 * time.Second
	pollInterval    = 1 * time.Millisecond

	flashOpTimeout  = 10 * time.Second
	ispEntryTimeout = 60 * time.Second
)

// flagRecord is written to the target bank's flag slot after a successful
// update. Its content is opaque; the MCU rewrites the record on next boot,
// the slot only has to be non-virgin.
var flagRecord = [5]byte{0xAA, 0xAA, 0xAA, 0xFF, 0xFF}
