// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"bytes"
	"fmt"

	"github.com/boljen/go-bitmap"
)

const (
	DeviceName = "RTD2142"
	Vendor     = "Realtek"
	Summary    = "DisplayPort MST hub"
	Protocol   = "com.realtek.rtd2142"
)

// Device flags exposed to the host daemon.
const (
	FlagUpdatable = iota
	FlagInternal
	FlagDualImage
	FlagCanVerifyImage
	FlagIsBootloader
	FlagNeedsShutdown
)

// Device is a firmware-update session for one RTD2142 hub. It owns the I2C
// bus descriptor exclusively; operations are strictly sequential and block
// the calling goroutine on bus syscalls and settle sleeps.
//
// The host drives the session as
// Probe, Open, Setup, Detach, WriteFirmware, Attach, Reload, Close.
type Device struct {
	config     Config
	bus        BusIO
	busPath    string
	physicalID string
	activeBank FlashBank
	version    string
	flags      bitmap.Bitmap
}

// New creates an unopened device session.
func New(opts ...Option) *Device {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	d := &Device{
		config:     config,
		busPath:    config.BusPath,
		activeBank: BankInvalid,
		flags:      bitmap.New(32),
	}

	d.flags.Set(FlagInternal, true)
	d.flags.Set(FlagDualImage, true)
	d.flags.Set(FlagCanVerifyImage, true)

	return d
}

// Flag reports whether one of the Flag* device flags is set.
func (d *Device) Flag(flag int) bool {
	return d.flags.Get(flag)
}

// Version returns the firmware version of the active user bank, or ""
// when the device runs from the boot bank or has not been probed.
func (d *Device) Version() string {
	return d.version
}

// ActiveBank returns the bank the MCU reported as active during Setup.
func (d *Device) ActiveBank() FlashBank {
	return d.activeBank
}

// PhysicalID identifies the underlying bus device, in the form
// "I2C_PATH=<sysfs path>".
func (d *Device) PhysicalID() string {
	return d.physicalID
}

// BusPath returns the i2c-dev path the session uses.
func (d *Device) BusPath() string {
	return d.busPath
}

// Probe validates the configuration and locates the I2C bus behind the
// configured DP AUX channel. It does not touch the hardware.
func (d *Device) Probe() error {
	if d.config.DeviceName != DeviceName {
		return &NotSupportedError{Reason: "only RTD2142 is supported"}
	}

	if d.busPath != "" {
		d.physicalID = "I2C_PATH=" + d.busPath
		return nil
	}

	if d.config.DpAuxName == "" {
		return &NotSupportedError{Reason: "RealtekMstDpAuxName must be specified"}
	}

	busPath, sysfsPath, err := resolveBusDevice(d.config.Sysfs, d.config.DpAuxName)
	if err != nil {
		return err
	}

	d.busPath = busPath
	d.physicalID = "I2C_PATH=" + sysfsPath

	return nil
}

// Open acquires the bus. It is a no-op when the session is already open.
func (d *Device) Open() error {
	if d.bus != nil {
		return nil
	}

	if d.config.bus != nil {
		d.bus = d.config.bus
		return nil
	}

	if d.busPath == "" {
		return &NotSupportedError{Reason: "no i2c bus located, Probe must succeed first"}
	}

	bus, err := openI2CBus(d.busPath, ChipAddress)
	if err != nil {
		return err
	}

	d.bus = bus
	return nil
}

// Setup probes the dual-bank state and publishes version and updatability.
// It is idempotent; Reload calls it after an update to pick up the new
// active bank.
func (d *Device) Setup() error {
	d.flags.Set(FlagUpdatable, false)
	d.activeBank = BankInvalid
	d.version = ""

	info, err := d.queryDualBank()
	if err != nil {
		return err
	}

	if !info.Enabled || info.Mode != DualBankDiff {
		logger.Infof("dual-bank diff mode not available (enabled=%v mode=%s), not updatable",
			info.Enabled, info.Mode)
		return nil
	}

	d.flags.Set(FlagUpdatable, true)
	d.activeBank = info.ActiveBank

	switch info.ActiveBank {
	case BankUser1:
		d.version = info.User1Version.String()
	case BankUser2:
		d.version = info.User2Version.String()
	case BankBoot:
		// running from the boot bank, version unknown but still updatable
	}

	logger.Infof("active bank %s, version %q", d.activeBank, d.version)

	return nil
}

// Reload re-probes the device after an update.
func (d *Device) Reload() error {
	return d.Setup()
}

// targetRegion selects the bank an update writes to. The active bank is
// never chosen, so a bootable image survives a failed update; running from
// the boot bank targets user1.
func (d *Device) targetRegion() (base uint32, flagAddr uint32, target FlashBank) {
	if d.activeBank == BankUser1 {
		return FlashUser2Addr, FlashFlag2Addr, BankUser2
	}

	return FlashUser1Addr, FlashFlag1Addr, BankUser1
}

// WriteFirmware programs image into the inactive user bank, verifies it and
// marks the bank's flag record so the boot loader picks it up on next boot.
// The session must be detached into ISP mode first.
func (d *Device) WriteFirmware(image []byte) error {
	if len(image) != FlashUserSize {
		return &NotSupportedError{
			Reason: fmt.Sprintf("firmware image must be %#x bytes, got %#x", FlashUserSize, len(image)),
		}
	}

	base, flagAddr, target := d.targetRegion()
	logger.Infof("updating bank %s at %#x (active bank %s)", target, base, d.activeBank)

	d.setStatus(StatusErase)
	for offset := uint32(0); offset < FlashUserSize; offset += FlashBlockSize {
		if err := d.blockErase(base + offset); err != nil {
			return err
		}
		d.setProgress(offset+FlashBlockSize, FlashUserSize)
	}

	d.setStatus(StatusWrite)
	if err := d.pageWrite(base, image); err != nil {
		return err
	}

	d.setStatus(StatusVerify)
	readback := make([]byte, FlashUserSize)
	if err := d.flashRead(base, readback); err != nil {
		return err
	}
	if !bytes.Equal(readback, image) {
		var offset uint32
		for offset = 0; offset < FlashUserSize; offset++ {
			if readback[offset] != image[offset] {
				break
			}
		}
		return &VerifyError{Offset: base + offset}
	}

	// make the slot non-virgin; the MCU rewrites the record on boot
	d.setStatus(StatusErase)
	if err := d.sectorErase(flagAddr &^ (FlashSectorSize - 1)); err != nil {
		return err
	}

	d.setStatus(StatusWrite)
	return d.pageWrite(flagAddr, flagRecord[:])
}

// ReadFirmware returns the active user bank's image.
func (d *Device) ReadFirmware() ([]byte, error) {
	var base uint32

	switch d.activeBank {
	case BankUser1:
		base = FlashUser1Addr
	case BankUser2:
		base = FlashUser2Addr
	default:
		return nil, &NotSupportedError{
			Reason: fmt.Sprintf("active bank %s is not a user bank", d.activeBank),
		}
	}

	d.setStatus(StatusRead)

	image := make([]byte, FlashUserSize)
	if err := d.flashRead(base, image); err != nil {
		return nil, err
	}

	return image, nil
}

// DumpFirmware reads the entire flash, boot bank and flag sectors included.
func (d *Device) DumpFirmware() ([]byte, error) {
	d.setStatus(StatusRead)

	dump := make([]byte, FlashSize)
	if err := d.flashRead(0, dump); err != nil {
		return nil, err
	}

	return dump, nil
}

// Close releases the bus descriptor. Closing an unopened session is a
// no-op.
func (d *Device) Close() error {
	if d.bus == nil {
		return nil
	}

	err := d.bus.Close()
	d.bus = nil

	return err
}

func (d *Device) setStatus(status Status) {
	if d.config.Reporter != nil {
		d.config.Reporter.SetStatus(status)
	}
}

func (d *Device) setProgress(done uint32, total uint32) {
	if d.config.Reporter != nil {
		d.config.Reporter.SetProgress(done, total)
	}
}
