// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the i2c-dev ioctl selecting the peripheral address for
// subsequent read/write transactions on the descriptor.
const i2cSlave = 0x0703

// BusIO is the byte-level transport the register layer runs on. Each Write
// is a single START-ADDR-DATA-STOP transaction, each Read a single
// START-ADDR(R)-DATA-STOP transaction against the peripheral selected at
// open time. Implemented by the kernel i2c-dev bus in production and by a
// scripted simulator in tests.
type BusIO interface {
	Write(buf []byte) error
	Read(buf []byte) error
	WriteThenRead(tx, rx []byte) error
	Close() error
}

type i2cBus struct {
	file *os.File
}

// openI2CBus opens an i2c-dev character device and latches the peripheral
// address on the descriptor. The descriptor is owned exclusively by the
// returned bus; callers sharing the underlying kernel bus with other
// programs must serialize access themselves.
func openI2CBus(path string, addr byte) (*i2cBus, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &BusError{Op: "open " + path, Err: err}
	}

	if err := unix.IoctlSetInt(int(file.Fd()), i2cSlave, int(addr)); err != nil {
		file.Close()
		return nil, &BusError{Op: "set peripheral address", Err: err}
	}

	logger.Debugf("opened i2c bus %s, peripheral %#02x", path, addr)

	return &i2cBus{file: file}, nil
}

func (b *i2cBus) Write(buf []byte) error {
	n, err := unix.Pwrite(int(b.file.Fd()), buf, 0)

	if err != nil {
		return &BusError{Op: "write", Err: err}
	}
	if n != len(buf) {
		return &BusError{Op: "write", Err: unix.EIO}
	}

	logger.Tracef("i2c wrote % x", buf)
	return nil
}

func (b *i2cBus) Read(buf []byte) error {
	n, err := unix.Pread(int(b.file.Fd()), buf, 0)

	if err != nil {
		return &BusError{Op: "read", Err: err}
	}
	if n != len(buf) {
		return &BusError{Op: "read", Err: unix.EIO}
	}

	logger.Tracef("i2c read %d bytes", n)
	return nil
}

func (b *i2cBus) WriteThenRead(tx, rx []byte) error {
	if err := b.Write(tx); err != nil {
		return err
	}

	return b.Read(rx)
}

func (b *i2cBus) Close() error {
	return b.file.Close()
}
