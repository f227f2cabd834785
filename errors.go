// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"fmt"
	"time"
)

// BusError wraps a failed I2C bus syscall together with the operation that
// issued it.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("i2c %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned by pollReg when a register did not reach the
// expected value before the deadline.
type TimeoutError struct {
	Addr     byte
	Mask     byte
	Expected byte
	Last     byte
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("register %#02x still %#02x (mask %#02x, expected %#02x) after %.1fs",
		e.Addr, e.Last, e.Mask, e.Expected, e.Elapsed.Seconds())
}

// VerifyError indicates that the flash contents read back after programming
// do not match the firmware image.
type VerifyError struct {
	Offset uint32
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("flash contents after write do not match firmware image (first mismatch at %#x)",
		e.Offset)
}

// NotSupportedError covers unsupported quirk keys, unsupported devices and
// requests the current device state cannot satisfy.
type NotSupportedError struct {
	Reason string
}

func (e *NotSupportedError) Error() string {
	return e.Reason
}

// NeedsUserActionError is returned when the device requires outside help to
// make progress, typically a power cycle after a failed reset request.
type NeedsUserActionError struct {
	Reason        string
	NeedsShutdown bool
}

func (e *NeedsUserActionError) Error() string {
	return e.Reason
}

// InternalError flags an impossible-state assertion, such as a misaligned
// erase address reaching the flash layer.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return e.Reason
}
