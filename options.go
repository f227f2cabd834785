// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"github.com/spf13/afero"
)

// Status values reported to the host through the Reporter while an
// operation runs.
type Status int

const (
	StatusIdle Status = iota
	StatusErase
	StatusWrite
	StatusVerify
	StatusRestart
	StatusRead
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusErase:
		return "erase"
	case StatusWrite:
		return "write"
	case StatusVerify:
		return "verify"
	case StatusRestart:
		return "restart"
	case StatusRead:
		return "read"
	default:
		return "unknown"
	}
}

// Reporter receives status and progress updates during long operations.
// Implementations should return quickly; they are called from the worker
// performing register I/O.
type Reporter interface {
	SetStatus(status Status)
	SetProgress(done uint32, total uint32)
}

// Config holds the device session configuration.
type Config struct {
	// DeviceName is the model name the host registry resolved for this
	// device. Only "RTD2142" is supported.
	DeviceName string

	// DpAuxName is the DP AUX channel name used to locate the I2C bus,
	// normally supplied through the RealtekMstDpAuxName quirk.
	DpAuxName string

	// BusPath names the i2c-dev character device directly, bypassing
	// sysfs discovery.
	BusPath string

	// Reporter receives status and progress callbacks (optional).
	Reporter Reporter

	// Sysfs is the filesystem the bus resolver walks. Defaults to the
	// host filesystem.
	Sysfs afero.Fs

	bus BusIO
}

func defaultConfig() Config {
	return Config{
		DeviceName: DeviceName,
		Sysfs:      afero.NewOsFs(),
	}
}

// Option is a functional option for configuring a Device.
type Option func(*Config)

// WithDeviceName sets the model name the host resolved for the device.
func WithDeviceName(name string) Option {
	return func(c *Config) {
		c.DeviceName = name
	}
}

// WithDpAuxName sets the DP AUX channel name used for bus discovery.
func WithDpAuxName(name string) Option {
	return func(c *Config) {
		c.DpAuxName = name
	}
}

// WithBusPath points the session at an explicit i2c-dev device,
// skipping sysfs discovery in Probe.
func WithBusPath(path string) Option {
	return func(c *Config) {
		c.BusPath = path
	}
}

// WithReporter sets the status/progress sink.
func WithReporter(reporter Reporter) Option {
	return func(c *Config) {
		c.Reporter = reporter
	}
}

// WithSysfs replaces the filesystem used for bus discovery.
func WithSysfs(fsys afero.Fs) Option {
	return func(c *Config) {
		c.Sysfs = fsys
	}
}

// WithBus supplies the bus transport directly instead of opening an
// i2c-dev device, for hosts owning bus management and for tests.
func WithBus(bus BusIO) Option {
	return func(c *Config) {
		c.bus = bus
	}
}
