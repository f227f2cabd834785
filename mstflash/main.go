// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openmst/gomst"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	logger *logrus.Logger
)

type consoleReporter struct {
	status gomst.Status
}

func (r *consoleReporter) SetStatus(status gomst.Status) {
	r.status = status
	logger.Infof("status: %s", status)
}

func (r *consoleReporter) SetProgress(done uint32, total uint32) {
	if total == 0 {
		return
	}
	fmt.Printf("\r%s: %3d%% (%#x / %#x)", r.status, done*100/total, done, total)
	if done == total {
		fmt.Println()
	}
}

func initLogger() {
	formatter := &prefixed.TextFormatter{
		DisableColors:   false,
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}

	logger = logrus.New()

	logger.SetFormatter(formatter)
	logger.SetOutput(os.Stdout)
}

func main() {
	initLogger()
	gomst.SetLogger(logger)

	flagLogLevel := flag.Int("LogLevel", int(logrus.InfoLevel), "Logging verbosity [0 - 7]")
	flagAux := flag.String("aux", "", "DP AUX channel name of the hub")
	flagBus := flag.String("bus", "", "Explicit i2c-dev path, bypasses sysfs discovery")
	flagDump := flag.String("dump", "", "Dump the whole flash to the given file")
	flagRead := flag.String("read", "", "Read the active bank image to the given file")
	flagWrite := flag.String("write", "", "Write the given firmware image to the inactive bank")

	flag.Parse()

	logger.SetLevel(logrus.Level(*flagLogLevel))

	opts := []gomst.Option{
		gomst.WithReporter(&consoleReporter{}),
	}

	if *flagBus != "" {
		opts = append(opts, gomst.WithBusPath(*flagBus))
	} else if *flagAux != "" {
		opts = append(opts, gomst.WithDpAuxName(*flagAux))
	} else {
		logger.Fatal("either -aux or -bus must be given")
	}

	device := gomst.New(opts...)

	if err := device.Probe(); err != nil {
		logger.Fatal(err)
	}

	if err := device.Open(); err != nil {
		logger.Fatal(err)
	}
	defer device.Close()

	if err := device.Setup(); err != nil {
		logger.Fatal(err)
	}

	logger.Infof("%s %s on %s", gomst.Vendor, gomst.DeviceName, device.BusPath())
	logger.Infof("active bank: %s", device.ActiveBank())

	if device.Version() != "" {
		logger.Infof("firmware version: %s", device.Version())
	}
	if !device.Flag(gomst.FlagUpdatable) {
		logger.Warn("device is not updatable (dual-bank diff mode not enabled)")
	}

	switch {
	case *flagWrite != "":
		image, err := os.ReadFile(*flagWrite)
		if err != nil {
			logger.Fatal(err)
		}

		if !device.Flag(gomst.FlagUpdatable) {
			logger.Fatal("refusing to write: device is not updatable")
		}

		if err := device.Detach(); err != nil {
			logger.Fatal(err)
		}

		writeErr := device.WriteFirmware(image)

		if err := device.Attach(); err != nil {
			logger.Error(err)
		}
		if writeErr != nil {
			logger.Fatal(writeErr)
		}

		if err := device.Reload(); err != nil {
			logger.Fatal(err)
		}

		logger.Info("firmware written; new bank becomes active on next boot")

	case *flagRead != "":
		if err := device.Detach(); err != nil {
			logger.Fatal(err)
		}

		image, readErr := device.ReadFirmware()

		if err := device.Attach(); err != nil {
			logger.Error(err)
		}
		if readErr != nil {
			logger.Fatal(readErr)
		}

		if err := os.WriteFile(*flagRead, image, 0644); err != nil {
			logger.Fatal(err)
		}

		logger.Infof("active bank image written to %s", *flagRead)

	case *flagDump != "":
		if err := device.Detach(); err != nil {
			logger.Fatal(err)
		}

		dump, dumpErr := device.DumpFirmware()

		if err := device.Attach(); err != nil {
			logger.Error(err)
		}
		if dumpErr != nil {
			logger.Fatal(dumpErr)
		}

		if err := os.WriteFile(*flagDump, dump, 0644); err != nil {
			logger.Fatal(err)
		}

		logger.Infof("flash dump written to %s", *flagDump)
	}
}
