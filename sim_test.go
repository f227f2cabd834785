// Copyright 2021 The gomst authors. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gomst

import (
	"bytes"
)

type eraseOp struct {
	opcode byte
	addr   uint32
}

// simBus is a register-level RTD2142 model behind the BusIO interface.
// It decodes the same transaction shapes the real chip sees: pointer
// writes, [reg value] writes, FIFO bursts and pointer-then-read streams,
// and applies erase/program/read operations to an in-memory flash array.
type simBus struct {
	regs     [256]byte
	indirect map[uint16]byte
	flash    []byte

	pointer  byte
	indPhase int
	indHi    byte
	indAddr  uint16

	ddcciActive  bool
	ddcciArmed   bool
	dualBankResp []byte

	readArmed   bool
	streaming   bool
	discardDone bool
	cursor      uint32

	pageBuf []byte

	writes       [][]byte
	eraseOps     []eraseOp
	dataReads    int
	discardReads int

	failIspExit   bool
	resetWriteErr error
	corruptAddr   int
	regReadHook   func(reg byte, value byte) byte

	writeErr error
	readErr  error
	closed   bool
}

func newSimBus() *simBus {
	flash := make([]byte, FlashSize)
	for i := range flash {
		flash[i] = 0xFF
	}

	return &simBus{
		indirect:    make(map[uint16]byte),
		flash:       flash,
		corruptAddr: -1,
	}
}

func (s *simBus) cmdAddr() uint32 {
	return uint32(s.regs[regCmdAddrHi])<<16 |
		uint32(s.regs[regCmdAddrMid])<<8 |
		uint32(s.regs[regCmdAddrLo])
}

func (s *simBus) fillRegion(addr uint32, size uint32, value byte) {
	for i := uint32(0); i < size; i++ {
		s.flash[addr+i] = value
	}
}

func (s *simBus) region(addr uint32, size uint32) []byte {
	out := make([]byte, size)
	copy(out, s.flash[addr:addr+size])
	return out
}

func (s *simBus) Write(buf []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}

	s.writes = append(s.writes, append([]byte(nil), buf...))

	if len(buf) == 1 {
		p := buf[0]

		if s.readArmed && p == regWriteFifo {
			s.streaming = true
			s.discardDone = false
			s.readArmed = false
			s.cursor = s.cmdAddr()
		} else {
			s.streaming = false
			if s.ddcciActive && p == ddcciDualBankOpcode {
				s.ddcciArmed = true
			}
		}

		s.pointer = p
		return nil
	}

	reg, value := buf[0], buf[1]

	switch reg {
	case regWriteFifo:
		s.pageBuf = append(s.pageBuf, buf[1:]...)
		s.regs[regMcuMode] |= mcuModeWriteBuf

	case regIndirectLo:
		if value == 0x9F {
			s.indPhase = 1
		} else if s.indPhase == 2 {
			s.indAddr = uint16(s.indHi)<<8 | uint16(value)
			s.indPhase = 3
		} else {
			s.indPhase = 0
		}
		s.regs[reg] = value

	case regIndirectHi:
		switch s.indPhase {
		case 1:
			s.indHi = value
			s.indPhase = 2
		case 3:
			s.indirect[s.indAddr] = value
			s.indPhase = 0
		default:
			s.regs[reg] = value
		}

	case regDdcci:
		s.regs[reg] = value
		if value == ddcciEnterOpcode {
			s.ddcciActive = true
		}

	case regReadOpcode:
		s.regs[reg] = value
		if value == opcodeRead {
			s.readArmed = true
		}

	case regMcuMode:
		if value&mcuModeWriteBusy != 0 {
			addr := s.cmdAddr()
			copy(s.flash[addr:], s.pageBuf)
			s.pageBuf = nil
			value &^= mcuModeWriteBusy | mcuModeWriteBuf
		}
		s.regs[reg] = value

	case regMcuReset:
		s.regs[reg] = value
		if value&0x02 != 0 && !s.failIspExit {
			s.regs[regMcuMode] &^= mcuModeIsp
		}
		// the reset often NACKs while the MCU powers down even though
		// it takes effect
		if value&0x02 != 0 && s.resetWriteErr != nil {
			return s.resetWriteErr
		}

	case regCmdAttr:
		if value&cmdAttrEraseBusy != 0 {
			addr := s.cmdAddr()
			opcode := s.regs[regEraseOpcode]
			s.eraseOps = append(s.eraseOps, eraseOp{opcode: opcode, addr: addr})

			switch opcode {
			case opcodeSectorErase:
				s.fillRegion(addr&^(FlashSectorSize-1), FlashSectorSize, 0xFF)
			case opcodeBlockErase:
				s.fillRegion(addr&0xFF0000, FlashBlockSize, 0xFF)
			}

			value &^= cmdAttrEraseBusy
		}
		s.regs[reg] = value

	default:
		s.regs[reg] = value
	}

	return nil
}

func (s *simBus) Read(buf []byte) error {
	if s.readErr != nil {
		return s.readErr
	}

	if s.ddcciArmed {
		copy(buf, s.dualBankResp)
		s.ddcciArmed = false
		return nil
	}

	if s.streaming {
		if !s.discardDone {
			buf[0] = 0x5A
			s.discardDone = true
			s.discardReads++
			s.cursor = (s.cursor + 1) & 0xFFFFFF
			return nil
		}

		s.dataReads++
		for i := range buf {
			offset := s.cursor % FlashSize
			value := s.flash[offset]
			if s.corruptAddr >= 0 && offset == uint32(s.corruptAddr) {
				value ^= 0xFF
			}
			buf[i] = value
			s.cursor = (s.cursor + 1) & 0xFFFFFF
		}
		return nil
	}

	value := s.regs[s.pointer]
	if s.pointer == regIndirectHi && s.indPhase == 3 {
		value = s.indirect[s.indAddr]
		s.indPhase = 0
	}
	if s.regReadHook != nil {
		value = s.regReadHook(s.pointer, value)
	}

	buf[0] = value
	return nil
}

func (s *simBus) WriteThenRead(tx, rx []byte) error {
	if err := s.Write(tx); err != nil {
		return err
	}
	return s.Read(rx)
}

func (s *simBus) Close() error {
	s.closed = true
	return nil
}

// hasWrite reports whether the transaction log contains an exact write.
func (s *simBus) hasWrite(want []byte) bool {
	return s.countWrites(want) > 0
}

func (s *simBus) countWrites(want []byte) int {
	n := 0
	for _, w := range s.writes {
		if bytes.Equal(w, want) {
			n++
		}
	}
	return n
}

// hasWriteSequence reports whether the log contains the given writes as a
// contiguous run.
func (s *simBus) hasWriteSequence(seq [][]byte) bool {
	for i := 0; i+len(seq) <= len(s.writes); i++ {
		match := true
		for j := range seq {
			if !bytes.Equal(s.writes[i+j], seq[j]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// statusRecorder captures Reporter callbacks for assertions.
type statusRecorder struct {
	statuses     []Status
	lastDone     uint32
	lastTotal    uint32
	progressSeen bool
}

func (r *statusRecorder) SetStatus(status Status) {
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) SetProgress(done uint32, total uint32) {
	r.lastDone = done
	r.lastTotal = total
	r.progressSeen = true
}

func newTestDevice(sim *simBus, rec *statusRecorder) *Device {
	opts := []Option{WithBus(sim)}
	if rec != nil {
		opts = append(opts, WithReporter(rec))
	}

	d := New(opts...)
	if err := d.Open(); err != nil {
		panic(err)
	}
	return d
}
