// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// readTimeout bounds the inbound transfer of a READ phase. The status byte
// following an OUT frame is read without a deadline: the controller answers
// it immediately.
const readTimeout = 100 * time.Millisecond

// Channel is the synchronous byte transport to the bridge controller: one
// outbound frame per Send, one inbound transfer per Receive. A zero timeout
// blocks until the controller answers. The protocol is strictly half duplex,
// so calls never overlap.
type Channel interface {
	Send(p []byte) (int, error)
	Receive(p []byte, timeout time.Duration) (int, error)
}

// Dev is a handle to a CH341 in I2C master mode and implements i2c.Bus.
//
// The controller cannot pipeline or reorder commands, so the mutex holds the
// channel for one full transaction; concurrent users serialize on it.
type Dev struct {
	mu sync.Mutex
	c  Channel
}

// New returns a bus master driving the I2C lines of the CH341 behind c.
func New(c Channel) *Dev {
	return &Dev{c: c}
}

func (d *Dev) String() string {
	if s, ok := d.c.(fmt.Stringer); ok {
		return fmt.Sprintf("CH341{%s}", s)
	}
	return "CH341"
}

// Close releases the underlying channel when it holds releasable resources.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.c.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SetSpeed implements i2c.Bus. The controller supports four discrete clock
// bands; f is rounded down to 20, 100, 400 or 750kHz.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("ch341: invalid bus speed %s", f)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendFrame(speedFrame(speedFor(f)))
}

// Tx implements i2c.Bus. A write-only transfer runs as a single write
// transaction. A combined transfer writes w as the register pointer, then
// re-acquires the bus in read direction and fills r; the pattern has no
// meaning without a pointer, so a read with no write bytes is rejected. With
// both halves empty Tx probes the address and reports absence as a NAKError.
// Each half is capped by the 32 byte command buffer; larger transfers must
// be split into separate transactions.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) == 0 && len(r) == 0:
		present, err := d.Detect(addr)
		if err != nil {
			return err
		}
		if !present {
			return &NAKError{Phase: PhaseAddress}
		}
		return nil
	case len(r) == 0:
		return d.writeTx(addr, nil, w)
	case len(w) == 0:
		return ErrMissingRegister
	default:
		return d.readTx(addr, w, r)
	}
}

// Detect probes addr with an empty write transaction and reports whether a
// device acknowledged it. A NAK means absent rather than an error; a channel
// fault still propagates, since a broken link says nothing about the bus.
func (d *Dev) Detect(addr uint16) (bool, error) {
	if addr > 0x7F {
		// Past the 7-bit space nothing can answer. The vendor scan range runs
		// beyond it, so answer locally instead of aliasing on the wire.
		return false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.start(); err != nil {
		return false, err
	}
	err := d.finish(d.writePhase(PhaseAddress, []byte{encodeAddr(addr, false)}))
	var nak *NAKError
	if errors.As(err, &nak) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Write sends p to addr as a single write transaction with no register
// phase. p must be 1 to 32 bytes.
func (d *Dev) Write(addr uint16, p []byte) error {
	return d.writeTx(addr, nil, p)
}

// WriteReg writes the register offset reg followed by p. p must be 1 to 32
// bytes.
func (d *Dev) WriteReg(addr uint16, reg byte, p []byte) error {
	return d.writeTx(addr, []byte{reg}, p)
}

// WriteRegByte writes a single byte to a register.
func (d *Dev) WriteRegByte(addr uint16, reg, b byte) error {
	return d.writeTx(addr, []byte{reg}, []byte{b})
}

// ReadReg fills p from addr starting at register reg using the combined
// write-then-read format: the register pointer is written first, the bus is
// released and immediately re-acquired in read direction, and the device is
// expected to stream from the pointer it kept across the restart. len(p)
// must be 1 to 32.
func (d *Dev) ReadReg(addr uint16, reg byte, p []byte) error {
	return d.readTx(addr, []byte{reg}, p)
}

// ReadRegByte reads a single byte from a register.
func (d *Dev) ReadRegByte(addr uint16, reg byte) (byte, error) {
	var b [1]byte
	if err := d.readTx(addr, []byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// writeTx runs START, address, optional register pointer, data, STOP. All
// validation happens before any bus traffic.
func (d *Dev) writeTx(addr uint16, reg, p []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%w: %#04x", ErrInvalidAddress, addr)
	}
	if len(p) == 0 || len(p) > CommandMax {
		return ErrPayloadTooLarge
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.start(); err != nil {
		return err
	}
	return d.finish(d.writePhases(addr, reg, p))
}

// readTx runs the combined format: a pointer write transaction followed by a
// read transaction on the re-acquired bus.
func (d *Dev) readTx(addr uint16, reg, p []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%w: %#04x", ErrInvalidAddress, addr)
	}
	if len(reg) == 0 {
		return ErrMissingRegister
	}
	if len(reg) > CommandMax {
		return ErrPayloadTooLarge
	}
	if len(p) == 0 || len(p) > CommandMax {
		return ErrInvalidReadLength
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	// Pointer write leg.
	if err := d.start(); err != nil {
		return err
	}
	if err := d.finish(d.writePhases(addr, reg, nil)); err != nil {
		return err
	}

	// Read leg on the re-acquired bus.
	if err := d.start(); err != nil {
		return err
	}
	err := d.writePhase(PhaseAddress, []byte{encodeAddr(addr, true)})
	if err == nil {
		err = d.readPhase(p)
	}
	return d.finish(err)
}

// writePhases runs the write phases of a started transaction in order:
// address, register pointer when present, then data when present.
func (d *Dev) writePhases(addr uint16, reg, p []byte) error {
	if err := d.writePhase(PhaseAddress, []byte{encodeAddr(addr, false)}); err != nil {
		return err
	}
	if len(reg) != 0 {
		if err := d.writePhase(PhaseRegister, reg); err != nil {
			return err
		}
	}
	if len(p) != 0 {
		return d.writePhase(PhaseData, p)
	}
	return nil
}

// finish sends the closing STOP. On the abort path the STOP is best effort:
// the bus must not stay held, but the original failure wins over any STOP
// transport error.
func (d *Dev) finish(err error) error {
	if err != nil {
		d.stop()
		return err
	}
	return d.stop()
}

func (d *Dev) start() error {
	return d.sendFrame(startFrame())
}

func (d *Dev) stop() error {
	return d.sendFrame(stopFrame())
}

// writePhase sends one OUT frame and consumes the status byte that must
// follow it before any further command.
func (d *Dev) writePhase(phase Phase, p []byte) error {
	f, err := writeFrame(p)
	if err != nil {
		return err
	}
	if err := d.sendFrame(f); err != nil {
		return err
	}
	ack, err := d.checkAck()
	if err != nil {
		return err
	}
	if !ack {
		return &NAKError{Phase: phase}
	}
	return nil
}

// readPhase requests len(p) bytes from the bus and fills p. The inbound
// transfer is bounded by readTimeout; a timeout or short answer is a
// transport fault, not a NAK.
func (d *Dev) readPhase(p []byte) error {
	f, err := readFrame(len(p))
	if err != nil {
		return err
	}
	if err := d.sendFrame(f); err != nil {
		return err
	}
	n, err := d.c.Receive(p, readTimeout)
	if err != nil {
		return fmt.Errorf("ch341: reading data: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortRead, n, len(p))
	}
	return nil
}

// checkAck reads the status byte the controller reports after an OUT frame.
// The write was acknowledged iff exactly one byte came back with the high
// bit clear; any other answer is a NAK, which is an expected bus condition
// rather than an error.
func (d *Dev) checkAck() (bool, error) {
	var status [CommandMax]byte
	n, err := d.c.Receive(status[:], 0)
	if err != nil {
		return false, fmt.Errorf("ch341: reading ack status: %w", err)
	}
	return n == 1 && status[0]&0x80 == 0, nil
}

func (d *Dev) sendFrame(f []byte) error {
	n, err := d.c.Send(f)
	if err != nil {
		return fmt.Errorf("ch341: sending command: %w", err)
	}
	if n != len(f) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(f))
	}
	return nil
}

var _ i2c.BusCloser = &Dev{}
