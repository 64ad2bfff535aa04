// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

import "periph.io/x/conn/v3/physic"

// The I2C command stream. Every frame written to the bulk-out endpoint is
// one command: the stream selector, an opcode with optional payload and the
// END marker. The fixed shape delimits the command, so the controller never
// needs a length field.
const (
	cmdI2CStream byte = 0xAA // selects the I2C command stream

	opStart byte = 0x74 // generate a START condition
	opStop  byte = 0x75 // generate a STOP condition
	opOut   byte = 0x80 // write the following payload bytes to the bus
	opIn    byte = 0xC0 // read, the low bits carry the byte count
	opSet   byte = 0x60 // select the bus clock, the low 2 bits carry the band
	opEnd   byte = 0x00 // terminates every command

	// Delay insertion. The vendor tool can place opUS|n or opMS|n after a
	// START to stall the engine. No transaction here uses them.
	opUS byte = 0x40
	opMS byte = 0x50
)

// CommandMax is the size of the controller's command buffer and therefore
// the hard ceiling on a single write payload or read request.
const CommandMax = 32

// Speed selects one of the four bus clock bands of the SET command.
type Speed uint8

const (
	Speed20KHz  Speed = 0
	Speed100KHz Speed = 1
	Speed400KHz Speed = 2
	Speed750KHz Speed = 3
)

func (s Speed) String() string {
	switch s {
	case Speed20KHz:
		return "20kHz"
	case Speed100KHz:
		return "100kHz"
	case Speed400KHz:
		return "400kHz"
	case Speed750KHz:
		return "750kHz"
	default:
		return "unknown"
	}
}

// speedFor maps a requested clock frequency to a band, rounding down to
// 20, 100, 400 or 750kHz. Every frequency selects exactly one band.
func speedFor(f physic.Frequency) Speed {
	switch {
	case f < 100*physic.KiloHertz:
		return Speed20KHz
	case f < 400*physic.KiloHertz:
		return Speed100KHz
	case f < 750*physic.KiloHertz:
		return Speed400KHz
	default:
		return Speed750KHz
	}
}

// encodeAddr composes the byte sent on the wire during the address phase:
// the 7-bit device address in the high bits, the direction bit in bit 0.
func encodeAddr(addr uint16, read bool) byte {
	b := byte(addr&0x7F) << 1
	if read {
		b |= 1
	}
	return b
}

func startFrame() []byte {
	return []byte{cmdI2CStream, opStart, opEnd}
}

func stopFrame() []byte {
	return []byte{cmdI2CStream, opStop, opEnd}
}

// writeFrame builds an OUT command carrying p. p must fit the command
// buffer; oversized payloads are rejected, never truncated.
func writeFrame(p []byte) ([]byte, error) {
	if len(p) == 0 || len(p) > CommandMax {
		return nil, ErrPayloadTooLarge
	}
	f := make([]byte, 0, len(p)+3)
	f = append(f, cmdI2CStream, opOut)
	f = append(f, p...)
	return append(f, opEnd), nil
}

// readFrame builds an IN command requesting n bytes. n is packed into the
// low bits of the opcode, so it must be 1..CommandMax.
func readFrame(n int) ([]byte, error) {
	if n < 1 || n > CommandMax {
		return nil, ErrInvalidReadLength
	}
	return []byte{cmdI2CStream, opIn | byte(n), opEnd}, nil
}

// speedFrame builds a SET command for the given band. Bits 7 and 2 of the
// opcode select SPI modes and must stay clear, so the band is masked to its
// 2-bit field.
func speedFrame(s Speed) []byte {
	return []byte{cmdI2CStream, opSet | byte(s&0x03), opEnd}
}
