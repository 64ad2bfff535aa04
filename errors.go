// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned when a write payload does not fit the
	// controller's 32 byte command buffer. No bus traffic occurs.
	ErrPayloadTooLarge = errors.New("ch341: payload exceeds the 32 byte command buffer")
	// ErrInvalidReadLength is returned when a read length is outside 1..32.
	// No bus traffic occurs.
	ErrInvalidReadLength = errors.New("ch341: read length must be between 1 and 32")
	// ErrMissingRegister is returned when a combined write-then-read access
	// is requested without a register offset to write first.
	ErrMissingRegister = errors.New("ch341: combined read requires a register offset")
	// ErrInvalidAddress is returned when an address does not fit the 7-bit
	// space. 10-bit addressing is not supported by the chip.
	ErrInvalidAddress = errors.New("ch341: address exceeds the 7-bit range")
	// ErrShortWrite is returned when the bulk-out endpoint accepted fewer
	// bytes than one command frame.
	ErrShortWrite = errors.New("ch341: short write on bulk out endpoint")
	// ErrShortRead is returned when the bulk-in endpoint delivered fewer
	// bytes than a fixed-length read requested.
	ErrShortRead = errors.New("ch341: short read on bulk in endpoint")
)

// Phase identifies the write phase of a transaction a NAK was seen on.
type Phase int

const (
	// PhaseAddress is the address byte following a START.
	PhaseAddress Phase = iota
	// PhaseRegister is the register offset written before the data.
	PhaseRegister
	// PhaseData is the payload itself.
	PhaseData
)

func (p Phase) String() string {
	switch p {
	case PhaseAddress:
		return "address"
	case PhaseRegister:
		return "register"
	case PhaseData:
		return "data"
	default:
		return "unknown"
	}
}

// NAKError reports that the device did not acknowledge a byte written during
// the given phase. The transaction was aborted and the bus released with a
// STOP. A NAK is a bus condition, not a transport fault: the link to the
// controller is fine, the addressed device declined.
type NAKError struct {
	Phase Phase
}

func (e *NAKError) Error() string {
	return fmt.Sprintf("ch341: no acknowledge for %s byte", e.Phase)
}
