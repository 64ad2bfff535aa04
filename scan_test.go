// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

import (
	"errors"
	"testing"
)

// scanOps scripts a full sweep against a bus with devices at the given
// addresses. Only the 128 addresses of the 7-bit space reach the wire.
func scanOps(present map[uint16]bool) []chanIO {
	var ops []chanIO
	for addr := uint16(0); addr < 0x80; addr++ {
		status := byte(nakStatus)
		if present[addr] {
			status = ackStatus
		}
		ops = append(ops, ioStart(), ioOut(status, encodeAddr(addr, false)), ioStop())
	}
	return ops
}

func TestScan(t *testing.T) {
	p := &playback{t: t, ops: scanOps(map[uint16]bool{0x50: true})}
	got, err := New(p).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0x50 {
		t.Fatalf("got %#v, want [0x50]", got)
	}
	p.done()
}

func TestScanMultiple(t *testing.T) {
	p := &playback{t: t, ops: scanOps(map[uint16]bool{0x1D: true, 0x50: true, 0x76: true})}
	got, err := New(p).Scan()
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0x1D, 0x50, 0x76}
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %#v, want %#v in ascending order", got, want)
		}
	}
	p.done()
}

func TestScanEmptyBus(t *testing.T) {
	p := &playback{t: t, ops: scanOps(nil)}
	got, err := New(p).Scan()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %#v, want no devices", got)
	}
	p.done()
}

// A channel fault mid-sweep aborts the scan instead of reporting an empty
// bus.
func TestScanTransportFault(t *testing.T) {
	fault := errors.New("endpoint gone")
	ops := scanOps(nil)[:3] // the probe of address 0 completes
	p := &playback{t: t, ops: ops, sendErr: fault, sendErrAt: 3}
	if _, err := New(p).Scan(); !errors.Is(err, fault) {
		t.Fatalf("got %v, want the channel fault", err)
	}
	p.done()
}
