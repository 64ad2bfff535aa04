// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

// scanLimit is the number of candidate addresses the vendor diagnostic tool
// sweeps. It runs past the 7-bit space; Detect answers the excess locally
// without bus traffic.
const scanLimit = 250

// Scan probes every candidate address in ascending order and returns the
// ones that acknowledged. Each call is an independent fresh sweep. A channel
// fault aborts the scan; an address that merely does not answer does not.
func (d *Dev) Scan() ([]uint16, error) {
	var found []uint16
	for addr := uint16(0); addr < scanLimit; addr++ {
		present, err := d.Detect(addr)
		if err != nil {
			return nil, err
		}
		if present {
			found = append(found, addr)
		}
	}
	return found, nil
}
