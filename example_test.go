//go:build examples
// +build examples

// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/ch341"
	"periph.io/x/conn/v3/physic"
)

// Scans the bus behind the first CH341 on the USB and reads the chip ID
// register of a BME280 found at 0x76.
func Example() {
	c, err := ch341.Open()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	bus := ch341.New(c)
	if err := bus.SetSpeed(100 * physic.KiloHertz); err != nil {
		log.Fatal(err)
	}

	addrs, err := bus.Scan()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Print("devices at:")
	for _, a := range addrs {
		fmt.Printf(" %#02x", a)
	}
	fmt.Println()

	id, err := bus.ReadRegByte(0x76, 0xD0)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("chip id: %#02x\n", id)
}
