// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ch341-i2cscan sweeps the I2C bus behind a CH341 USB bridge and lists the
// addresses that answered.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/GermanBionicSystems/ch341"
	"periph.io/x/conn/v3/physic"
)

func main() {
	speed := flag.Int("speed", 100, "bus clock in kHz, rounded down to 20/100/400/750")
	vid := flag.Uint("vid", ch341.VendorID, "USB vendor ID to match")
	pid := flag.Uint("pid", ch341.ProductID, "USB product ID to match")
	flag.Parse()

	c, err := ch341.OpenVIDPID(uint16(*vid), uint16(*pid))
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	bus := ch341.New(c)
	if err := bus.SetSpeed(physic.Frequency(*speed) * physic.KiloHertz); err != nil {
		log.Fatal(err)
	}
	addrs, err := bus.Scan()
	if err != nil {
		log.Fatal(err)
	}
	if len(addrs) == 0 {
		fmt.Println("no devices answered")
		return
	}
	fmt.Print("devices at:")
	for _, a := range addrs {
		fmt.Printf(" %#02x", a)
	}
	fmt.Println()
}
