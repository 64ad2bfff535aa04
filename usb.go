// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ch341

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// Stock USB identity of a CH341 in I2C/MEM/EPP mode.
const (
	VendorID  = 0x1a86
	ProductID = 0x5512
)

// Bulk endpoint addresses carrying the command stream.
const (
	epBulkOut = 0x02
	epBulkIn  = 0x82
)

// USBChannel is a Channel over the bulk endpoint pair of a CH341.
type USBChannel struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

// Open claims the first CH341 enumerating with the stock I2C-mode identity.
func Open() (*USBChannel, error) {
	return OpenVIDPID(VendorID, ProductID)
}

// OpenVIDPID claims the first CH341 matching the given identity, for boards
// that enumerate with a rewritten ID.
func OpenVIDPID(vid, pid uint16) (*USBChannel, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("ch341: opening device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("ch341: device not found (%04x:%04x)", vid, pid)
	}
	// The kernel serial driver may have bound the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ch341: detaching kernel driver: %w", err)
	}
	// The chip exposes a single configuration.
	if n := len(dev.Desc.Configs); n != 1 {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ch341: unexpected configuration count %d", n)
	}
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ch341: selecting configuration: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ch341: claiming interface: %w", err)
	}
	out, err := intf.OutEndpoint(epBulkOut & 0x0f)
	if err == nil {
		var in *gousb.InEndpoint
		in, err = intf.InEndpoint(epBulkIn & 0x0f)
		if err == nil {
			return &USBChannel{ctx: ctx, dev: dev, cfg: cfg, intf: intf, out: out, in: in}, nil
		}
	}
	intf.Close()
	cfg.Close()
	dev.Close()
	ctx.Close()
	return nil, fmt.Errorf("ch341: resolving bulk endpoints: %w", err)
}

// Send writes one command frame to the bulk-out endpoint.
func (c *USBChannel) Send(p []byte) (int, error) {
	return c.out.Write(p)
}

// Receive reads one inbound transfer from the bulk-in endpoint. A zero
// timeout blocks until the controller answers.
func (c *USBChannel) Receive(p []byte, timeout time.Duration) (int, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.in.ReadContext(ctx, p)
}

// Close releases the interface and the device.
func (c *USBChannel) Close() error {
	c.intf.Close()
	err := c.cfg.Close()
	if derr := c.dev.Close(); err == nil {
		err = derr
	}
	if cerr := c.ctx.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *USBChannel) String() string {
	return fmt.Sprintf("%04x:%04x", uint16(c.dev.Desc.Vendor), uint16(c.dev.Desc.Product))
}

var _ Channel = &USBChannel{}
