// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ch341 provides a driver for the WCH CH341A/CH341T USB bridge
// controller in I2C master mode.
//
// The controller executes short vendor command frames delivered over a bulk
// endpoint pair and drives the physical SCL/SDA lines on the caller's
// behalf. The driver translates I2C transactions into those frames and
// interprets the per-byte acknowledge status the controller reports back.
//
// Dev implements i2c.Bus, so any periph.io device driver can run on top of a
// CH341 through an i2c.Dev. The smbus style register helpers (ReadReg,
// WriteReg, ...) cover the common combined write-then-read access pattern
// directly.
//
// The command buffer of the chip holds at most 32 payload bytes per command;
// larger transfers must be split into separate transactions by the caller.
//
// Datasheet: https://www.wch-ic.com/products/CH341.html
package ch341
