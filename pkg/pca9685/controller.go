// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package pca9685

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"
)

// byteOrder of the 16-bit LEDn_ON/LEDn_OFF registers (_L first).
var byteOrder = binary.LittleEndian

// Controller drives a single PCA9685 chip.
// It performs no locking; callers sharing a Controller between
// goroutines must serialize access themselves.
type Controller struct {
	adapter BusAdapter
	address uint8
	clockHz int
	log     zerolog.Logger
	sleep   func(time.Duration)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithClockFrequency sets the frequency (in Hz) of the clock driving the
// chip. Use this when an external clock is connected.
func WithClockFrequency(clockHz int) Option {
	return func(c *Controller) {
		c.clockHz = clockHz
	}
}

// New creates a Controller for the chip at given address and puts it in
// its normal operating state: internal clock, register auto-increment,
// not sleeping, no pending restart.
func New(ctx context.Context, adapter BusAdapter, address uint8, opts ...Option) (*Controller, error) {
	if address < MinAddress || address > MaxAddress {
		return nil, invalidArgument("device address must be in 0x%02x..0x%02x range, got 0x%02x", MinAddress, MaxAddress, address)
	}
	c := &Controller{
		adapter: adapter,
		address: address,
		clockHz: InternalClockFrequency,
		log:     zerolog.Nop(),
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clockHz <= 0 {
		return nil, invalidArgument("clock frequency must be positive, got %d", c.clockHz)
	}
	c.log = c.log.With().Str("component", "pca9685").Str("address", formatAddress(address)).Logger()
	if _, err := c.Mode1(ctx, Mode1{
		Restart:       Bool(false),
		ExternalClock: Bool(false),
		AutoIncrement: Bool(true),
		Sleep:         Bool(false),
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// Address returns the bus address of the chip.
func (c *Controller) Address() uint8 {
	return c.address
}

// ClockFrequency returns the configured clock frequency in Hz.
func (c *Controller) ClockFrequency() int {
	return c.clockHz
}

// readByte reads a single byte register.
func (c *Controller) readByte(ctx context.Context, reg uint8) (uint8, error) {
	data, err := c.adapter.ReadRegister(ctx, c.address, reg, 1)
	if err != nil {
		return 0, busError("read", reg, err)
	}
	if len(data) < 1 {
		return 0, busError("read", reg, errShortRead)
	}
	return data[0], nil
}

// writeByte writes a single byte register.
func (c *Controller) writeByte(ctx context.Context, reg, value uint8) error {
	if err := c.adapter.WriteRegister(ctx, c.address, reg, uint32(value), 1, byteOrder); err != nil {
		return busError("write", reg, err)
	}
	return nil
}

// readPair reads a LEDn_ON/LEDn_OFF register pair in one transaction.
func (c *Controller) readPair(ctx context.Context, reg uint8) (Output, error) {
	var buf [4]byte
	if err := c.adapter.ReadBuffer(ctx, c.address, reg, buf[:]); err != nil {
		return Output{}, busError("read buffer", reg, err)
	}
	return outputFromWords(byteOrder.Uint16(buf[0:]), byteOrder.Uint16(buf[2:])), nil
}

// writePair writes a LEDn_ON/LEDn_OFF register pair in one transaction.
func (c *Controller) writePair(ctx context.Context, reg uint8, o Output) error {
	var buf [4]byte
	on, off := o.words()
	byteOrder.PutUint16(buf[0:], on)
	byteOrder.PutUint16(buf[2:], off)
	if err := c.adapter.WriteBuffer(ctx, c.address, reg, buf[:]); err != nil {
		return busError("write buffer", reg, err)
	}
	return nil
}
