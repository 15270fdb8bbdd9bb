//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

//go:build linux

package bridge

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"
)

type i2cBus struct {
	log                  zerolog.Logger
	location             string
	devices              map[uint8]*i2cDevice
	queue                chan func()
	sclPin               int
	tryRecoverFromLockup bool
}

const (
	// Number of SCL clock cycles used to release a stuck slave
	recoverClockCycles = 10
	// Half period of the 50kHz recovery clock
	recoverHalfPeriod = time.Second / (2 * 50000)
	sysfsGPIOUnexport = "/sys/class/gpio/unexport"
)

// NewI2CBus returns accessors the the I2C bus at the given location.
// When sclPin is not negative, a failed operation triggers a bus lockup
// recovery by clocking the SCL pin.
func NewI2CBus(log zerolog.Logger, location string, sclPin int) (I2CBus, error) {
	b := &i2cBus{
		log:                  log.With().Str("component", "i2c-bus").Str("location", location).Logger(),
		location:             location,
		devices:              make(map[uint8]*i2cDevice),
		queue:                make(chan func()),
		sclPin:               sclPin,
		tryRecoverFromLockup: sclPin >= 0,
	}
	go b.queueProcessor(context.Background())
	if b.tryRecoverFromLockup {
		if err := b.recoverFromLockup(); err != nil {
			return nil, fmt.Errorf("failed to recover bus at startup: %w", err)
		}
	}
	return b, nil
}

// Execute an option on the bus.
// Operations are executed one at a time, in the order they are queued.
func (b *i2cBus) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	result := make(chan error, 1)
	req := func() {
		result <- b.execute(ctx, address, op)
	}

	// Put request in queue
	select {
	case b.queue <- req:
		// Request is on the queue
	case <-ctx.Done():
		// Context canceled
		return ctx.Err()
	}
	return <-result
}

// Process bus requests from the queue until the given context is canceled.
func (b *i2cBus) queueProcessor(ctx context.Context) {
	// Ensure we're always using the same OS thread
	runtime.LockOSThread()

	for {
		select {
		case req, ok := <-b.queue:
			if !ok {
				// Queue closed
				return
			}
			req()
		case <-ctx.Done():
			return
		}
	}
}

// Execute an option on the bus.
// A failed operation is not retried.
func (b *i2cBus) execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	addrLabel := strconv.Itoa(int(address))
	i2cExecuteCounters.WithLabelValues(addrLabel).Inc()

	dev, err := b.openDevice(address)
	if err != nil {
		i2cExecuteErrorCounters.WithLabelValues(addrLabel).Inc()
		return fmt.Errorf("openDevice(%d) failed: %w", address, err)
	}
	if err := op(ctx, dev); err != nil {
		i2cExecuteErrorCounters.WithLabelValues(addrLabel).Inc()

		// Device call failed, close all devices
		for _, d := range b.devices {
			d.closeFile()
		}
		clear(b.devices)

		if b.tryRecoverFromLockup {
			i2cRecoveryAttemptsTotal.Inc()
			if rerr := b.recoverFromLockup(); rerr != nil {
				i2cRecoveryFailedTotal.Inc()
				b.log.Warn().Err(rerr).Msg("i2c recovery failed")
			}
		}
		return fmt.Errorf("execute operation in i2c bus failed: %w", err)
	}
	return nil
}

// Open a connection to a device at the given address.
func (b *i2cBus) openDevice(address uint8) (*i2cDevice, error) {
	if d, found := b.devices[address]; found {
		return d, nil
	}
	d, err := newI2CDevice(b.location, address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = d
	return d, nil
}

// DetectSlaveAddresses probes the bus to detect available addresses.
func (b *i2cBus) DetectSlaveAddresses() []byte {
	result := make(chan []byte, 1)
	b.queue <- func() {
		var found []byte
		for addr := uint8(1); addr < 128; addr++ {
			if d, err := newI2CDevice(b.location, addr); err == nil {
				if err := d.DetectDevice(); err == nil {
					found = append(found, addr)
				}
				d.closeFile()
			}
		}
		result <- found
	}
	return <-result
}

// Close the bus and all devices on it
func (b *i2cBus) Close() error {
	result := make(chan error, 1)
	b.queue <- func() {
		var ae aerr.AggregateError
		for addr, d := range b.devices {
			if err := d.closeFile(); err != nil {
				ae.Add(err)
			}
			delete(b.devices, addr)
		}
		result <- ae.AsError()
	}
	return <-result
}

// Try to recover the i2c bus from lockup.
func (b *i2cBus) recoverFromLockup() error {
	b.log.Info().Int("scl-pin", b.sclPin).Msg("Performing i2c recovery ...")
	activeLow := true
	initialValue := true
	scl, err := gpio.Output(b.sclPin, activeLow, initialValue)
	if err != nil {
		return fmt.Errorf("failed to set scl pin to output: %w", err)
	}
	for i := 0; i < recoverClockCycles; i++ {
		time.Sleep(recoverHalfPeriod)
		if err := scl.Write(false); err != nil {
			return fmt.Errorf("failed to lower scl during i2c recovery: %w", err)
		}
		time.Sleep(recoverHalfPeriod)
		if err := scl.Write(true); err != nil {
			return fmt.Errorf("failed to raise scl during i2c recovery: %w", err)
		}
	}
	// Reset pin to be input
	if _, err := gpio.Input(b.sclPin, activeLow); err != nil {
		return fmt.Errorf("failed to reset scl pin to input: %w", err)
	}
	// Hand the pin back to the i2c driver
	if err := os.WriteFile(sysfsGPIOUnexport, []byte(strconv.Itoa(b.sclPin)), 0644); err != nil {
		return fmt.Errorf("failed to unexport scl pin: %w", err)
	}
	b.log.Info().Msg("Performed i2c recovery.")
	return nil
}
