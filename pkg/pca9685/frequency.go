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
	"time"
)

// oscillatorStartup is the time the oscillator needs after leaving sleep mode.
const oscillatorStartup = 500 * time.Microsecond

// Prescaler returns the content of the PRE_SCALE register.
func (c *Controller) Prescaler(ctx context.Context) (uint8, error) {
	return c.readByte(ctx, regPrescale)
}

// SetPrescaler writes the PRE_SCALE register.
// The chip only accepts the write while in sleep mode; that is up to the caller.
// Use SetPWMFrequency to do it all in one go.
func (c *Controller) SetPrescaler(ctx context.Context, prescaler int) error {
	if prescaler < MinPrescaler || prescaler > MaxPrescaler {
		return invalidArgument("prescaler must be in %d..%d range, got %d", MinPrescaler, MaxPrescaler, prescaler)
	}
	return c.writeByte(ctx, regPrescale, uint8(prescaler))
}

// SetPWMFrequency programs the PWM frequency (in Hz) of all outputs.
// The chip is put to sleep while the prescaler is written and is always
// woken up again afterwards, also when the write failed.
// Returns the prescaler that was written.
func (c *Controller) SetPWMFrequency(ctx context.Context, freqHz int) (_ uint8, err error) {
	prescaler, err := ComputePrescaler(freqHz, c.clockHz)
	if err != nil {
		return 0, err
	}
	if err := c.SetSleepMode(ctx, true); err != nil {
		return 0, err
	}
	defer func() {
		wakeErr := c.SetSleepMode(ctx, false)
		c.sleep(oscillatorStartup)
		if wakeErr != nil {
			if err == nil {
				err = wakeErr
			} else {
				c.log.Error().Err(wakeErr).Msg("Failed to leave sleep mode after failed prescaler write")
			}
		}
	}()
	if err := c.SetPrescaler(ctx, int(prescaler)); err != nil {
		return 0, err
	}
	c.log.Debug().
		Int("frequency", freqHz).
		Uint8("prescaler", prescaler).
		Msg("Changed PWM frequency")
	return prescaler, nil
}

// PWMFrequency returns the PWM frequency (in Hz) resulting from the
// current prescaler and the configured clock frequency.
func (c *Controller) PWMFrequency(ctx context.Context) (float64, error) {
	prescaler, err := c.Prescaler(ctx)
	if err != nil {
		return 0, err
	}
	return FrequencyFromPrescaler(prescaler, c.clockHz), nil
}
