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

import "math"

// Output is the decoded content of a LEDn_ON/LEDn_OFF register pair.
type Output struct {
	// OnDelay is the counter value (0..4095) at which the output rises.
	OnDelay uint16
	// OffDelay is the counter value (0..4095) at which the output falls.
	OffDelay uint16
	// FullOn forces the output high (bit 12 of LEDn_ON).
	FullOn bool
	// FullOff forces the output low (bit 12 of LEDn_OFF).
	// FullOff takes precedence over FullOn.
	FullOff bool
}

// EncodeDutyCycle converts a duty cycle in percent (0..100) into
// register pair values.
func EncodeDutyCycle(percent int) (Output, error) {
	if percent < 0 || percent > 100 {
		return Output{}, invalidArgument("duty cycle must be in 0..100 range, got %d", percent)
	}
	return Output{
		OnDelay:  0,
		OffDelay: uint16(math.Floor(float64(percent) * (0.01 * MaxDelay))),
		FullOn:   percent == 100,
		FullOff:  percent == 0,
	}, nil
}

// DecodeDutyCycle converts on/off delay counters into a duty cycle in percent.
// The result is truncated, so it never overshoots the encoded value.
// An off delay before the on delay wraps around the end of the period,
// the way the chip's counter does.
func DecodeDutyCycle(onDelay, offDelay uint16) int {
	diff := (int(offDelay) - int(onDelay)) % ticks
	if diff < 0 {
		diff += ticks
	}
	return int(math.Floor(100 * float64(diff) / ticks))
}

// DutyCycle returns the duty cycle in percent of the output.
func (o Output) DutyCycle() int {
	switch {
	case o.FullOff:
		return 0
	case o.FullOn:
		return 100
	default:
		return DecodeDutyCycle(o.OnDelay, o.OffDelay)
	}
}

// validate checks that both counters fit in 12 bits.
func (o Output) validate() error {
	if o.OnDelay > MaxDelay || o.OffDelay > MaxDelay {
		return invalidArgument("delays must be in 0..%d range, got on=%d off=%d", MaxDelay, o.OnDelay, o.OffDelay)
	}
	return nil
}

// words returns the 16-bit LEDn_ON and LEDn_OFF register values.
func (o Output) words() (on, off uint16) {
	on, off = o.OnDelay&counterMask, o.OffDelay&counterMask
	if o.FullOn {
		on = fullBit
	}
	if o.FullOff {
		off = fullBit
	}
	return on, off
}

// outputFromWords decodes 16-bit LEDn_ON and LEDn_OFF register values.
func outputFromWords(on, off uint16) Output {
	o := Output{
		OnDelay:  on & counterMask,
		OffDelay: off & counterMask,
		FullOn:   on&fullBit != 0,
		FullOff:  off&fullBit != 0,
	}
	if o.FullOff {
		o.FullOn = false
	}
	return o
}

// ComputePrescaler returns the PRE_SCALE value that produces the given
// PWM frequency (in Hz) from a clock of clockHz.
func ComputePrescaler(pwmFreqHz int, clockHz int) (uint8, error) {
	if pwmFreqHz < MinFrequency || pwmFreqHz > MaxFrequency {
		return 0, outOfRange("PWM frequency must be in %d..%d Hz range, got %d", MinFrequency, MaxFrequency, pwmFreqHz)
	}
	if clockHz <= 0 {
		return 0, invalidArgument("clock frequency must be positive, got %d", clockHz)
	}
	prescale := math.Round(float64(clockHz)/(ticks*float64(pwmFreqHz)) - 1)
	if prescale < MinPrescaler || prescale > MaxPrescaler {
		return 0, outOfRange("prescaler %v for %d Hz at clock %d Hz is outside %d..%d", prescale, pwmFreqHz, clockHz, MinPrescaler, MaxPrescaler)
	}
	return uint8(prescale), nil
}

// FrequencyFromPrescaler returns the PWM frequency (in Hz) produced by
// the given PRE_SCALE value from a clock of clockHz.
func FrequencyFromPrescaler(prescaler uint8, clockHz int) float64 {
	return float64(clockHz) / (ticks * (float64(prescaler) + 1))
}
