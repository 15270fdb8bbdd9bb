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

import "strconv"

// Register addresses
const (
	regMode1      = 0x00
	regMode2      = 0x01
	regSubAddr1   = 0x02
	regSubAddr2   = 0x03
	regSubAddr3   = 0x04
	regAllCallAdr = 0x05
	regLEDBase    = 0x06 // LED0_ON_L
	regAllLEDOn   = 0xFA // ALL_LED_ON_L
	regAllLEDOff  = 0xFC // ALL_LED_OFF_L
	regPrescale   = 0xFE

	regIncrement = 4 // ON_L, ON_H, OFF_L, OFF_H
	regOffOffset = 2
)

// MODE1 bits
const (
	mode1Restart  = 7
	mode1ExtClk   = 6
	mode1AI       = 5
	mode1Sleep    = 4
	mode1Sub1     = 3
	mode1Sub2     = 2
	mode1Sub3     = 1
	mode1AllCall  = 0
	mode1SubsMask = 0b1111
)

// MODE2 bits
const (
	mode2Invrt     = 4
	mode2Och       = 3
	mode2Outdrv    = 2
	mode2OutneMask = 0b11
)

// LEDn_ON / LEDn_OFF words
const (
	fullBit     = 1 << 12 // full on (ON word) / full off (OFF word)
	counterMask = 0x0FFF
	ticks       = 4096
	// MaxDelay is the largest value of an on or off delay counter.
	MaxDelay = ticks - 1
)

const (
	// ChannelCount is the number of PWM outputs of the chip.
	ChannelCount = 16
	// DefaultAddress is the bus address of a chip with all address pins low.
	DefaultAddress = 0x40
	// MinAddress and MaxAddress bound the valid device addresses.
	MinAddress = 0x40
	MaxAddress = 0x7F
	// InternalClockFrequency is the frequency of the internal oscillator in Hz.
	InternalClockFrequency = 25000000
	// MinFrequency and MaxFrequency bound the PWM frequency in Hz
	// given the internal oscillator.
	MinFrequency = 24
	MaxFrequency = 1526
	// MinPrescaler and MaxPrescaler bound the PRE_SCALE register.
	MinPrescaler = 3
	MaxPrescaler = 255
	// MaxSubAddress is the largest 7-bit sub-address.
	MaxSubAddress = 0x7F
)

func formatAddress(address uint8) string {
	return "0x" + strconv.FormatUint(uint64(address), 16)
}
