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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDutyCycle(t *testing.T) {
	tests := []struct {
		percent  int
		expected Output
	}{
		{0, Output{OnDelay: 0, OffDelay: 0, FullOff: true}},
		{1, Output{OnDelay: 0, OffDelay: 40}},
		{50, Output{OnDelay: 0, OffDelay: 2047}},
		{99, Output{OnDelay: 0, OffDelay: 4054}},
		{100, Output{OnDelay: 0, OffDelay: 4095, FullOn: true}},
	}
	for _, test := range tests {
		o, err := EncodeDutyCycle(test.percent)
		require.NoError(t, err)
		assert.Equal(t, test.expected, o, "percent %d", test.percent)
	}
}

func TestEncodeDutyCycleInvalid(t *testing.T) {
	for _, percent := range []int{-1, 101, 1000} {
		_, err := EncodeDutyCycle(percent)
		assert.True(t, IsInvalidArgument(err), "percent %d", percent)
	}
}

func TestDutyCycleRoundTrip(t *testing.T) {
	for p := 0; p <= 100; p++ {
		o, err := EncodeDutyCycle(p)
		require.NoError(t, err)
		decoded := o.DutyCycle()
		switch p {
		case 0, 100:
			assert.Equal(t, p, decoded)
		default:
			// Quantization truncates; never overshoots.
			assert.LessOrEqual(t, decoded, p)
			assert.GreaterOrEqual(t, decoded, p-1)
			assert.Equal(t, p-1, DecodeDutyCycle(o.OnDelay, o.OffDelay))
		}
	}
}

func TestDecodeDutyCycle(t *testing.T) {
	assert.Equal(t, 49, DecodeDutyCycle(0, 2047))
	assert.Equal(t, 50, DecodeDutyCycle(0, 2048))
	assert.Equal(t, 25, DecodeDutyCycle(1024, 2048))
	assert.Equal(t, 0, DecodeDutyCycle(0, 0))
	assert.Equal(t, 99, DecodeDutyCycle(0, 4095))
	// Off before on: high from 3000 to the end of the period and from 0 to 1000
	assert.Equal(t, 51, DecodeDutyCycle(3000, 1000))
	assert.Equal(t, 0, DecodeDutyCycle(4095, 4095))
	assert.Equal(t, 99, DecodeDutyCycle(1, 0))
}

func TestFullOffPriority(t *testing.T) {
	o := outputFromWords(fullBit|100, fullBit|200)
	assert.True(t, o.FullOff)
	assert.False(t, o.FullOn)
	assert.Equal(t, 0, o.DutyCycle())
	assert.Equal(t, 0, Output{FullOn: true, FullOff: true}.DutyCycle())
	assert.Equal(t, 100, outputFromWords(fullBit, 0).DutyCycle())
}

func TestOutputWords(t *testing.T) {
	on, off := Output{OnDelay: 10, OffDelay: 2047}.words()
	assert.Equal(t, uint16(10), on)
	assert.Equal(t, uint16(2047), off)

	on, off = Output{OffDelay: 4095, FullOn: true}.words()
	assert.Equal(t, uint16(0x1000), on)
	assert.Equal(t, uint16(4095), off)

	on, off = Output{FullOff: true}.words()
	assert.Equal(t, uint16(0), on)
	assert.Equal(t, uint16(0x1000), off)
}

func TestComputePrescaler(t *testing.T) {
	tests := []struct {
		freq     int
		expected uint8
	}{
		{200, 30}, // round(25e6/(4096*200) - 1) = round(29.52)
		{50, 121},
		{60, 101},
		{24, 253},
		{1000, 5},
		{1526, 3},
	}
	for _, test := range tests {
		prescaler, err := ComputePrescaler(test.freq, InternalClockFrequency)
		require.NoError(t, err)
		assert.Equal(t, test.expected, prescaler, "freq %d", test.freq)
	}
}

func TestComputePrescalerOutOfRange(t *testing.T) {
	for _, freq := range []int{0, 23, 1527, 5000} {
		_, err := ComputePrescaler(freq, InternalClockFrequency)
		assert.True(t, IsOutOfRange(err), "freq %d", freq)
		assert.True(t, IsInvalidArgument(err), "freq %d", freq)
	}
}

func TestFrequencyFromPrescaler(t *testing.T) {
	assert.InDelta(t, 196.9, FrequencyFromPrescaler(30, InternalClockFrequency), 0.1)
	assert.InDelta(t, 1525.9, FrequencyFromPrescaler(3, InternalClockFrequency), 0.1)
}
