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

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/LEDController/pkg/pca9685"
)

func TestConfigure(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)

	err := rig.svc.Configure(ctx, Config{
		FrequencyHz: 100,
		Output:      OutputConfig{HighImpedance: true},
		SubAddresses: []SubAddressConfig{
			{ID: 0, Address: 0x55, Enabled: true},
			{ID: 3, Address: 0x70, Enabled: false},
		},
		All:      intPtr(10),
		Channels: map[int]int{3: 50, 15: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(60), rig.dev.Register(0xFE))
	assert.Equal(t, uint8(0x06), rig.dev.Register(0x01), "MODE2: OUTDRV, OUTNE=2")
	assert.Equal(t, uint8(0xAA), rig.dev.Register(0x02))
	assert.Equal(t, uint8(0xE0), rig.dev.Register(0x05))
	assert.Equal(t, uint8(0x28), rig.dev.Register(0x00), "MODE1: AI, SUB1")
	assert.True(t, rig.bridge.OutputEnabled())

	duties, err := rig.svc.DutyCycles(ctx)
	require.NoError(t, err)
	require.Len(t, duties, 16)
	assert.Equal(t, 9, duties[0])
	assert.Equal(t, 49, duties[3])
	assert.Equal(t, 100, duties[15])
}

func TestConfigureInvalid(t *testing.T) {
	rig := newTestService(t, nil)
	rig.dev.ResetOps()
	err := rig.svc.Configure(context.Background(), Config{FrequencyHz: 5000})
	assert.True(t, pca9685.IsInvalidArgument(err))
	assert.Empty(t, rig.dev.Ops())
	assert.False(t, rig.bridge.OutputEnabled())
}

func TestConfigureAggregatesErrors(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	rig.dev.FailWrites(0xFE, assert.AnError)

	err := rig.svc.Configure(ctx, Config{Channels: map[int]int{1: 100}})
	require.Error(t, err)

	// Later steps still applied
	assert.True(t, rig.bridge.OutputEnabled())
	d, err := rig.svc.DutyCycle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, d)

	status, err := rig.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Configured)
	assert.NotEmpty(t, status.LastError)
	assert.False(t, status.Sleeping)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	require.NoError(t, rig.svc.Configure(ctx, Config{
		FrequencyHz: 50,
		Output:      OutputConfig{Inverted: true, OpenDrain: true},
		Channels:    map[int]int{2: 100, 4: 30},
	}))

	status, err := rig.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x40", status.Address)
	assert.Equal(t, pca9685.InternalClockFrequency, status.ClockHz)
	assert.Equal(t, "25 MHz", status.Clock)
	assert.Equal(t, uint8(121), status.Prescaler)
	assert.InDelta(t, 50.0, status.FrequencyHz, 0.1)
	assert.False(t, status.ExternalClock)
	assert.False(t, status.Sleeping)
	assert.True(t, status.Inverted)
	assert.True(t, status.OpenDrain)
	assert.True(t, status.Configured)
	assert.Empty(t, status.LastError)
	assert.Len(t, status.DutyCycles, 16)
	assert.Equal(t, 100, status.DutyCycles[2])
	assert.Equal(t, 29, status.DutyCycles[4])
	assert.Equal(t, 2, status.ActiveChannels)
	require.Len(t, status.SubAddresses, 4)
	assert.Equal(t, SubAddressStatus{ID: 0, Name: "SUBADR1", Address: 0x71, Enabled: false}, status.SubAddresses[0])
	assert.Equal(t, SubAddressStatus{ID: 3, Name: "ALLCALLADR", Address: 0x70, Enabled: true}, status.SubAddresses[3])
}

func TestOperations(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	svc := rig.svc

	require.NoError(t, svc.SetDutyCycle(ctx, 7, 100))
	d, err := svc.DutyCycle(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 100, d)

	require.NoError(t, svc.SetAll(ctx, 50))
	duties, err := svc.DutyCycles(ctx)
	require.NoError(t, err)
	for _, d := range duties {
		assert.Equal(t, 49, d)
	}

	require.NoError(t, svc.SetDutyCycles(ctx, pca9685.Span(0, 4), 0))
	duties, err = svc.DutyCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 49}, duties[:5])

	prescaler, err := svc.SetFrequency(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), prescaler)
	prescaler, freq, err := svc.Frequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), prescaler)
	assert.InDelta(t, 1017.25, freq, 0.1)

	require.NoError(t, svc.ConfigureOutput(ctx, OutputConfig{Inverted: true}))
	assert.Equal(t, uint8(0x14), rig.dev.Register(0x01))

	require.NoError(t, svc.SetSubAddress(ctx, pca9685.SubAddress2, 0x33))
	require.NoError(t, svc.EnableSubAddress(ctx, pca9685.SubAddress2, true))
	sa, err := svc.SubAddress(ctx, pca9685.SubAddress2)
	require.NoError(t, err)
	assert.Equal(t, SubAddressStatus{ID: 1, Name: "SUBADR2", Address: 0x33, Enabled: true}, sa)

	require.NoError(t, svc.SetSleep(ctx, true))
	assert.Equal(t, uint8(0x10), rig.dev.Register(0x00)&0x10)
	require.NoError(t, svc.SetSleep(ctx, false))
	assert.Equal(t, uint8(0), rig.dev.Register(0x00)&0x10)
}

func TestOperationsInvalid(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	svc := rig.svc
	rig.dev.ResetOps()

	assert.True(t, pca9685.IsInvalidArgument(svc.SetDutyCycle(ctx, 16, 50)))
	assert.True(t, pca9685.IsInvalidArgument(svc.SetAll(ctx, 101)))
	_, err := svc.SetFrequency(ctx, 10)
	assert.True(t, pca9685.IsOutOfRange(err))
	assert.True(t, pca9685.IsInvalidArgument(svc.SetSubAddress(ctx, 4, 1)))
	_, err = svc.DutyCycle(ctx, pca9685.AllChannels)
	assert.True(t, pca9685.IsInvalidArgument(err))
	assert.Empty(t, rig.dev.Writes())
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	require.NoError(t, rig.svc.Configure(ctx, Config{All: intPtr(100)}))
	require.True(t, rig.bridge.OutputEnabled())

	require.NoError(t, rig.svc.Close(ctx))
	assert.False(t, rig.bridge.OutputEnabled())
	assert.Equal(t, uint8(0x10), rig.dev.Register(0x00)&0x10, "sleeping")
	for i := 0; i < 16; i++ {
		assert.Equal(t, uint8(0x10), rig.dev.Register(uint8(6+4*i+3)), "LED%d_OFF_H full off", i)
	}
}

func TestCloseBusFailure(t *testing.T) {
	ctx := context.Background()
	rig := newTestService(t, nil)
	require.NoError(t, rig.bridge.SetOutputEnabled(true))
	rig.dev.FailWrites(0xFA, assert.AnError)

	err := rig.svc.Close(ctx)
	require.Error(t, err)
	// Remaining steps still applied
	assert.False(t, rig.bridge.OutputEnabled())
	assert.Equal(t, uint8(0x10), rig.dev.Register(0x00)&0x10)
}
