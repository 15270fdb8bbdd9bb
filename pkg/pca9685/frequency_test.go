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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPWMFrequency(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	prescaler, err := rig.ctl.SetPWMFrequency(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, uint8(121), prescaler)
	// The virtual chip only accepts PRE_SCALE while sleeping
	assert.Equal(t, uint8(121), rig.dev.Register(regPrescale))

	sleeping, err := rig.ctl.SleepMode(ctx)
	require.NoError(t, err)
	assert.False(t, sleeping)
	require.Len(t, rig.sleeps, 1)
	assert.GreaterOrEqual(t, rig.sleeps[0], oscillatorStartup)

	actual, err := rig.ctl.Prescaler(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(121), actual)
	freq, err := rig.ctl.PWMFrequency(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, freq, 0.1)
}

func TestSetPWMFrequencyOrder(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	_, err := rig.ctl.SetPWMFrequency(ctx, 200)
	require.NoError(t, err)
	writes := rig.dev.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, uint8(regMode1), writes[0].Register)
	assert.Equal(t, uint8(regPrescale), writes[1].Register)
	assert.Equal(t, uint8(regMode1), writes[2].Register)
}

func TestSetPWMFrequencyWakesOnFailure(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)
	rig.dev.FailWrites(regPrescale, assert.AnError)

	_, err := rig.ctl.SetPWMFrequency(ctx, 200)
	require.Error(t, err)
	assert.True(t, IsBusTransactionFailed(err))
	assert.ErrorIs(t, err, assert.AnError)

	// Sleep bit must be cleared again
	assert.Equal(t, uint8(0), rig.dev.Register(regMode1)&0x10)
	require.Len(t, rig.sleeps, 1)
	assert.GreaterOrEqual(t, rig.sleeps[0], oscillatorStartup)
	assert.Equal(t, uint8(0x1E), rig.dev.Register(regPrescale))
}

func TestSetPWMFrequencyValidation(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	for _, freq := range []int{23, 1527} {
		_, err := rig.ctl.SetPWMFrequency(ctx, freq)
		assert.True(t, IsOutOfRange(err), "freq %d", freq)
	}
	assert.Empty(t, rig.dev.Ops())
	assert.Empty(t, rig.sleeps)
}

func TestSetPrescaler(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	assert.True(t, IsInvalidArgument(rig.ctl.SetPrescaler(ctx, 2)))
	assert.True(t, IsInvalidArgument(rig.ctl.SetPrescaler(ctx, 256)))
	assert.Empty(t, rig.dev.Ops())

	require.NoError(t, rig.ctl.SetSleepMode(ctx, true))
	require.NoError(t, rig.ctl.SetPrescaler(ctx, MinPrescaler))
	assert.Equal(t, uint8(3), rig.dev.Register(regPrescale))
}

func TestExternalClockFrequency(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)
	rig.ctl.clockHz = 50000000

	prescaler, err := rig.ctl.SetPWMFrequency(ctx, 200)
	require.NoError(t, err)
	// round(50e6/(4096*200) - 1) = round(60.03)
	assert.Equal(t, uint8(60), prescaler)
}
