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

func TestSubAddressResetValues(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)
	expected := map[SubAddressID]uint8{
		SubAddress1:    0x71,
		SubAddress2:    0x72,
		SubAddress3:    0x74,
		AllCallAddress: 0x70,
	}
	for id, addr := range expected {
		actual, err := rig.ctl.SubAddress(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, addr, actual, id.String())
	}
}

func TestSetSubAddress(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	require.NoError(t, rig.ctl.SetSubAddress(ctx, AllCallAddress, 0x55))
	assert.Equal(t, uint8(0xAA), rig.dev.Register(regAllCallAdr))
	addr, err := rig.ctl.SubAddress(ctx, AllCallAddress)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x55), addr)

	require.NoError(t, rig.ctl.SetSubAddress(ctx, SubAddress2, MaxSubAddress))
	assert.Equal(t, uint8(0xFE), rig.dev.Register(regSubAddr2))
}

func TestSubAddressValidation(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	assert.True(t, IsInvalidArgument(rig.ctl.SetSubAddress(ctx, SubAddress1, 0x80)))
	assert.True(t, IsInvalidArgument(rig.ctl.SetSubAddress(ctx, 4, 0x10)))
	assert.True(t, IsInvalidArgument(rig.ctl.EnableSubAddress(ctx, -1, true)))
	_, err := rig.ctl.SubAddress(ctx, 4)
	assert.True(t, IsInvalidArgument(err))
	_, err = rig.ctl.IsSubAddressEnabled(ctx, 4)
	assert.True(t, IsInvalidArgument(err))
	assert.Empty(t, rig.dev.Ops())
	assert.Equal(t, "invalid", SubAddressID(4).String())
}

func TestEnableSubAddress(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t)

	// ALLCALL is enabled after reset, the others are not
	for id, expected := range map[SubAddressID]bool{SubAddress1: false, SubAddress2: false, SubAddress3: false, AllCallAddress: true} {
		enabled, err := rig.ctl.IsSubAddressEnabled(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expected, enabled, id.String())
	}

	tests := []struct {
		id  SubAddressID
		bit uint8
	}{
		{SubAddress1, 0x08},
		{SubAddress2, 0x04},
		{SubAddress3, 0x02},
		{AllCallAddress, 0x01},
	}
	for _, test := range tests {
		rig.dev.SetRegister(regMode1, 0x20)
		require.NoError(t, rig.ctl.EnableSubAddress(ctx, test.id, true))
		assert.Equal(t, 0x20|test.bit, rig.dev.Register(regMode1), test.id.String())
		enabled, err := rig.ctl.IsSubAddressEnabled(ctx, test.id)
		require.NoError(t, err)
		assert.True(t, enabled)

		require.NoError(t, rig.ctl.EnableSubAddress(ctx, test.id, false))
		assert.Equal(t, uint8(0x20), rig.dev.Register(regMode1), test.id.String())
	}
}
