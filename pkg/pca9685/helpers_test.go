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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/binkynet/LEDController/pkg/service/bridge"
)

const testAddress = 0x41

type testRig struct {
	ctl    *Controller
	dev    *bridge.VirtualDevice
	sleeps []time.Duration
}

// newTestRig creates a controller on a virtual PCA9685.
// Operations recorded during construction are cleared.
func newTestRig(t *testing.T) *testRig {
	t.Helper()
	bus := bridge.NewVirtualBus()
	dev := bus.AddPCA9685(testAddress)
	ctl, err := New(context.Background(), bridge.NewBusAdapter(bus), testAddress)
	require.NoError(t, err)
	rig := &testRig{ctl: ctl, dev: dev}
	ctl.sleep = func(d time.Duration) {
		rig.sleeps = append(rig.sleeps, d)
	}
	dev.ResetOps()
	return rig
}
