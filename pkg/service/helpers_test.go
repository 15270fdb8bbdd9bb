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

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/LEDController/pkg/mqtt"
	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service/bridge"
)

const testAddress = 0x40

type testRig struct {
	svc    *Service
	dev    *bridge.VirtualDevice
	bridge bridge.VirtualBridge
}

// newTestService creates a service on a virtual PCA9685.
// broker may be nil.
func newTestService(t *testing.T, broker mqtt.Service) *testRig {
	bus := bridge.NewVirtualBus()
	dev := bus.AddPCA9685(testAddress)
	br := bridge.NewVirtualBridge(bus)
	ctl, err := pca9685.New(context.Background(), bridge.NewBusAdapter(bus), testAddress)
	require.NoError(t, err)
	svc := NewService(Options{TopicPrefix: "led/"}, Dependencies{
		Logger:     zerolog.Nop(),
		Bridge:     br,
		Controller: ctl,
		MQTT:       broker,
	})
	return &testRig{svc: svc, dev: dev, bridge: br}
}

func intPtr(v int) *int {
	return &v
}
