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

//go:build !linux

package bridge

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RaspberryPiConfig configures the Raspberry PI bridge.
type RaspberryPiConfig struct {
	BusLocation     string
	OutputEnablePin int
	SCLPin          int
}

// NewI2CBus is only supported on linux.
func NewI2CBus(log zerolog.Logger, location string, sclPin int) (I2CBus, error) {
	return nil, fmt.Errorf("i2c: unsupported OS (need linux)")
}

// NewRaspberryPiBridge is only supported on linux.
func NewRaspberryPiBridge(log zerolog.Logger, config RaspberryPiConfig) (API, error) {
	return nil, fmt.Errorf("raspberry pi bridge: unsupported OS (need linux)")
}
