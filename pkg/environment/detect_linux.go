//    Copyright 2018 Ewout Prangsma
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

//go:build linux

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// DefaultBusLocation is the I2C bus exposed on the Raspberry Pi header.
const DefaultBusLocation = "/dev/i2c-1"

// AutoDetectBridgeType detects the default bridge type based on the environment.
// ARM hosts with an I2C bus use the Raspberry Pi bridge, everything else
// falls back to the virtual bridge.
func AutoDetectBridgeType(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Debug().Err(err).Msg("uname failed; using virtual bridge")
		return BridgeTypeVirtual
	}
	machine := strings.TrimRight(string(name.Machine[:]), "\x00")
	if !strings.HasPrefix(machine, "arm") && machine != "aarch64" {
		return BridgeTypeVirtual
	}
	if _, err := os.Stat(DefaultBusLocation); err != nil {
		log.Debug().Str("machine", machine).Msg("No I2C bus found; using virtual bridge")
		return BridgeTypeVirtual
	}
	return BridgeTypeRaspberryPi
}
