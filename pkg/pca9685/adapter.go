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
	"encoding/binary"
)

// BusAdapter is the register oriented bus access used by the Controller.
// Every call is a complete transaction.
type BusAdapter interface {
	// ReadRegister reads byteCount bytes starting at register reg of the
	// device at given address.
	ReadRegister(ctx context.Context, address, reg uint8, byteCount int) ([]byte, error)
	// WriteRegister writes the lower byteCount bytes of value, in given
	// byte order, starting at register reg of the device at given address.
	WriteRegister(ctx context.Context, address, reg uint8, value uint32, byteCount int, order binary.ByteOrder) error
	// ReadBuffer fills buf with consecutive registers starting at reg.
	ReadBuffer(ctx context.Context, address, reg uint8, buf []byte) error
	// WriteBuffer writes buf to consecutive registers starting at reg.
	WriteBuffer(ctx context.Context, address, reg uint8, buf []byte) error
}
