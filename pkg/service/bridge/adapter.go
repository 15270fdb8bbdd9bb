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

package bridge

import (
	"context"
	"encoding/binary"
	"fmt"
)

// BusAdapter gives register oriented access to devices on an I2CBus.
// Every method is executed as a single bus operation.
type BusAdapter struct {
	bus I2CBus
}

// NewBusAdapter creates a BusAdapter on top of the given bus.
func NewBusAdapter(bus I2CBus) *BusAdapter {
	return &BusAdapter{bus: bus}
}

// ReadRegister reads byteCount bytes starting at register reg.
func (a *BusAdapter) ReadRegister(ctx context.Context, address, reg uint8, byteCount int) ([]byte, error) {
	if byteCount < 1 {
		return nil, fmt.Errorf("byte count must be positive, got %d", byteCount)
	}
	result := make([]byte, byteCount)
	if err := a.ReadBuffer(ctx, address, reg, result); err != nil {
		return nil, err
	}
	return result, nil
}

// WriteRegister writes the lower byteCount bytes of value, in given byte
// order, starting at register reg.
func (a *BusAdapter) WriteRegister(ctx context.Context, address, reg uint8, value uint32, byteCount int, order binary.ByteOrder) error {
	buf, err := encodeValue(value, byteCount, order)
	if err != nil {
		return err
	}
	return a.WriteBuffer(ctx, address, reg, buf)
}

// ReadBuffer fills buf with consecutive registers starting at reg.
func (a *BusAdapter) ReadBuffer(ctx context.Context, address, reg uint8, buf []byte) error {
	if err := a.bus.Execute(ctx, address, func(ctx context.Context, dev I2CDevice) error {
		if len(buf) == 1 {
			val, err := dev.ReadByteReg(reg)
			if err != nil {
				return err
			}
			buf[0] = val
			return nil
		}
		return dev.ReadBlockReg(reg, buf)
	}); err != nil {
		return err
	}
	adapterBytesTotal.WithLabelValues("read").Add(float64(len(buf)))
	return nil
}

// WriteBuffer writes buf to consecutive registers starting at reg.
func (a *BusAdapter) WriteBuffer(ctx context.Context, address, reg uint8, buf []byte) error {
	if err := a.bus.Execute(ctx, address, func(ctx context.Context, dev I2CDevice) error {
		if len(buf) == 1 {
			return dev.WriteByteReg(reg, buf[0])
		}
		return dev.WriteBlockReg(reg, buf)
	}); err != nil {
		return err
	}
	adapterBytesTotal.WithLabelValues("write").Add(float64(len(buf)))
	return nil
}

// encodeValue returns the lower byteCount bytes of value in given order.
func encodeValue(value uint32, byteCount int, order binary.ByteOrder) ([]byte, error) {
	if byteCount < 1 || byteCount > 4 {
		return nil, fmt.Errorf("byte count must be in 1..4 range, got %d", byteCount)
	}
	if byteCount < 4 && value>>(8*uint(byteCount)) != 0 {
		return nil, fmt.Errorf("value 0x%x does not fit in %d bytes", value, byteCount)
	}
	if order == nil {
		order = binary.LittleEndian
	}
	var full [4]byte
	order.PutUint32(full[:], value)
	if order == binary.BigEndian {
		return full[4-byteCount:], nil
	}
	return full[:byteCount], nil
}
