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

import "context"

// SubAddressID identifies one of the alternate bus addresses of the chip.
type SubAddressID int

const (
	SubAddress1    SubAddressID = 0 // SUBADR1
	SubAddress2    SubAddressID = 1 // SUBADR2
	SubAddress3    SubAddressID = 2 // SUBADR3
	AllCallAddress SubAddressID = 3 // ALLCALLADR
)

var subAddressNames = [...]string{"SUBADR1", "SUBADR2", "SUBADR3", "ALLCALLADR"}

// String returns the register name of the sub-address.
func (id SubAddressID) String() string {
	if id.validate() != nil {
		return "invalid"
	}
	return subAddressNames[id]
}

func (id SubAddressID) validate() error {
	if id < SubAddress1 || id > AllCallAddress {
		return invalidArgument("sub-address id must be in 0..3 range, got %d", int(id))
	}
	return nil
}

// register returns the address of the register holding the sub-address.
func (id SubAddressID) register() uint8 {
	return uint8(regSubAddr1 + int(id))
}

// mode1Field returns a Mode1 with only the enable bit of the sub-address set.
func (id SubAddressID) mode1Field(enabled bool) Mode1 {
	switch id {
	case SubAddress1:
		return Mode1{SubAddress1: Bool(enabled)}
	case SubAddress2:
		return Mode1{SubAddress2: Bool(enabled)}
	case SubAddress3:
		return Mode1{SubAddress3: Bool(enabled)}
	default:
		return Mode1{AllCall: Bool(enabled)}
	}
}

// SubAddress returns the 7-bit bus address stored for the given sub-address.
func (c *Controller) SubAddress(ctx context.Context, id SubAddressID) (uint8, error) {
	if err := id.validate(); err != nil {
		return 0, err
	}
	val, err := c.readByte(ctx, id.register())
	if err != nil {
		return 0, err
	}
	return val >> 1, nil
}

// SetSubAddress stores the 7-bit bus address for the given sub-address.
func (c *Controller) SetSubAddress(ctx context.Context, id SubAddressID, address uint8) error {
	if err := id.validate(); err != nil {
		return err
	}
	if address > MaxSubAddress {
		return invalidArgument("sub-address must be in 0x00..0x7f range, got 0x%02x", address)
	}
	return c.writeByte(ctx, id.register(), address<<1)
}

// EnableSubAddress makes the chip respond (or not) to the given sub-address.
func (c *Controller) EnableSubAddress(ctx context.Context, id SubAddressID, enabled bool) error {
	if err := id.validate(); err != nil {
		return err
	}
	_, err := c.Mode1(ctx, id.mode1Field(enabled))
	return err
}

// IsSubAddressEnabled returns true when the chip responds to the given sub-address.
func (c *Controller) IsSubAddressEnabled(ctx context.Context, id SubAddressID) (bool, error) {
	if err := id.validate(); err != nil {
		return false, err
	}
	val, err := c.Mode1(ctx, Mode1{})
	if err != nil {
		return false, err
	}
	bit := uint(3 - id)
	return (val&mode1SubsMask)&(1<<bit) != 0, nil
}
