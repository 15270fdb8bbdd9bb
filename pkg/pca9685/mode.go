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

// Bool returns a pointer to b, for use in Mode1 and Mode2 fields.
func Bool(b bool) *bool {
	return &b
}

// Mode1 holds the fields of the MODE1 register.
// A nil field leaves the corresponding bit unchanged.
type Mode1 struct {
	Restart       *bool // bit 7
	ExternalClock *bool // bit 6
	AutoIncrement *bool // bit 5
	Sleep         *bool // bit 4, low power mode, oscillator off
	SubAddress1   *bool // bit 3, respond to SUBADR1
	SubAddress2   *bool // bit 2, respond to SUBADR2
	SubAddress3   *bool // bit 1, respond to SUBADR3
	AllCall       *bool // bit 0, respond to ALLCALLADR
}

// OutputNotEnabled selects the state of the outputs while the OE pin is high.
type OutputNotEnabled uint8

const (
	// OutputNotEnabledLow drives the outputs low.
	OutputNotEnabledLow OutputNotEnabled = 0
	// OutputNotEnabledDriver drives the outputs high with a totem pole
	// structure, high impedance with open drain.
	OutputNotEnabledDriver OutputNotEnabled = 1
	// OutputNotEnabledHighImpedance puts the outputs in high impedance.
	OutputNotEnabledHighImpedance OutputNotEnabled = 2
)

// Mode2 holds the fields of the MODE2 register.
// A nil field leaves the corresponding bits unchanged.
type Mode2 struct {
	Inverted          *bool             // bit 4
	OutputChangeOnAck *bool             // bit 3, change on ACK instead of STOP
	TotemPole         *bool             // bit 2, totem pole instead of open drain
	NotEnabled        *OutputNotEnabled // bits 1..0
}

// isEmpty returns true when no field is set.
func (m Mode1) isEmpty() bool {
	return m.Restart == nil && m.ExternalClock == nil && m.AutoIncrement == nil && m.Sleep == nil &&
		m.SubAddress1 == nil && m.SubAddress2 == nil && m.SubAddress3 == nil && m.AllCall == nil
}

// apply returns val with the bits of all set fields replaced.
func (m Mode1) apply(val uint8) uint8 {
	val = setBit(val, mode1Restart, m.Restart)
	val = setBit(val, mode1ExtClk, m.ExternalClock)
	val = setBit(val, mode1AI, m.AutoIncrement)
	val = setBit(val, mode1Sleep, m.Sleep)
	val = setBit(val, mode1Sub1, m.SubAddress1)
	val = setBit(val, mode1Sub2, m.SubAddress2)
	val = setBit(val, mode1Sub3, m.SubAddress3)
	val = setBit(val, mode1AllCall, m.AllCall)
	return val
}

func (m Mode2) isEmpty() bool {
	return m.Inverted == nil && m.OutputChangeOnAck == nil && m.TotemPole == nil && m.NotEnabled == nil
}

func (m Mode2) validate() error {
	if m.NotEnabled != nil && *m.NotEnabled > OutputNotEnabledHighImpedance {
		return invalidArgument("output not enabled mode must be in 0..2 range, got %d", *m.NotEnabled)
	}
	return nil
}

func (m Mode2) apply(val uint8) uint8 {
	val = setBit(val, mode2Invrt, m.Inverted)
	val = setBit(val, mode2Och, m.OutputChangeOnAck)
	val = setBit(val, mode2Outdrv, m.TotemPole)
	if m.NotEnabled != nil {
		val = (val &^ mode2OutneMask) | uint8(*m.NotEnabled)
	}
	return val
}

// setBit clears bit n of val and sets it to *v, unless v is nil.
func setBit(val uint8, n uint, v *bool) uint8 {
	if v == nil {
		return val
	}
	val &^= 1 << n
	if *v {
		val |= 1 << n
	}
	return val
}

// Mode1 reads the MODE1 register and updates the bits of all non-nil
// fields of m. Other bits are left unchanged.
// If no field is set, the register is only read.
// Returns the (resulting) register value.
func (c *Controller) Mode1(ctx context.Context, m Mode1) (uint8, error) {
	val, err := c.readByte(ctx, regMode1)
	if err != nil {
		return 0, err
	}
	if m.isEmpty() {
		return val, nil
	}
	val = m.apply(val)
	if err := c.writeByte(ctx, regMode1, val); err != nil {
		return 0, err
	}
	c.log.Debug().Uint8("mode1", val).Msg("Updated MODE1")
	return val, nil
}

// Mode2 reads the MODE2 register and updates the bits of all non-nil
// fields of m. Other bits are left unchanged.
// If no field is set, the register is only read.
// Returns the (resulting) register value.
func (c *Controller) Mode2(ctx context.Context, m Mode2) (uint8, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	val, err := c.readByte(ctx, regMode2)
	if err != nil {
		return 0, err
	}
	if m.isEmpty() {
		return val, nil
	}
	val = m.apply(val)
	if err := c.writeByte(ctx, regMode2, val); err != nil {
		return 0, err
	}
	c.log.Debug().Uint8("mode2", val).Msg("Updated MODE2")
	return val, nil
}

// SleepMode returns true when the oscillator is off (low power mode).
func (c *Controller) SleepMode(ctx context.Context) (bool, error) {
	val, err := c.Mode1(ctx, Mode1{})
	if err != nil {
		return false, err
	}
	return val&(1<<mode1Sleep) != 0, nil
}

// SetSleepMode enters or leaves low power mode.
// After leaving, the oscillator needs 500us to stabilize.
func (c *Controller) SetSleepMode(ctx context.Context, sleep bool) error {
	_, err := c.Mode1(ctx, Mode1{Sleep: Bool(sleep)})
	return err
}

// ExternalClock returns true when the chip uses the EXTCLK pin as clock.
func (c *Controller) ExternalClock(ctx context.Context) (bool, error) {
	val, err := c.Mode1(ctx, Mode1{})
	if err != nil {
		return false, err
	}
	return val&(1<<mode1ExtClk) != 0, nil
}

// SetExternalClock selects the EXTCLK pin (true) or the internal
// oscillator (false) as clock source.
func (c *Controller) SetExternalClock(ctx context.Context, external bool) error {
	_, err := c.Mode1(ctx, Mode1{ExternalClock: Bool(external)})
	return err
}

// ConfigureOutput configures the output stage of all channels.
// With openDrain, outputs are active low (LED cathode to the pin);
// otherwise a totem pole structure is used.
// With highImpedance, outputs float while the OE pin is high, otherwise
// they are driven low.
func (c *Controller) ConfigureOutput(ctx context.Context, inverted, openDrain, highImpedance bool) error {
	notEnabled := OutputNotEnabledLow
	if highImpedance {
		notEnabled = OutputNotEnabledHighImpedance
	}
	_, err := c.Mode2(ctx, Mode2{
		Inverted:   Bool(inverted),
		TotemPole:  Bool(!openDrain),
		NotEnabled: &notEnabled,
	})
	return err
}

// IsOutputInverted returns true when the output logic is inverted.
func (c *Controller) IsOutputInverted(ctx context.Context) (bool, error) {
	val, err := c.Mode2(ctx, Mode2{})
	if err != nil {
		return false, err
	}
	return val&(1<<mode2Invrt) != 0, nil
}

// IsOutputOpenDrain returns true when the outputs use an open drain structure.
func (c *Controller) IsOutputOpenDrain(ctx context.Context) (bool, error) {
	val, err := c.Mode2(ctx, Mode2{})
	if err != nil {
		return false, err
	}
	return val&(1<<mode2Outdrv) == 0, nil
}
