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

// Output reads the register pair of the given channel.
func (c *Controller) Output(ctx context.Context, ch Channel) (Output, error) {
	if ch == AllChannels {
		return Output{}, invalidArgument("cannot read the broadcast channel")
	}
	on, _, err := RegisterPair(ch)
	if err != nil {
		return Output{}, err
	}
	return c.readPair(ctx, on)
}

// SetOutput writes the register pair of the given channel (or all
// channels with AllChannels) in a single transaction.
func (c *Controller) SetOutput(ctx context.Context, ch Channel, o Output) error {
	on, _, err := RegisterPair(ch)
	if err != nil {
		return err
	}
	if err := o.validate(); err != nil {
		return err
	}
	return c.writePair(ctx, on, o)
}

// DutyCycle returns the duty cycle (in percent) of the given channel.
func (c *Controller) DutyCycle(ctx context.Context, ch Channel) (int, error) {
	o, err := c.Output(ctx, ch)
	if err != nil {
		return 0, err
	}
	return o.DutyCycle(), nil
}

// SetDutyCycle sets the duty cycle (in percent) of the given channel,
// or of all channels with AllChannels.
func (c *Controller) SetDutyCycle(ctx context.Context, ch Channel, percent int) error {
	on, _, err := RegisterPair(ch)
	if err != nil {
		return err
	}
	o, err := EncodeDutyCycle(percent)
	if err != nil {
		return err
	}
	return c.writePair(ctx, on, o)
}

// DutyCycles returns the duty cycles (in percent) of the selected
// channels, in selector order.
// Every channel is read in a separate transaction.
func (c *Controller) DutyCycles(ctx context.Context, sel Selector) ([]int, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	chs := sel.Channels()
	result := make([]int, 0, len(chs))
	for _, ch := range chs {
		percent, err := c.DutyCycle(ctx, ch)
		if err != nil {
			return nil, err
		}
		result = append(result, percent)
	}
	return result, nil
}

// SetDutyCycles sets the duty cycle (in percent) of the selected channels.
// When all channels are selected, a single ALL_LED transaction is used.
// Otherwise channels are written one by one in selector order; the first
// failure stops the sequence.
func (c *Controller) SetDutyCycles(ctx context.Context, sel Selector, percent int) error {
	if err := sel.validate(); err != nil {
		return err
	}
	if sel.IsAll() {
		return c.SetDutyCycle(ctx, AllChannels, percent)
	}
	if _, err := EncodeDutyCycle(percent); err != nil {
		return err
	}
	for _, ch := range sel.Channels() {
		if err := c.SetDutyCycle(ctx, ch, percent); err != nil {
			return err
		}
	}
	return nil
}

// SetOn switches the selected channels fully on (100%) or off (0%).
func (c *Controller) SetOn(ctx context.Context, sel Selector, on bool) error {
	return c.SetDutyCycles(ctx, sel, percentOf(on))
}

// percentOf converts an on/off state into a duty cycle.
func percentOf(on bool) int {
	if on {
		return 100
	}
	return 0
}
