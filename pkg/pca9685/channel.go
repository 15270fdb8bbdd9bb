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
	"fmt"

	"github.com/samber/lo"
)

// Channel identifies a single PWM output (0..15).
type Channel int

// AllChannels addresses all outputs at once through the ALL_LED registers.
const AllChannels Channel = -1

// String returns a human readable form of the channel.
func (ch Channel) String() string {
	if ch == AllChannels {
		return "all"
	}
	return fmt.Sprintf("%d", int(ch))
}

// validate returns an error when ch is neither a valid output nor AllChannels.
func (ch Channel) validate() error {
	if ch == AllChannels || (ch >= 0 && ch < ChannelCount) {
		return nil
	}
	return invalidArgument("channel must be in 0..%d range, got %d", ChannelCount-1, int(ch))
}

// RegisterPair returns the address of the LEDn_ON_L and LEDn_OFF_L
// registers of the given channel.
// Each of these starts a 2 byte (little endian) register.
func RegisterPair(ch Channel) (on, off uint8, err error) {
	if err := ch.validate(); err != nil {
		return 0, 0, err
	}
	if ch == AllChannels {
		return regAllLEDOn, regAllLEDOff, nil
	}
	on = uint8(regLEDBase + regIncrement*int(ch))
	return on, on + regOffOffset, nil
}

type selectorKind uint8

const (
	selectSingle selectorKind = iota
	selectList
	selectAll
)

// Selector selects one, several or all channels.
type Selector struct {
	kind     selectorKind
	channels []Channel
}

// Single selects a single channel.
// Single(AllChannels) is the same as All().
func Single(ch Channel) Selector {
	if ch == AllChannels {
		return All()
	}
	return Selector{kind: selectSingle, channels: []Channel{ch}}
}

// Channels selects an explicit ordered list of channels.
func Channels(chs ...Channel) Selector {
	return Selector{kind: selectList, channels: append([]Channel(nil), chs...)}
}

// Span selects the channels from..to-1 in ascending order.
func Span(from, to Channel) Selector {
	if to < from {
		return Selector{kind: selectList}
	}
	return Selector{kind: selectList, channels: lo.RangeFrom(from, int(to-from))}
}

// All selects all channels.
func All() Selector {
	return Selector{kind: selectAll}
}

// IsAll returns true when the selector addresses all channels.
func (s Selector) IsAll() bool {
	return s.kind == selectAll
}

// Channels returns the ordered list of selected channels.
// All is expanded to 0..15.
func (s Selector) Channels() []Channel {
	if s.kind == selectAll {
		return lo.RangeFrom(Channel(0), ChannelCount)
	}
	return append([]Channel(nil), s.channels...)
}

// validate checks every selected channel.
func (s Selector) validate() error {
	for _, ch := range s.channels {
		if ch == AllChannels {
			return invalidArgument("broadcast channel cannot be part of a channel list")
		}
		if err := ch.validate(); err != nil {
			return err
		}
	}
	return nil
}

// String returns a human readable form of the selector.
func (s Selector) String() string {
	if s.kind == selectAll {
		return "all"
	}
	return fmt.Sprintf("%v", s.channels)
}
