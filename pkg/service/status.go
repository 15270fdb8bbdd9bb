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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/binkynet/LEDController/pkg/pca9685"
)

// Status is a snapshot of the controller registers.
type Status struct {
	Address        string             `json:"address"`
	ClockHz        int                `json:"clock_hz"`
	Clock          string             `json:"clock"`
	ExternalClock  bool               `json:"external_clock"`
	Sleeping       bool               `json:"sleeping"`
	Prescaler      uint8              `json:"prescaler"`
	FrequencyHz    float64            `json:"frequency_hz"`
	Frequency      string             `json:"frequency"`
	Inverted       bool               `json:"inverted"`
	OpenDrain      bool               `json:"open_drain"`
	SubAddresses   []SubAddressStatus `json:"sub_addresses"`
	DutyCycles     []int              `json:"duty_cycles"`
	ActiveChannels int                `json:"active_channels"`
	Configured     bool               `json:"configured"`
	LastError      string             `json:"last_error,omitempty"`
	Uptime         string             `json:"uptime"`
}

// SubAddressStatus holds the state of one sub-address.
type SubAddressStatus struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address uint8  `json:"address"`
	Enabled bool   `json:"enabled"`
}

// Status reads a snapshot of the controller registers.
func (s *Service) Status(ctx context.Context) (Status, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.status(ctx)
	return result, observe("status", err)
}

// status requires s.mutex.
func (s *Service) status(ctx context.Context) (Status, error) {
	ctl := s.Controller
	result := Status{
		Address:    fmt.Sprintf("0x%02x", ctl.Address()),
		ClockHz:    ctl.ClockFrequency(),
		Clock:      humanize.SIWithDigits(float64(ctl.ClockFrequency()), 2, "Hz"),
		Configured: s.configured,
		Uptime:     time.Since(s.startedAt).Truncate(time.Second).String(),
	}
	if s.lastError != nil {
		result.LastError = s.lastError.Error()
	}
	for id := pca9685.SubAddress1; id <= pca9685.AllCallAddress; id++ {
		sa, err := s.subAddress(ctx, id)
		if err != nil {
			return Status{}, err
		}
		result.SubAddresses = append(result.SubAddresses, sa)
	}
	var err error
	if result.Prescaler, err = ctl.Prescaler(ctx); err != nil {
		return Status{}, err
	}
	result.FrequencyHz = pca9685.FrequencyFromPrescaler(result.Prescaler, result.ClockHz)
	result.Frequency = humanize.SIWithDigits(result.FrequencyHz, 1, "Hz")
	if result.ExternalClock, err = ctl.ExternalClock(ctx); err != nil {
		return Status{}, err
	}
	if result.Sleeping, err = ctl.SleepMode(ctx); err != nil {
		return Status{}, err
	}
	if result.Inverted, err = ctl.IsOutputInverted(ctx); err != nil {
		return Status{}, err
	}
	if result.OpenDrain, err = ctl.IsOutputOpenDrain(ctx); err != nil {
		return Status{}, err
	}
	if result.DutyCycles, err = ctl.DutyCycles(ctx, pca9685.All()); err != nil {
		return Status{}, err
	}
	result.ActiveChannels = lo.CountBy(result.DutyCycles, func(p int) bool { return p > 0 })
	return result, nil
}
