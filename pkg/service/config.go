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
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/binkynet/LEDController/pkg/pca9685"
)

const (
	// DefaultFrequency is the PWM frequency applied when none is configured.
	DefaultFrequency = 200
)

// Config describes the desired state of the controller.
type Config struct {
	// PWM frequency in Hz
	FrequencyHz int `yaml:"frequency_hz" json:"frequency_hz"`
	// Frequency of the clock source in Hz
	ClockHz int `yaml:"clock_hz" json:"clock_hz"`
	// Use the EXTCLK pin instead of the internal oscillator
	ExternalClock bool               `yaml:"external_clock" json:"external_clock"`
	Output        OutputConfig       `yaml:"output" json:"output"`
	SubAddresses  []SubAddressConfig `yaml:"sub_addresses" json:"sub_addresses,omitempty"`
	// Initial duty cycle (percent) per channel
	Channels map[int]int `yaml:"channels" json:"channels,omitempty"`
	// Initial duty cycle (percent) of all channels, applied before Channels
	All *int `yaml:"all" json:"all,omitempty"`
}

// OutputConfig describes the output stage (MODE2).
type OutputConfig struct {
	Inverted      bool `yaml:"inverted" json:"inverted"`
	OpenDrain     bool `yaml:"open_drain" json:"open_drain"`
	HighImpedance bool `yaml:"high_impedance" json:"high_impedance"`
	ChangeOnAck   bool `yaml:"change_on_ack" json:"change_on_ack"`
}

// SubAddressConfig describes one alternate bus address.
// ID 0..2 selects SUBADR1..3, 3 selects ALLCALLADR.
type SubAddressConfig struct {
	ID      int   `yaml:"id" json:"id"`
	Address uint8 `yaml:"address" json:"address"`
	Enabled bool  `yaml:"enabled" json:"enabled"`
}

// LoadConfig reads a YAML config file, applies defaults and validates it.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, maskAny(err)
	}
	return ParseConfig(b)
}

// ParseConfig parses YAML encoded config, applies defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults fills in all unset fields.
func (c *Config) SetDefaults() {
	if c.FrequencyHz == 0 {
		c.FrequencyHz = DefaultFrequency
	}
	if c.ClockHz == 0 {
		c.ClockHz = pca9685.InternalClockFrequency
	}
}

// Validate the config.
func (c Config) Validate() error {
	if c.FrequencyHz < pca9685.MinFrequency || c.FrequencyHz > pca9685.MaxFrequency {
		return errors.Wrapf(pca9685.InvalidArgumentError, "frequency_hz must be in %d..%d range, got %d",
			pca9685.MinFrequency, pca9685.MaxFrequency, c.FrequencyHz)
	}
	if c.ClockHz <= 0 {
		return errors.Wrapf(pca9685.InvalidArgumentError, "clock_hz must be positive, got %d", c.ClockHz)
	}
	if _, err := pca9685.ComputePrescaler(c.FrequencyHz, c.ClockHz); err != nil {
		return err
	}
	if !c.ExternalClock && c.ClockHz != pca9685.InternalClockFrequency {
		return errors.Wrapf(pca9685.InvalidArgumentError, "clock_hz requires external_clock")
	}
	ids := lo.Map(c.SubAddresses, func(s SubAddressConfig, _ int) int { return s.ID })
	if dups := lo.FindDuplicates(ids); len(dups) > 0 {
		return errors.Wrapf(pca9685.InvalidArgumentError, "duplicate sub address ids %v", dups)
	}
	for _, s := range c.SubAddresses {
		if s.ID < int(pca9685.SubAddress1) || s.ID > int(pca9685.AllCallAddress) {
			return errors.Wrapf(pca9685.InvalidArgumentError, "sub address id must be in 0..3 range, got %d", s.ID)
		}
		if s.Address > pca9685.MaxSubAddress {
			return errors.Wrapf(pca9685.InvalidArgumentError, "sub address must be a 7-bit address, got 0x%x", s.Address)
		}
	}
	if c.All != nil {
		if err := validatePercent(*c.All); err != nil {
			return err
		}
	}
	for _, ch := range c.ChannelIndexes() {
		if ch < 0 || ch >= pca9685.ChannelCount {
			return errors.Wrapf(pca9685.InvalidArgumentError, "channel must be in 0..%d range, got %d", pca9685.ChannelCount-1, ch)
		}
		if err := validatePercent(c.Channels[ch]); err != nil {
			return err
		}
	}
	return nil
}

// ChannelIndexes returns the configured channels in ascending order.
func (c Config) ChannelIndexes() []int {
	result := lo.Keys(c.Channels)
	sort.Ints(result)
	return result
}

func validatePercent(percent int) error {
	if percent < 0 || percent > 100 {
		return errors.Wrapf(pca9685.InvalidArgumentError, "duty cycle must be in 0..100 range, got %d", percent)
	}
	return nil
}
