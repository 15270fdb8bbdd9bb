//    Copyright 2017-2022 Ewout Prangsma
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

package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LEDController/pkg/mqtt"
	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service/bridge"
)

// Options of the service.
type Options struct {
	// Prefix of all MQTT topics, e.g. "led/"
	TopicPrefix string
}

// Dependencies of the service.
type Dependencies struct {
	Logger     zerolog.Logger
	Bridge     bridge.API
	Controller *pca9685.Controller
	// MQTT is optional; without it no MQTT control is offered.
	MQTT mqtt.Service
}

// Service serializes all access to a single PCA9685 and
// exposes its operations to the HTTP and MQTT transports.
type Service struct {
	Options
	Dependencies

	mutex      sync.Mutex
	log        zerolog.Logger
	startedAt  time.Time
	configured bool
	lastError  error
}

// NewService creates a Service instance and returns it.
func NewService(opts Options, deps Dependencies) *Service {
	log := deps.Logger.With().Str("component", "service").Logger()
	return &Service{
		Options:      opts,
		Dependencies: deps,
		log:          log,
		startedAt:    time.Now(),
	}
}

// Configure puts the controller in the state described by the given config
// and enables the outputs. All steps are attempted; failures are aggregated.
func (s *Service) Configure(ctx context.Context, cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	err := s.configure(ctx, cfg)
	s.configured = err == nil
	s.lastError = err
	s.mutex.Unlock()

	if err != nil {
		s.Bridge.BlinkRedLED(time.Millisecond * 250)
	} else {
		s.Bridge.SetRedLED(false)
		s.Bridge.SetGreenLED(true)
	}
	s.publishStates(ctx, pca9685.All())
	return observe("configure", err)
}

// configure applies cfg. Requires s.mutex.
func (s *Service) configure(ctx context.Context, cfg Config) error {
	log := s.log
	ctl := s.Controller
	var ae aerr.AggregateError
	add := func(step string, err error) {
		if err != nil {
			log.Error().Err(err).Str("step", step).Msg("Failed to configure controller")
			ae.Add(err)
		}
	}

	// The EXTCLK bit can only be set while sleeping; SetPWMFrequency wakes the chip again.
	if cfg.ExternalClock {
		add("sleep", ctl.SetSleepMode(ctx, true))
		add("external-clock", ctl.SetExternalClock(ctx, true))
	}
	if prescaler, err := ctl.SetPWMFrequency(ctx, cfg.FrequencyHz); err != nil {
		add("frequency", err)
	} else {
		frequencyGauge.Set(float64(cfg.FrequencyHz))
		log.Debug().Int("frequency", cfg.FrequencyHz).Uint8("prescaler", prescaler).Msg("Configured frequency")
	}
	_, err := ctl.Mode2(ctx, outputMode(cfg.Output))
	add("output", err)
	for _, sa := range cfg.SubAddresses {
		id := pca9685.SubAddressID(sa.ID)
		add("sub-address", ctl.SetSubAddress(ctx, id, sa.Address))
		add("sub-address", ctl.EnableSubAddress(ctx, id, sa.Enabled))
	}
	if cfg.All != nil {
		add("all", s.setDutyCycles(ctx, pca9685.All(), *cfg.All))
	}
	for _, ch := range cfg.ChannelIndexes() {
		add("channel", s.setDutyCycles(ctx, pca9685.Single(pca9685.Channel(ch)), cfg.Channels[ch]))
	}
	add("output-enable", s.Bridge.SetOutputEnabled(true))

	if err := ae.AsError(); err != nil {
		return err
	}
	log.Info().
		Int("frequency", cfg.FrequencyHz).
		Int("channels", len(cfg.Channels)).
		Msg("Configured controller")
	return nil
}

// outputMode converts an output config into MODE2 fields.
func outputMode(cfg OutputConfig) pca9685.Mode2 {
	notEnabled := pca9685.OutputNotEnabledLow
	if cfg.HighImpedance {
		notEnabled = pca9685.OutputNotEnabledHighImpedance
	}
	return pca9685.Mode2{
		Inverted:          pca9685.Bool(cfg.Inverted),
		OutputChangeOnAck: pca9685.Bool(cfg.ChangeOnAck),
		TotemPole:         pca9685.Bool(!cfg.OpenDrain),
		NotEnabled:        &notEnabled,
	}
}

// Run the service until the given context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.MQTT == nil {
		<-ctx.Done()
		return nil
	}
	s.publishStates(ctx, pca9685.All())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runMQTTControl(ctx, s.channelTopicFilter()) })
	g.Go(func() error { return s.runMQTTControl(ctx, s.allTopic()) })
	return g.Wait()
}

// Close brings the controller to a safe state: all outputs off,
// OE disabled and the oscillator stopped.
func (s *Service) Close(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ae aerr.AggregateError
	if err := s.setDutyCycles(ctx, pca9685.All(), 0); err != nil {
		ae.Add(err)
	}
	if err := s.Bridge.SetOutputEnabled(false); err != nil {
		ae.Add(err)
	}
	if err := s.Controller.SetSleepMode(ctx, true); err != nil {
		ae.Add(err)
	}
	s.Bridge.SetGreenLED(false)
	s.log.Info().Msg("Controller brought to safe state")
	return ae.AsError()
}

// DutyCycles returns the duty cycles (in percent) of all channels.
func (s *Service) DutyCycles(ctx context.Context) ([]int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.Controller.DutyCycles(ctx, pca9685.All())
	return result, observe("get-duty-cycles", err)
}

// DutyCycle returns the duty cycle (in percent) of the given channel.
func (s *Service) DutyCycle(ctx context.Context, ch pca9685.Channel) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.Controller.DutyCycle(ctx, ch)
	return result, observe("get-duty-cycle", err)
}

// SetDutyCycle sets the duty cycle (in percent) of the given channel.
func (s *Service) SetDutyCycle(ctx context.Context, ch pca9685.Channel, percent int) error {
	return s.SetDutyCycles(ctx, pca9685.Single(ch), percent)
}

// SetAll sets the duty cycle (in percent) of all channels at once.
func (s *Service) SetAll(ctx context.Context, percent int) error {
	return s.SetDutyCycles(ctx, pca9685.All(), percent)
}

// SetDutyCycles sets the duty cycle (in percent) of the selected channels
// and publishes their new state.
func (s *Service) SetDutyCycles(ctx context.Context, sel pca9685.Selector, percent int) error {
	s.mutex.Lock()
	err := s.setDutyCycles(ctx, sel, percent)
	s.mutex.Unlock()

	if err == nil {
		s.publishStates(ctx, sel)
	}
	return observe("set-duty-cycle", err)
}

// setDutyCycles requires s.mutex.
func (s *Service) setDutyCycles(ctx context.Context, sel pca9685.Selector, percent int) error {
	if err := s.Controller.SetDutyCycles(ctx, sel, percent); err != nil {
		return err
	}
	for _, ch := range sel.Channels() {
		dutyCycleGauge.WithLabelValues(strconv.Itoa(int(ch))).Set(float64(percent))
	}
	return nil
}

// Frequency returns the prescaler and the resulting PWM frequency.
func (s *Service) Frequency(ctx context.Context) (uint8, float64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prescaler, err := s.Controller.Prescaler(ctx)
	if err != nil {
		return 0, 0, observe("get-frequency", err)
	}
	return prescaler, pca9685.FrequencyFromPrescaler(prescaler, s.Controller.ClockFrequency()), observe("get-frequency", nil)
}

// SetFrequency sets the PWM frequency (in Hz) and returns the prescaler used.
func (s *Service) SetFrequency(ctx context.Context, freqHz int) (uint8, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prescaler, err := s.Controller.SetPWMFrequency(ctx, freqHz)
	if err == nil {
		frequencyGauge.Set(float64(freqHz))
	}
	return prescaler, observe("set-frequency", err)
}

// ConfigureOutput configures the output stage of all channels.
func (s *Service) ConfigureOutput(ctx context.Context, cfg OutputConfig) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.Controller.Mode2(ctx, outputMode(cfg))
	return observe("configure-output", err)
}

// SubAddress returns the address and enable state of the given sub-address.
func (s *Service) SubAddress(ctx context.Context, id pca9685.SubAddressID) (SubAddressStatus, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, err := s.subAddress(ctx, id)
	return result, observe("get-sub-address", err)
}

// subAddress requires s.mutex.
func (s *Service) subAddress(ctx context.Context, id pca9685.SubAddressID) (SubAddressStatus, error) {
	addr, err := s.Controller.SubAddress(ctx, id)
	if err != nil {
		return SubAddressStatus{}, err
	}
	enabled, err := s.Controller.IsSubAddressEnabled(ctx, id)
	if err != nil {
		return SubAddressStatus{}, err
	}
	return SubAddressStatus{
		ID:      int(id),
		Name:    id.String(),
		Address: addr,
		Enabled: enabled,
	}, nil
}

// SetSubAddress stores the 7-bit address of the given sub-address.
func (s *Service) SetSubAddress(ctx context.Context, id pca9685.SubAddressID, address uint8) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return observe("set-sub-address", s.Controller.SetSubAddress(ctx, id, address))
}

// EnableSubAddress sets whether the chip responds to the given sub-address.
func (s *Service) EnableSubAddress(ctx context.Context, id pca9685.SubAddressID, enabled bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return observe("enable-sub-address", s.Controller.EnableSubAddress(ctx, id, enabled))
}

// SetSleep enters or leaves low power mode.
func (s *Service) SetSleep(ctx context.Context, sleep bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return observe("set-sleep", s.Controller.SetSleepMode(ctx, sleep))
}
