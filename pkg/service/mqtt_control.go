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
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/LEDController/pkg/mqtt"
	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service/util"
)

func (s *Service) channelTopicFilter() string {
	return s.TopicPrefix + "channel/+/set"
}

func (s *Service) allTopic() string {
	return s.TopicPrefix + "all/set"
}

func (s *Service) stateTopic(ch pca9685.Channel) string {
	return fmt.Sprintf("%schannel/%d/state", s.TopicPrefix, int(ch))
}

// LogTopic returns the topic log lines are published on.
func (s *Service) LogTopic() string {
	return s.TopicPrefix + "log"
}

// runMQTTControl handles set commands received on the given topic filter
// until the context is canceled.
func (s *Service) runMQTTControl(ctx context.Context, filter string) error {
	log := s.log.With().Str("filter", filter).Logger()
	return util.UntilCanceled(ctx, log, "mqtt control", func(ctx context.Context) error {
		sub, err := s.MQTT.Subscribe(ctx, filter, mqtt.QosAtLeastOnce)
		if err != nil {
			return err
		}
		defer sub.Close()
		log.Debug().Msg("Subscribed")
		for {
			msg, err := sub.NextMsg(ctx)
			if err != nil {
				return err
			}
			s.handleCommand(ctx, msg)
		}
	})
}

// handleCommand applies a single set command.
func (s *Service) handleCommand(ctx context.Context, msg mqtt.Message) {
	log := s.log.With().Str("topic", msg.Topic).Str("payload", string(msg.Payload)).Logger()
	sel, err := s.selectorOf(msg.Topic)
	if err != nil {
		mqttCommandsTotal.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).Msg("Ignoring command on unknown topic")
		return
	}
	percent, err := ParsePercent(string(msg.Payload))
	if err != nil {
		mqttCommandsTotal.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).Msg("Ignoring invalid command")
		return
	}
	if err := s.SetDutyCycles(ctx, sel, percent); err != nil {
		mqttCommandsTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("Failed to apply command")
		return
	}
	mqttCommandsTotal.WithLabelValues("ok").Inc()
}

// selectorOf returns the channels addressed by the given command topic.
func (s *Service) selectorOf(topic string) (pca9685.Selector, error) {
	if topic == s.allTopic() {
		return pca9685.All(), nil
	}
	rest := strings.TrimPrefix(topic, s.TopicPrefix+"channel/")
	if rest == topic || !strings.HasSuffix(rest, "/set") {
		return pca9685.Selector{}, errors.Wrapf(pca9685.InvalidArgumentError, "unknown topic '%s'", topic)
	}
	ch, err := strconv.Atoi(strings.TrimSuffix(rest, "/set"))
	if err != nil || ch < 0 || ch >= pca9685.ChannelCount {
		return pca9685.Selector{}, errors.Wrapf(pca9685.InvalidArgumentError, "invalid channel in topic '%s'", topic)
	}
	return pca9685.Single(pca9685.Channel(ch)), nil
}

// ParsePercent parses a command payload into a duty cycle.
// Accepted are a percentage (0..100), on/off and true/false.
func ParsePercent(payload string) (int, error) {
	payload = strings.ToLower(strings.TrimSpace(payload))
	switch payload {
	case "on", "true":
		return 100, nil
	case "off", "false":
		return 0, nil
	}
	percent, err := strconv.Atoi(strings.TrimSuffix(payload, "%"))
	if err != nil {
		return 0, errors.Wrapf(pca9685.InvalidArgumentError, "invalid duty cycle '%s'", payload)
	}
	if err := validatePercent(percent); err != nil {
		return 0, err
	}
	return percent, nil
}

// publishStates publishes the duty cycles read back from the selected
// channels. Errors are logged only.
func (s *Service) publishStates(ctx context.Context, sel pca9685.Selector) {
	if s.MQTT == nil {
		return
	}
	s.mutex.Lock()
	duties, err := s.Controller.DutyCycles(ctx, sel)
	s.mutex.Unlock()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read duty cycles for publication")
		return
	}
	for i, ch := range sel.Channels() {
		if err := s.MQTT.Publish(ctx, strconv.Itoa(duties[i]), s.stateTopic(ch), mqtt.QosDefault); err != nil {
			s.log.Warn().Err(err).Str("channel", ch.String()).Msg("Failed to publish state")
		}
	}
}
