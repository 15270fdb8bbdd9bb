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

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// QosAtMostOnce represents "QoS 0: At most once delivery".
	QosAtMostOnce byte = 0
	// QosAtLeastOnce represents "QoS 1: At least once delivery".
	QosAtLeastOnce byte = 1
	// QosExactlyOnce represents "QoS 2: Exactly once delivery".
	QosExactlyOnce byte = 2
	// QosDefault is the QoS used for state and log messages.
	QosDefault = QosAtMostOnce

	subscriptionQueueSize = 32
	disconnectQuiesce     = 250 // ms
)

var (
	// SubscriptionClosedError is returned by NextMsg after Close.
	SubscriptionClosedError = errors.New("subscription closed")
	maskAny                 = errors.WithStack
)

// Config of the MQTT connection.
type Config struct {
	Host     string
	Port     int
	UserName string
	Password string
	ClientID string
}

// Service is a connection to an MQTT broker.
type Service interface {
	// Close the service
	Close() error
	// Publish a message into a topic.
	// Strings and byte slices are sent as is, everything else is JSON encoded.
	Publish(ctx context.Context, msg interface{}, topic string, qos byte) error
	// Subscribe to a topic filter
	Subscribe(ctx context.Context, topic string, qos byte) (Subscription, error)
}

// Subscription to a topic filter.
type Subscription interface {
	// Unsubscribe.
	Close() error
	// NextMsg blocks until the next message has been received.
	NextMsg(ctx context.Context) (Message, error)
}

// Message received on a subscription.
type Message struct {
	Topic   string
	Payload []byte
}

// NewService creates a Service that connects to the broker
// described in the given config.
func NewService(ctx context.Context, config Config, log zerolog.Logger) (Service, error) {
	log = log.With().Str("component", "mqtt").Logger()
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + addr).
		SetClientID(config.ClientID)
	if config.UserName != "" {
		opts.SetUsername(config.UserName)
		opts.SetPassword(config.Password)
	}
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(c mqttapi.Client, err error) {
		log.Warn().Err(err).Str("address", addr).Msg("MQTT connection lost")
	})
	opts.SetDefaultPublishHandler(func(c mqttapi.Client, m mqttapi.Message) {
		// Ignore messages when no subscription match
	})

	client := mqttapi.NewClient(opts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to mqtt at %s", addr)
	}
	log.Debug().Str("address", addr).Msg("Connected to MQTT broker")
	return &service{
		log:    log,
		client: client,
	}, nil
}

type service struct {
	log    zerolog.Logger
	mutex  sync.Mutex
	client mqttapi.Client
}

func (s *service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.client != nil {
		s.client.Disconnect(disconnectQuiesce)
		s.client = nil
	}
	return nil
}

func (s *service) getClient() (mqttapi.Client, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.client == nil {
		return nil, errors.New("mqtt service closed")
	}
	return s.client, nil
}

func (s *service) Publish(ctx context.Context, msg interface{}, topic string, qos byte) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}
	payload, err := encodePayload(msg)
	if err != nil {
		return maskAny(err)
	}
	if err := waitToken(ctx, client.Publish(topic, qos, false, payload)); err != nil {
		return errors.Wrapf(err, "failed to publish to '%s'", topic)
	}
	return nil
}

func (s *service) Subscribe(ctx context.Context, topic string, qos byte) (Subscription, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}
	result := &subscription{
		client: client,
		topic:  topic,
		queue:  make(chan Message, subscriptionQueueSize),
		closed: make(chan struct{}),
	}
	if err := waitToken(ctx, client.Subscribe(topic, qos, result.messageHandler)); err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to '%s'", topic)
	}
	return result, nil
}

type subscription struct {
	client    mqttapi.Client
	topic     string
	queue     chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *subscription) messageHandler(c mqttapi.Client, m mqttapi.Message) {
	msg := Message{Topic: m.Topic(), Payload: m.Payload()}
	select {
	case s.queue <- msg:
	case <-s.closed:
	}
}

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		token := s.client.Unsubscribe(s.topic)
		token.Wait()
		err = token.Error()
	})
	return maskAny(err)
}

func (s *subscription) NextMsg(ctx context.Context) (Message, error) {
	select {
	case msg := <-s.queue:
		return msg, nil
	case <-s.closed:
		return Message{}, maskAny(SubscriptionClosedError)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// waitToken blocks until the given token completes or the context is canceled.
func waitToken(ctx context.Context, token mqttapi.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encodePayload(msg interface{}) ([]byte, error) {
	switch v := msg.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return json.Marshal(msg)
	}
}
