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
	"strings"
	"sync"
)

// MemoryBroker is an in-process Service that routes published messages
// to matching subscriptions. It stands in for a real broker in the
// service, logging and mqtt tests; main only creates an MQTT service when
// --mqtt-host is given.
type MemoryBroker struct {
	mutex     sync.Mutex
	subs      []*memorySubscription
	published []Message
}

var _ Service = &MemoryBroker{}

// NewMemoryBroker creates an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

// Close all subscriptions.
func (b *MemoryBroker) Close() error {
	b.mutex.Lock()
	subs := b.subs
	b.subs = nil
	b.mutex.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}

// Publish delivers the message to all subscriptions with a matching filter.
func (b *MemoryBroker) Publish(ctx context.Context, msg interface{}, topic string, qos byte) error {
	payload, err := encodePayload(msg)
	if err != nil {
		return maskAny(err)
	}
	m := Message{Topic: topic, Payload: payload}

	b.mutex.Lock()
	b.published = append(b.published, m)
	var targets []*memorySubscription
	for _, s := range b.subs {
		if TopicMatches(s.filter, topic) {
			targets = append(targets, s)
		}
	}
	b.mutex.Unlock()

	for _, s := range targets {
		select {
		case s.queue <- m:
		case <-s.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe to a topic filter.
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string, qos byte) (Subscription, error) {
	s := &memorySubscription{
		broker: b,
		filter: topic,
		queue:  make(chan Message, subscriptionQueueSize),
		closed: make(chan struct{}),
	}
	b.mutex.Lock()
	b.subs = append(b.subs, s)
	b.mutex.Unlock()
	return s, nil
}

// Published returns all messages published so far.
func (b *MemoryBroker) Published() []Message {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Message(nil), b.published...)
}

type memorySubscription struct {
	broker    *MemoryBroker
	filter    string
	queue     chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		b := s.broker
		b.mutex.Lock()
		defer b.mutex.Unlock()
		for i, x := range b.subs {
			if x == s {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (s *memorySubscription) NextMsg(ctx context.Context) (Message, error) {
	select {
	case msg := <-s.queue:
		return msg, nil
	case <-s.closed:
		return Message{}, maskAny(SubscriptionClosedError)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// TopicMatches returns true when the given topic matches the
// given filter, honoring the '+' and '#' wildcards.
func TopicMatches(filter, topic string) bool {
	fparts := strings.Split(filter, "/")
	tparts := strings.Split(topic, "/")
	for i, f := range fparts {
		if f == "#" {
			return true
		}
		if i >= len(tparts) {
			return false
		}
		if f != "+" && f != tparts[i] {
			return false
		}
	}
	return len(fparts) == len(tparts)
}
