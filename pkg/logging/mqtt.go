// Copyright 2018 Ewout Prangsma
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

package logging

import (
	"bytes"
	"context"
	"sync"

	"github.com/binkynet/LEDController/pkg/mqtt"
)

const (
	mqttLogQueueSize = 512
)

// MQTTWriter publishes log lines on an MQTT topic.
// zerolog lines are already JSON, so each line is sent as is, without its
// trailing newline. Lines are sent from a separate goroutine; while no
// destination is set or the writer is disabled they are kept in a bounded
// queue that drops the oldest line when full.
type MQTTWriter struct {
	mutex   sync.Mutex
	topic   string
	service mqtt.Service
	enabled bool
	dropped int

	lines   chan []byte
	changed chan struct{}
}

// NewMQTTWriter creates a disabled writer without destination.
// Its sender stops when the given context is canceled.
func NewMQTTWriter(ctx context.Context) *MQTTWriter {
	w := &MQTTWriter{
		lines:   make(chan []byte, mqttLogQueueSize),
		changed: make(chan struct{}, 1),
	}
	go w.run(ctx)
	return w
}

// Write queues a copy of p.
func (w *MQTTWriter) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	if len(line) == 0 {
		return len(p), nil
	}
	line = append([]byte(nil), line...)
	for {
		select {
		case w.lines <- line:
			return len(p), nil
		default:
		}
		select {
		case <-w.lines:
			w.mutex.Lock()
			w.dropped++
			w.mutex.Unlock()
		default:
		}
	}
}

// Enable turns publishing on or off.
func (w *MQTTWriter) Enable(enable bool) {
	w.mutex.Lock()
	w.enabled = enable
	w.mutex.Unlock()
	w.notify()
}

// SetDestination sets the topic and the service lines are published with.
func (w *MQTTWriter) SetDestination(topic string, service mqtt.Service) {
	w.mutex.Lock()
	w.topic = topic
	w.service = service
	w.mutex.Unlock()
	w.notify()
}

// Dropped returns the number of lines dropped because the queue was full.
func (w *MQTTWriter) Dropped() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.dropped
}

func (w *MQTTWriter) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// destination returns the service and topic to publish on, or nil when
// lines must stay queued.
func (w *MQTTWriter) destination() (mqtt.Service, string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if !w.enabled || w.topic == "" || w.service == nil {
		return nil, ""
	}
	return w.service, w.topic
}

func (w *MQTTWriter) run(ctx context.Context) {
	for {
		service, topic := w.destination()
		if service == nil {
			select {
			case <-w.changed:
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case line := <-w.lines:
			// Publishing errors are not logged, that would feed this writer again
			_ = service.Publish(ctx, line, topic, mqtt.QosAtMostOnce)
		case <-w.changed:
		case <-ctx.Done():
			return
		}
	}
}
