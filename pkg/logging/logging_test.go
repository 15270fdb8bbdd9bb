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

package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/LEDController/pkg/mqtt"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken")
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a, failingWriter{})
	w.Add(&b)

	n, err := w.Write([]byte("hello"))
	assert.Equal(t, 5, n)
	assert.EqualError(t, err, "broken")
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())
}

func TestMQTTWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := mqtt.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, "led/log", mqtt.QosDefault)
	require.NoError(t, err)

	w := NewMQTTWriter(ctx)
	w.SetDestination("led/log", broker)
	w.Enable(true)
	line := []byte(`{"level":"info","message":"line 1"}` + "\n")
	n, err := w.Write(line)
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	msg, err := sub.NextMsg(ctx)
	require.NoError(t, err)
	assert.Equal(t, "led/log", msg.Topic)
	assert.JSONEq(t, `{"level":"info","message":"line 1"}`, string(msg.Payload))
}

func TestMQTTWriterQueuesUntilEnabled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := mqtt.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, "led/log", mqtt.QosDefault)
	require.NoError(t, err)

	w := NewMQTTWriter(ctx)
	for i := 0; i < mqttLogQueueSize+3; i++ {
		_, err := w.Write([]byte(fmt.Sprintf("line %d\n", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, w.Dropped())
	assert.Empty(t, broker.Published())

	w.SetDestination("led/log", broker)
	w.Enable(true)
	msg, err := sub.NextMsg(ctx)
	require.NoError(t, err)
	assert.Equal(t, "line 3", string(msg.Payload))
}
