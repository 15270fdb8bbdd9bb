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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service"
	"github.com/binkynet/LEDController/pkg/service/bridge"
)

const testAddress = 0x40

func newTestServer(t *testing.T) (http.Handler, *bridge.VirtualDevice) {
	bus := bridge.NewVirtualBus()
	dev := bus.AddPCA9685(testAddress)
	ctl, err := pca9685.New(context.Background(), bridge.NewBusAdapter(bus), testAddress)
	require.NoError(t, err)
	svc := service.NewService(service.Options{}, service.Dependencies{
		Logger:     zerolog.Nop(),
		Bridge:     bridge.NewVirtualBridge(bus),
		Controller: ctl,
	})
	srv, err := New(Config{}, zerolog.Nop(), svc)
	require.NoError(t, err)
	return srv.Handler(), dev
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, result interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), result), rec.Body.String())
}

func TestChannels(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/channels/5", `{"percent":50}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/channels/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state ChannelState
	decode(t, rec, &state)
	assert.Equal(t, ChannelState{Channel: 5, Percent: 49}, state)

	rec = do(t, h, http.MethodPut, "/api/channels", `{"percent":100}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var states []ChannelState
	decode(t, rec, &states)
	require.Len(t, states, 16)
	assert.Equal(t, ChannelState{Channel: 15, Percent: 100}, states[15])
}

func TestChannelsInvalid(t *testing.T) {
	h, dev := newTestServer(t)
	dev.ResetOps()

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPut, "/api/channels/16", `{"percent":50}`},
		{http.MethodPut, "/api/channels/x", `{"percent":50}`},
		{http.MethodPut, "/api/channels/-1", `{"percent":50}`},
		{http.MethodPut, "/api/channels/1", `{"percent":101}`},
		{http.MethodPut, "/api/channels/1", `{}`},
		{http.MethodPut, "/api/channels", `{"percent":-5}`},
		{http.MethodGet, "/api/channels/16", ""},
		{http.MethodPut, "/api/frequency", `{"frequency_hz":2000}`},
		{http.MethodGet, "/api/subaddresses/4", ""},
		{http.MethodPut, "/api/subaddresses/0", `{"address":200}`},
	}
	for _, test := range tests {
		rec := do(t, h, test.method, test.path, test.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s %s", test.method, test.path, test.body)
	}
	assert.Empty(t, dev.Writes())
}

func TestBusFailure(t *testing.T) {
	h, dev := newTestServer(t)
	dev.FailReads(0x06, assert.AnError)

	rec := do(t, h, http.MethodGet, "/api/channels/0", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestFrequency(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/frequency", `{"frequency_hz":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state FrequencyState
	decode(t, rec, &state)
	assert.Equal(t, uint8(121), state.Prescaler)
	assert.InDelta(t, 50.0, state.FrequencyHz, 0.1)

	rec = do(t, h, http.MethodGet, "/api/frequency", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &state)
	assert.Equal(t, uint8(121), state.Prescaler)
}

func TestOutputAndSleep(t *testing.T) {
	h, dev := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/output", `{"inverted":true,"open_drain":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, uint8(0x10), dev.Register(0x01))

	rec = do(t, h, http.MethodPut, "/api/sleep", `{"sleep":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint8(0x10), dev.Register(0x00)&0x10)
}

func TestSubAddresses(t *testing.T) {
	h, dev := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/subaddresses/2", `{"address":85,"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sa service.SubAddressStatus
	decode(t, rec, &sa)
	assert.Equal(t, service.SubAddressStatus{ID: 2, Name: "SUBADR3", Address: 85, Enabled: true}, sa)
	assert.Equal(t, uint8(0xAA), dev.Register(0x04))

	rec = do(t, h, http.MethodGet, "/api/subaddresses/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sa)
	assert.Equal(t, service.SubAddressStatus{ID: 3, Name: "ALLCALLADR", Address: 0x70, Enabled: true}, sa)
}

func TestStatus(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status service.Status
	decode(t, rec, &status)
	assert.Equal(t, "0x40", status.Address)
	assert.Equal(t, uint8(0x1E), status.Prescaler)
	assert.Len(t, status.DutyCycles, 16)
	assert.Len(t, status.SubAddresses, 4)
}

func TestMetrics(t *testing.T) {
	h, _ := newTestServer(t)
	do(t, h, http.MethodGet, "/api/channels", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "binky_led_service_operations_total")
}
