// Copyright 2023 Ewout Prangsma
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
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service"
)

// ChannelState is the duty cycle of a single channel.
type ChannelState struct {
	Channel int `json:"channel"`
	Percent int `json:"percent"`
}

// DutyCycleRequest sets a duty cycle.
type DutyCycleRequest struct {
	Percent *int `json:"percent"`
}

// FrequencyState is the PWM frequency of the controller.
type FrequencyState struct {
	Prescaler   uint8   `json:"prescaler"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// FrequencyRequest sets the PWM frequency.
type FrequencyRequest struct {
	FrequencyHz int `json:"frequency_hz"`
}

// SleepRequest enters or leaves low power mode.
type SleepRequest struct {
	Sleep bool `json:"sleep"`
}

// SubAddressRequest changes a sub-address.
// Nil fields are left unchanged.
type SubAddressRequest struct {
	Address *uint8 `json:"address"`
	Enabled *bool  `json:"enabled"`
}

func (s *Server) handleGetStatus(c echo.Context) error {
	status, err := s.service.Status(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleGetChannels(c echo.Context) error {
	duties, err := s.service.DutyCycles(c.Request().Context())
	if err != nil {
		return err
	}
	result := make([]ChannelState, 0, len(duties))
	for i, d := range duties {
		result = append(result, ChannelState{Channel: i, Percent: d})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSetAll(c echo.Context) error {
	percent, err := bindPercent(c)
	if err != nil {
		return err
	}
	if err := s.service.SetAll(c.Request().Context(), percent); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetChannel(c echo.Context) error {
	ch, err := channelParam(c)
	if err != nil {
		return err
	}
	percent, err := s.service.DutyCycle(c.Request().Context(), ch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ChannelState{Channel: int(ch), Percent: percent})
}

func (s *Server) handleSetChannel(c echo.Context) error {
	ch, err := channelParam(c)
	if err != nil {
		return err
	}
	percent, err := bindPercent(c)
	if err != nil {
		return err
	}
	if err := s.service.SetDutyCycle(c.Request().Context(), ch, percent); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetFrequency(c echo.Context) error {
	prescaler, freq, err := s.service.Frequency(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FrequencyState{Prescaler: prescaler, FrequencyHz: freq})
}

func (s *Server) handleSetFrequency(c echo.Context) error {
	var req FrequencyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.service.SetFrequency(ctx, req.FrequencyHz); err != nil {
		return err
	}
	return s.handleGetFrequency(c)
}

func (s *Server) handleConfigureOutput(c echo.Context) error {
	var req service.OutputConfig
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.ConfigureOutput(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetSleep(c echo.Context) error {
	var req SleepRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.SetSleep(c.Request().Context(), req.Sleep); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSubAddress(c echo.Context) error {
	id, err := subAddressParam(c)
	if err != nil {
		return err
	}
	result, err := s.service.SubAddress(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSetSubAddress(c echo.Context) error {
	id, err := subAddressParam(c)
	if err != nil {
		return err
	}
	var req SubAddressRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if req.Address != nil {
		if err := s.service.SetSubAddress(ctx, id, *req.Address); err != nil {
			return err
		}
	}
	if req.Enabled != nil {
		if err := s.service.EnableSubAddress(ctx, id, *req.Enabled); err != nil {
			return err
		}
	}
	return s.handleGetSubAddress(c)
}

func bindPercent(c echo.Context) (int, error) {
	var req DutyCycleRequest
	if err := c.Bind(&req); err != nil {
		return 0, err
	}
	if req.Percent == nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "percent is required")
	}
	return *req.Percent, nil
}

func channelParam(c echo.Context) (pca9685.Channel, error) {
	ch, err := strconv.Atoi(c.Param("channel"))
	if err != nil || ch < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid channel")
	}
	return pca9685.Channel(ch), nil
}

func subAddressParam(c echo.Context) (pca9685.SubAddressID, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid sub address id")
	}
	return pca9685.SubAddressID(id), nil
}
