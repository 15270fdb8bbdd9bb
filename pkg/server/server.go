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
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/service"
)

const (
	shutdownTimeout = 5 * time.Second
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
}

// Service is the controller API served over HTTP.
type Service interface {
	Status(ctx context.Context) (service.Status, error)
	DutyCycles(ctx context.Context) ([]int, error)
	DutyCycle(ctx context.Context, ch pca9685.Channel) (int, error)
	SetDutyCycle(ctx context.Context, ch pca9685.Channel, percent int) error
	SetAll(ctx context.Context, percent int) error
	Frequency(ctx context.Context) (uint8, float64, error)
	SetFrequency(ctx context.Context, freqHz int) (uint8, error)
	ConfigureOutput(ctx context.Context, cfg service.OutputConfig) error
	SubAddress(ctx context.Context, id pca9685.SubAddressID) (service.SubAddressStatus, error)
	SetSubAddress(ctx context.Context, id pca9685.SubAddressID, address uint8) error
	EnableSubAddress(ctx context.Context, id pca9685.SubAddressID, enabled bool) error
	SetSleep(ctx context.Context, sleep bool) error
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log     zerolog.Logger
	service Service
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, service Service) (*Server, error) {
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		service: service,
	}, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler(e.DefaultHTTPErrorHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))

	api := e.Group("/api")
	api.GET("/status", s.handleGetStatus)
	api.GET("/channels", s.handleGetChannels)
	api.PUT("/channels", s.handleSetAll)
	api.GET("/channels/:channel", s.handleGetChannel)
	api.PUT("/channels/:channel", s.handleSetChannel)
	api.GET("/frequency", s.handleGetFrequency)
	api.PUT("/frequency", s.handleSetFrequency)
	api.PUT("/output", s.handleConfigureOutput)
	api.PUT("/sleep", s.handleSetSleep)
	api.GET("/subaddresses/:id", s.handleGetSubAddress)
	api.PUT("/subaddresses/:id", s.handleSetSubAddress)
	return e
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}
	httpSrv := http.Server{
		Handler: s.Handler(),
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "failed to serve HTTP")
	case <-ctx.Done():
	}

	log.Info().Msg("Closing server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// errorHandler maps controller errors onto HTTP status codes.
func (s *Server) errorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			// Keep as is
		case pca9685.IsInvalidArgument(err):
			err = echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case pca9685.IsBusTransactionFailed(err):
			err = echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			s.log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		}
		next(err, c)
	}
}
