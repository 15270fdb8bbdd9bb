//    Copyright 2017 Ewout Prangsma
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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LEDController/pkg/environment"
	"github.com/binkynet/LEDController/pkg/logging"
	"github.com/binkynet/LEDController/pkg/mqtt"
	"github.com/binkynet/LEDController/pkg/pca9685"
	"github.com/binkynet/LEDController/pkg/server"
	"github.com/binkynet/LEDController/pkg/service"
	"github.com/binkynet/LEDController/pkg/service/bridge"
)

const (
	projectName       = "BinkyNet LED Controller"
	defaultServerPort = 7130
	defaultMQTTPort   = 1883
	closeTimeout      = 5 * time.Second
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var bridgeType string
	var busLocation string
	var address int
	var oePin int
	var sclPin int
	var configPath string
	var serverHost string
	var serverPort int
	var mqttHost string
	var mqttPort int
	var mqttTopicPrefix string

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", environment.AutoDetectBridgeType(logger), "Type of bridge to use (rpi|virtual)")
	pflag.StringVar(&busLocation, "bus", environment.DefaultBusLocation, "Location of the I2C bus device")
	pflag.IntVarP(&address, "address", "a", pca9685.DefaultAddress, "I2C address of the PCA9685")
	pflag.IntVar(&oePin, "oe-pin", -1, "GPIO pin connected to OE of the PCA9685 (-1 for none)")
	pflag.IntVar(&sclPin, "scl-pin", -1, "GPIO pin of the I2C SCL line, used for bus recovery (-1 to disable)")
	pflag.StringVarP(&configPath, "config", "c", "", "Path of YAML file describing the desired controller state")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.StringVar(&mqttHost, "mqtt-host", "", "Host of the MQTT broker (empty to disable MQTT)")
	pflag.IntVar(&mqttPort, "mqtt-port", defaultMQTTPort, "Port of the MQTT broker")
	pflag.StringVar(&mqttTopicPrefix, "mqtt-topic-prefix", "led/", "Prefix of all MQTT topics")
	pflag.Parse()

	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	logOutput := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr})
	logger = zerolog.New(logOutput).Level(level).With().Timestamp().Logger()

	if address < pca9685.MinAddress || address > pca9685.MaxAddress {
		Exitf("Address 0x%x outside 0x%x..0x%x range\n", address, pca9685.MinAddress, pca9685.MaxAddress)
	}

	var cfg service.Config
	if configPath != "" {
		cfg, err = service.LoadConfig(configPath)
		if err != nil {
			Exitf("Failed to load config from '%s': %v\n", configPath, err)
		}
	} else {
		cfg.SetDefaults()
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	var br bridge.API
	switch bridgeType {
	case environment.BridgeTypeRaspberryPi:
		br, err = bridge.NewRaspberryPiBridge(logger, bridge.RaspberryPiConfig{
			BusLocation:     busLocation,
			OutputEnablePin: oePin,
			SCLPin:          sclPin,
		})
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case environment.BridgeTypeVirtual:
		bus := bridge.NewVirtualBus()
		bus.AddPCA9685(uint8(address))
		br = bridge.NewVirtualBridge(bus)
	default:
		Exitf("Unknown bridge type '%s' (rpi|virtual)\n", bridgeType)
	}
	defer br.Close()

	i2cBus, err := br.I2CBus()
	if err != nil {
		Exitf("Failed to open I2C bus: %v\n", err)
	}
	ctl, err := pca9685.New(ctx, bridge.NewBusAdapter(i2cBus), uint8(address),
		pca9685.WithLogger(logger),
		pca9685.WithClockFrequency(cfg.ClockHz))
	if err != nil {
		Exitf("Failed to initialize PCA9685 at 0x%x: %v\n", address, err)
	}

	var mqttSvc mqtt.Service
	if mqttHost != "" {
		mqttSvc, err = connectMQTT(ctx, logger, mqttHost, mqttPort)
		if err != nil {
			Exitf("Failed to connect to MQTT broker: %v\n", err)
		}
		defer mqttSvc.Close()
	}

	svc := service.NewService(service.Options{
		TopicPrefix: mqttTopicPrefix,
	}, service.Dependencies{
		Logger:     logger,
		Bridge:     br,
		Controller: ctl,
		MQTT:       mqttSvc,
	})
	if mqttSvc != nil {
		mqttLog := logging.NewMQTTWriter(ctx)
		mqttLog.SetDestination(svc.LogTopic(), mqttSvc)
		mqttLog.Enable(true)
		logOutput.Add(mqttLog)
	}

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	if err := svc.Configure(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("Failed to configure controller")
	}
	if status, err := svc.Status(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to read controller status")
	} else {
		logger.Info().
			Str("address", status.Address).
			Str("clock", status.Clock).
			Str("frequency", status.Frequency).
			Uint8("prescaler", status.Prescaler).
			Bool("sleeping", status.Sleeping).
			Ints("duty-cycles", status.DutyCycles).
			Msg("Controller status")
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, logger, svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return httpServer.Run(gctx) })
	runErr := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
	defer closeCancel()
	if err := svc.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to bring controller to safe state")
	}
	if runErr != nil {
		Exitf("Service run failed: %v\n", runErr)
	}
}

// connectMQTT connects to the MQTT broker at given host & port.
func connectMQTT(ctx context.Context, log zerolog.Logger, host string, port int) (mqtt.Service, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	result, err := mqtt.NewService(ctx, mqtt.Config{
		Host:     host,
		Port:     port,
		ClientID: fmt.Sprintf("led-controller-%s", hostname),
	}, log)
	if err != nil {
		return nil, maskAny(err)
	}
	return result, nil
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
