//    Copyright 2021 Ewout Prangsma
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
	"github.com/binkynet/LEDController/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of operations per kind
	operationsTotal = metrics.MustRegisterCounterVec(subSystem,
		"operations_total",
		"Total number of operations per kind",
		"op")
	// Total number of failed operations per kind
	operationErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"operation_errors_total",
		"Total number of failed operations per kind",
		"op")
	// Last duty cycle (percent) written per channel
	dutyCycleGauge = metrics.MustRegisterGaugeVec(subSystem,
		"duty_cycle_percent",
		"Last duty cycle written per channel",
		"channel")
	// Last configured PWM frequency
	frequencyGauge = metrics.MustRegisterGauge(subSystem,
		"pwm_frequency_hz",
		"Last configured PWM frequency")
	// Total number of MQTT commands received
	mqttCommandsTotal = metrics.MustRegisterCounterVec(subSystem,
		"mqtt_commands_total",
		"Total number of MQTT commands received per result",
		"result")
)

// observe counts an operation and its failure, if any.
func observe(op string, err error) error {
	operationsTotal.WithLabelValues(op).Inc()
	if err != nil {
		operationErrorsTotal.WithLabelValues(op).Inc()
	}
	return err
}
