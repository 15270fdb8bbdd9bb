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

// Package pca9685 controls the PCA9685 16-channel, 12-bit PWM LED/servo
// controller over a register oriented bus.
//
// Duty cycles are expressed in percent (0..100). Outputs are addressed
// with a Channel (0..15, or AllChannels for the ALL_LED registers) or a
// Selector for bulk access.
//
// A Controller does not serialize access. Callers that share one between
// goroutines must provide their own locking.
package pca9685
