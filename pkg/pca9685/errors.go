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

package pca9685

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// InvalidArgumentError is the cause of all errors returned for values
	// outside their documented range. No bus write is issued when it is returned.
	InvalidArgumentError = errors.New("invalid argument")
	IsInvalidArgument    = isErrorFunc(InvalidArgumentError)
	// OutOfRangeError is returned for PWM frequencies the chip cannot produce.
	// It is a specialization of InvalidArgumentError.
	OutOfRangeError = errors.Wrap(InvalidArgumentError, "out of range")

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// invalidArgument returns an InvalidArgumentError with given message.
func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(InvalidArgumentError, format, args...)
}

// outOfRange returns an OutOfRangeError with given message.
func outOfRange(format string, args ...interface{}) error {
	return errors.Wrapf(OutOfRangeError, format, args...)
}

// IsOutOfRange returns true when the given error was caused by a frequency
// outside the range supported by the chip.
func IsOutOfRange(err error) bool {
	return errors.Is(err, OutOfRangeError)
}

// BusTransactionFailedError wraps an error returned by the bus adapter.
// The adapter error itself is not interpreted.
type BusTransactionFailedError struct {
	// Op is the adapter operation that failed
	Op string
	// Register is the (first) register address of the transaction
	Register uint8
	// Err is the error returned by the adapter
	Err error
}

func (e *BusTransactionFailedError) Error() string {
	return fmt.Sprintf("bus transaction %s at register 0x%02x failed: %v", e.Op, e.Register, e.Err)
}

// Cause returns the adapter error.
func (e *BusTransactionFailedError) Cause() error { return e.Err }

// Unwrap returns the adapter error.
func (e *BusTransactionFailedError) Unwrap() error { return e.Err }

// IsBusTransactionFailed returns true when the given error was returned
// by the bus adapter.
func IsBusTransactionFailed(err error) bool {
	var bErr *BusTransactionFailedError
	return errors.As(err, &bErr)
}

func busError(op string, reg uint8, err error) error {
	return &BusTransactionFailedError{Op: op, Register: reg, Err: err}
}

var errShortRead = errors.New("short read")
