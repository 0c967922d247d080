// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lis302dl

import (
	"errors"
	"fmt"
)

// WrongDeviceError is returned by New when the WHO_AM_I register does not
// identify a LIS302DL. The most common causes are a miswired chip select and
// a different sensor on the same footprint.
type WrongDeviceError struct {
	// ID is the value the device returned.
	ID byte
}

func (e *WrongDeviceError) Error() string {
	return fmt.Sprintf("lis302dl: unexpected device ID 0x%02X, want 0x%02X", e.ID, deviceID)
}

var (
	// ErrSensing is returned by SenseContinuous when a previous continuous
	// read is still running. Call Halt first.
	ErrSensing = errors.New("lis302dl: continuous sensing already in progress")
	// ErrTooFast is returned by SenseContinuous when the requested interval
	// outruns the configured output data rate.
	ErrTooFast = errors.New("lis302dl: interval is shorter than the output data rate period")
)
