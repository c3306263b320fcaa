// Copyright 2025 Ewout Prangsma
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

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ResponseCode is the error taxonomy of the server.
// Zero is reserved for success and never used as a code.
type ResponseCode uint32

const (
	BadResponse ResponseCode = iota + 1
	BadArg
	NoDevice
	BadController
	ReservedAddress
	BadPort
	NoRegister
	BadMux
	BadSegment
	MuxNotFound
	SegmentNotFound
	SegmentDisconnected
	MuxDisconnected
	MuxMissing
	BadMuxRegister
	BusReset
	BusResetMux
	BusLocked
	BusLockedMux
	ControllerBusy
	BusError
	BadDeviceState
	OperationNotSupported
	IllegalLeaseCount
	TooMuchData
	SlaveAddressInUse
	SlaveNotSupported
	SlaveNotEnabled
	SlaveBufferFull
	BadSlaveAddress
	SlaveConfigurationFailed
)

var responseCodeNames = [...]string{
	BadResponse:              "BadResponse",
	BadArg:                   "BadArg",
	NoDevice:                 "NoDevice",
	BadController:            "BadController",
	ReservedAddress:          "ReservedAddress",
	BadPort:                  "BadPort",
	NoRegister:               "NoRegister",
	BadMux:                   "BadMux",
	BadSegment:               "BadSegment",
	MuxNotFound:              "MuxNotFound",
	SegmentNotFound:          "SegmentNotFound",
	SegmentDisconnected:      "SegmentDisconnected",
	MuxDisconnected:          "MuxDisconnected",
	MuxMissing:               "MuxMissing",
	BadMuxRegister:           "BadMuxRegister",
	BusReset:                 "BusReset",
	BusResetMux:              "BusResetMux",
	BusLocked:                "BusLocked",
	BusLockedMux:             "BusLockedMux",
	ControllerBusy:           "ControllerBusy",
	BusError:                 "BusError",
	BadDeviceState:           "BadDeviceState",
	OperationNotSupported:    "OperationNotSupported",
	IllegalLeaseCount:        "IllegalLeaseCount",
	TooMuchData:              "TooMuchData",
	SlaveAddressInUse:        "SlaveAddressInUse",
	SlaveNotSupported:        "SlaveNotSupported",
	SlaveNotEnabled:          "SlaveNotEnabled",
	SlaveBufferFull:          "SlaveBufferFull",
	BadSlaveAddress:          "BadSlaveAddress",
	SlaveConfigurationFailed: "SlaveConfigurationFailed",
}

// Valid returns true if the code is part of the taxonomy.
func (c ResponseCode) Valid() bool {
	return c >= BadResponse && c <= SlaveConfigurationFailed
}

// String returns the name of the code.
func (c ResponseCode) String() string {
	if c.Valid() {
		return responseCodeNames[c]
	}
	return fmt.Sprintf("ResponseCode(%d)", uint32(c))
}

// Error implements error.
func (c ResponseCode) Error() string {
	return "i2c: " + c.String()
}

// NeedsReset returns true for faults that may leave the bus or an
// attached mux in an undefined state.
func (c ResponseCode) NeedsReset() bool {
	switch c {
	case BusLocked, BusLockedMux, BusReset, BusResetMux, ControllerBusy, BusError:
		return true
	default:
		return false
	}
}

// FromUint32 converts a raw reply code into a ResponseCode.
// Values outside of the taxonomy become BadResponse.
func FromUint32(v uint32) ResponseCode {
	c := ResponseCode(v)
	if !c.Valid() {
		return BadResponse
	}
	return c
}

// CodeOf extracts the response code carried by err.
// Errors that do not carry a code map to BadDeviceState.
func CodeOf(err error) ResponseCode {
	if err == nil {
		return 0
	}
	if c, ok := errors.Cause(err).(ResponseCode); ok {
		return c
	}
	return BadDeviceState
}

// IsCode returns true if err carries the given code.
func IsCode(err error, code ResponseCode) bool {
	return err != nil && CodeOf(err) == code
}
