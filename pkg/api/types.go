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
)

// Controller identifies one of the I2C peripherals of the SoC.
type Controller uint8

const (
	I2C0 Controller = iota
	I2C1
	I2C2
	I2C3
	I2C4
	I2C5
	I2C6
	I2C7

	// MaxControllers is the number of controller identifiers.
	MaxControllers = 8
)

// Valid returns true if the controller is in range.
func (c Controller) Valid() bool {
	return c < MaxControllers
}

// String returns a human readable name.
func (c Controller) String() string {
	return fmt.Sprintf("I2C%d", uint8(c))
}

// PortIndex selects one of the pin sets a controller can be routed to.
// Any value decodes; whether it exists is a board concern.
type PortIndex uint8

// Mux identifies one of the multiplexers that can sit on a bus.
type Mux uint8

const (
	M1 Mux = iota + 1
	M2
	M3
	M4
	M5

	// MaxMux is the highest mux identifier.
	MaxMux = M5
)

// Valid returns true if the mux identifier is in range.
func (m Mux) Valid() bool {
	return m >= M1 && m <= MaxMux
}

func (m Mux) String() string {
	return fmt.Sprintf("M%d", uint8(m))
}

// Segment identifies a downstream channel of a multiplexer.
type Segment uint8

const (
	S1 Segment = iota + 1
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	S12
	S13
	S14
	S15
	S16

	// MaxSegment is the highest segment identifier.
	MaxSegment = S16
)

// Valid returns true if the segment identifier is in range.
func (s Segment) Valid() bool {
	return s >= S1 && s <= MaxSegment
}

func (s Segment) String() string {
	return fmt.Sprintf("S%d", uint8(s))
}

// MuxSegment names a segment of a specific mux.
type MuxSegment struct {
	Mux     Mux
	Segment Segment
}

func (ms MuxSegment) String() string {
	return ms.Mux.String() + ":" + ms.Segment.String()
}

// Device is the full address of a target on the bus.
// A nil Segment means the device is attached directly to the port.
type Device struct {
	Controller Controller
	Port       PortIndex
	Segment    *MuxSegment
	Address    uint8
}

// Equal returns true if both devices address the same target.
func (d Device) Equal(other Device) bool {
	if d.Controller != other.Controller || d.Port != other.Port || d.Address != other.Address {
		return false
	}
	if d.Segment == nil || other.Segment == nil {
		return d.Segment == nil && other.Segment == nil
	}
	return *d.Segment == *other.Segment
}

// String returns a compact representation, e.g. "I2C1:0 M1:S2 0x48".
func (d Device) String() string {
	if d.Segment == nil {
		return fmt.Sprintf("%s:%d 0x%02x", d.Controller, d.Port, d.Address)
	}
	return fmt.Sprintf("%s:%d %s 0x%02x", d.Controller, d.Port, d.Segment, d.Address)
}
