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

package bridge

import (
	"github.com/binkynet/I2CServer/pkg/api"
)

// I2C is the master side of the hardware.
// Every call is one complete bus operation.
type I2C interface {
	// WriteRead writes w (if any) to the device at addr, then reads
	// into r (if any) using a repeated start.
	// Returns the number of bytes read.
	WriteRead(c api.Controller, addr uint8, w, r []byte) (int, error)
	// WriteReadBlock is like WriteRead, except that the first byte read
	// from the device is a length prefix that is not stored in r.
	// Returns the number of data bytes read.
	WriteReadBlock(c api.Controller, addr uint8, w, r []byte) (int, error)
	// ConfigureTiming sets the bus speed of a controller.
	ConfigureTiming(c api.Controller, speed api.Speed) error
	// ResetBus recovers a controller from a hung bus.
	ResetBus(c api.Controller) error
	// EnableController turns a controller on.
	EnableController(c api.Controller) error
	// DisableController turns a controller off.
	DisableController(c api.Controller) error
}

// Slave is the target mode side of the hardware.
type Slave interface {
	ConfigureSlaveMode(c api.Controller, cfg api.SlaveConfig) error
	EnableSlaveReceive(c api.Controller) error
	DisableSlaveReceive(c api.Controller) error
	// PollSlaveMessages moves received messages into msgs.
	// Returns the number of messages stored.
	PollSlaveMessages(c api.Controller, msgs []api.SlaveMessage) (int, error)
	SlaveStatus(c api.Controller) (api.SlaveStatus, error)
}

// Hardware is the complete set of controller operations the server needs.
type Hardware interface {
	I2C
	Slave
}

// Notifier is implemented by hardware that wants to see the
// notification bits posted to the server (e.g. interrupts).
type Notifier interface {
	HandleNotification(bits uint32)
}

// PinMode is the function a pin is switched to.
type PinMode uint8

const (
	// PinModeAnalog disconnects the pin (high impedance).
	PinModeAnalog PinMode = iota
	// PinModeI2C connects the pin to its I2C controller.
	PinModeI2C
)

func (m PinMode) String() string {
	if m == PinModeI2C {
		return "i2c"
	}
	return "analog"
}

// GPIOPin is a single general purpose pin.
type GPIOPin interface {
	SetHigh() error
	SetLow() error
	ConfigureAsOutput() error
	// Configure switches the pin function.
	Configure(mode PinMode) error
}

// PinFactory creates pins by number.
type PinFactory interface {
	Pin(number int) GPIOPin
}
