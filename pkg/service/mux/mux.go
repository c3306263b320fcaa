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

package mux

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
)

// Config describes one multiplexer on a bus.
type Config struct {
	Controller api.Controller
	Port       api.PortIndex
	ID         api.Mux
	Address    uint8
	// ResetPin is the active low reset input of the mux. Optional.
	ResetPin bridge.GPIOPin
}

func (c Config) String() string {
	return fmt.Sprintf("%s:%d %s@0x%02x", c.Controller, c.Port, c.ID, c.Address)
}

// Driver programs a specific kind of multiplexer.
type Driver interface {
	// Name of the mux chip.
	Name() string
	// Configure prepares the reset pin (if any).
	Configure(cfg *Config) error
	// Reset pulses the reset pin (if any).
	Reset(cfg *Config) error
	// EnableSegment connects the given segment to the bus, or
	// disconnects all segments when segment is nil.
	EnableSegment(hw bridge.I2C, cfg *Config, segment *api.Segment) error
}

// ByName returns the driver for a mux chip.
func ByName(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case "pca9548", "tca9548a":
		return PCA9548, nil
	case "pca9545":
		return PCA9545, nil
	default:
		return nil, errors.Errorf("unknown mux driver '%s'", name)
	}
}

// muxError maps a bus fault that occurred while talking to a mux
// onto its mux specific code.
func muxError(err error) error {
	var code api.ResponseCode
	switch api.CodeOf(err) {
	case api.BusLocked:
		code = api.BusLockedMux
	case api.BusReset:
		code = api.BusResetMux
	case api.NoDevice:
		code = api.MuxMissing
	default:
		return err
	}
	return errors.Wrapf(code, "%v", err)
}
