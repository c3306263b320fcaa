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

package topology

import (
	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
	"github.com/binkynet/I2CServer/pkg/service/mux"
)

// ControllerConfig describes a controller used on the board.
type ControllerConfig struct {
	Controller api.Controller
	Speed      api.Speed
}

// PortConfig describes a pin set a controller can be routed to.
// Pins may be empty for controllers with a single fixed port.
type PortConfig struct {
	Controller api.Controller
	Port       api.PortIndex
	Pins       []bridge.GPIOPin
}

// MuxConfig describes a multiplexer on a bus and its driver.
type MuxConfig struct {
	mux.Config
	Driver mux.Driver
}

// Config is the static description of all buses of a board.
type Config struct {
	Controllers []ControllerConfig
	Ports       []PortConfig
	Muxes       []MuxConfig
}

// Validate the configuration.
func (c Config) Validate() error {
	controllers := make(map[api.Controller]bool)
	for _, cc := range c.Controllers {
		if !cc.Controller.Valid() {
			return errors.Wrapf(api.BadController, "controller %d out of range", cc.Controller)
		}
		if controllers[cc.Controller] {
			return errors.Errorf("duplicate controller %s", cc.Controller)
		}
		controllers[cc.Controller] = true
	}
	ports := make(map[Bus]bool)
	for _, pc := range c.Ports {
		if !controllers[pc.Controller] {
			return errors.Wrapf(api.BadController, "port %d refers to unconfigured controller %s", pc.Port, pc.Controller)
		}
		bus := Bus{pc.Controller, pc.Port}
		if ports[bus] {
			return errors.Errorf("duplicate port %s", bus)
		}
		ports[bus] = true
	}
	for _, cc := range c.Controllers {
		if !hasPort(c.Ports, cc.Controller) {
			return errors.Wrapf(api.BadPort, "controller %s has no ports", cc.Controller)
		}
	}
	muxes := make(map[Bus]map[api.Mux]bool)
	for _, mc := range c.Muxes {
		bus := Bus{mc.Controller, mc.Port}
		if !ports[bus] {
			return errors.Wrapf(api.BadPort, "mux %s refers to unconfigured port", mc.Config)
		}
		if !mc.ID.Valid() {
			return errors.Wrapf(api.BadMux, "mux %s has invalid id", mc.Config)
		}
		if mc.Driver == nil {
			return errors.Errorf("mux %s has no driver", mc.Config)
		}
		if err := api.ValidateAddress(mc.Address); err != nil {
			return errors.Wrapf(err, "mux %s has invalid address", mc.Config)
		}
		if muxes[bus] == nil {
			muxes[bus] = make(map[api.Mux]bool)
		}
		if muxes[bus][mc.ID] {
			return errors.Errorf("duplicate mux %s", mc.Config)
		}
		muxes[bus][mc.ID] = true
	}
	return nil
}

func hasPort(ports []PortConfig, c api.Controller) bool {
	for _, pc := range ports {
		if pc.Controller == c {
			return true
		}
	}
	return false
}
