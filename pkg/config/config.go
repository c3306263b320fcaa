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

package config

import (
	"bytes"
	"io"
	"os"
	"sort"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/probe"
	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
	"github.com/binkynet/I2CServer/pkg/service/mux"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

// Config is the board description of an I2C server.
type Config struct {
	Controllers []ControllerConfig `yaml:"controllers"`
	Muxes       []MuxConfig        `yaml:"muxes,omitempty"`
	Slaves      []SlaveConfig      `yaml:"slaves,omitempty"`
	// Maximum number of slave messages returned by one buffer check.
	SlavePollBatch int `yaml:"slave_poll_batch,omitempty"`
	// GPIO number of a status led (linux hardware only).
	StatusLEDPin *int `yaml:"status_led_pin,omitempty"`
	// Devices checked periodically for presence.
	Probe ProbeConfig `yaml:"probe,omitempty"`
}

// ControllerConfig describes a controller and the ports it can be
// routed to.
type ControllerConfig struct {
	ID    uint8        `yaml:"id"`
	Speed string       `yaml:"speed,omitempty"`
	Ports []PortConfig `yaml:"ports"`
	// Device path (linux hardware only). Derived from the controller id
	// when empty.
	Device string `yaml:"device,omitempty"`
	// GPIO number of the SCL line, used for bus lockup recovery
	// (linux hardware only).
	SCLPin *int `yaml:"scl_pin,omitempty"`
}

// PortConfig describes one pin set of a controller.
type PortConfig struct {
	Index uint8 `yaml:"index"`
	Pins  []int `yaml:"pins,omitempty"`
}

// MuxConfig describes a multiplexer.
type MuxConfig struct {
	Controller uint8  `yaml:"controller"`
	Port       uint8  `yaml:"port"`
	ID         uint8  `yaml:"id"`
	Driver     string `yaml:"driver"`
	Address    uint8  `yaml:"address"`
	ResetPin   *int   `yaml:"reset_pin,omitempty"`
}

// SlaveConfig describes a slave address configured at startup.
type SlaveConfig struct {
	Controller uint8 `yaml:"controller"`
	Port       uint8 `yaml:"port"`
	Address    uint8 `yaml:"address"`
	Receive    bool  `yaml:"receive,omitempty"`
}

// ProbeConfig configures the device presence probe.
type ProbeConfig struct {
	Interval time.Duration  `yaml:"interval,omitempty"`
	Devices  []DeviceConfig `yaml:"devices,omitempty"`
}

// DeviceConfig is the address of a device. Mux and Segment are both
// zero for a device attached directly to the port.
type DeviceConfig struct {
	Controller uint8 `yaml:"controller"`
	Port       uint8 `yaml:"port"`
	Mux        uint8 `yaml:"mux,omitempty"`
	Segment    uint8 `yaml:"segment,omitempty"`
	Address    uint8 `yaml:"address"`
}

// Device converts the configuration into a device address.
func (d DeviceConfig) Device() (api.Device, error) {
	dev := api.Device{
		Controller: api.Controller(d.Controller),
		Port:       api.PortIndex(d.Port),
		Address:    d.Address,
	}
	if d.Mux != 0 || d.Segment != 0 {
		dev.Segment = &api.MuxSegment{Mux: api.Mux(d.Mux), Segment: api.Segment(d.Segment)}
	}
	if _, err := dev.Marshal(); err != nil {
		return api.Device{}, errors.Wrapf(err, "device %s", dev)
	}
	if err := api.ValidateAddress(d.Address); err != nil {
		return api.Device{}, errors.Wrapf(err, "device %s", dev)
	}
	return dev, nil
}

// Load the configuration from the file with given path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config failed")
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse the configuration from the given YAML document.
func Parse(data []byte) (Config, error) {
	return Read(bytes.NewReader(data))
}

// Read the configuration from the given YAML stream.
// Unknown fields are rejected.
func Read(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode failed")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// Validate the configuration, reporting all problems found.
func (c Config) Validate() error {
	var ae aerr.AggregateError
	if len(c.Controllers) == 0 {
		ae.Add(errors.New("no controllers configured"))
	}
	for _, cc := range c.Controllers {
		if !api.Controller(cc.ID).Valid() {
			ae.Add(errors.Errorf("controller %d out of range", cc.ID))
		}
		if _, err := api.ParseSpeed(cc.Speed); err != nil {
			ae.Add(errors.Wrapf(err, "controller %d", cc.ID))
		}
		if len(cc.Ports) == 0 {
			ae.Add(errors.Errorf("controller %d has no ports", cc.ID))
		}
		indexes := lo.Map(cc.Ports, func(p PortConfig, _ int) uint8 { return p.Index })
		if len(lo.Uniq(indexes)) != len(indexes) {
			ae.Add(errors.Errorf("controller %d has duplicate ports", cc.ID))
		}
		for _, pc := range cc.Ports {
			for _, pin := range pc.Pins {
				if pin < 0 {
					ae.Add(errors.Errorf("controller %d port %d has negative pin %d", cc.ID, pc.Index, pin))
				}
			}
		}
	}
	ids := lo.Map(c.Controllers, func(cc ControllerConfig, _ int) uint8 { return cc.ID })
	if len(lo.Uniq(ids)) != len(ids) {
		ae.Add(errors.New("duplicate controllers"))
	}
	for _, mc := range c.Muxes {
		if _, err := mux.ByName(mc.Driver); err != nil {
			ae.Add(err)
		}
		if !api.Mux(mc.ID).Valid() {
			ae.Add(errors.Errorf("mux id %d out of range", mc.ID))
		}
		if err := api.ValidateAddress(mc.Address); err != nil {
			ae.Add(errors.Wrapf(err, "mux M%d address 0x%02x", mc.ID, mc.Address))
		}
		if !c.hasPort(mc.Controller, mc.Port) {
			ae.Add(errors.Errorf("mux M%d refers to unknown port I2C%d:%d", mc.ID, mc.Controller, mc.Port))
		}
	}
	for _, sc := range c.Slaves {
		if err := api.ValidateAddress(sc.Address); err != nil {
			ae.Add(errors.Wrapf(err, "slave address 0x%02x", sc.Address))
		}
		if !c.hasPort(sc.Controller, sc.Port) {
			ae.Add(errors.Errorf("slave 0x%02x refers to unknown port I2C%d:%d", sc.Address, sc.Controller, sc.Port))
		}
	}
	for _, dc := range c.Probe.Devices {
		if _, err := dc.Device(); err != nil {
			ae.Add(err)
			continue
		}
		if !c.hasPort(dc.Controller, dc.Port) {
			ae.Add(errors.Errorf("probe device 0x%02x refers to unknown port I2C%d:%d", dc.Address, dc.Controller, dc.Port))
		} else if dc.Mux != 0 && !c.hasMux(dc.Controller, dc.Port, dc.Mux) {
			ae.Add(errors.Errorf("probe device 0x%02x refers to unknown mux M%d", dc.Address, dc.Mux))
		}
	}
	if c.Probe.Interval < 0 {
		ae.Add(errors.New("probe interval must not be negative"))
	}
	if c.SlavePollBatch < 0 {
		ae.Add(errors.New("slave_poll_batch must not be negative"))
	}
	return ae.AsError()
}

func (c Config) hasPort(controller, port uint8) bool {
	cc, found := lo.Find(c.Controllers, func(cc ControllerConfig) bool { return cc.ID == controller })
	if !found {
		return false
	}
	return lo.ContainsBy(cc.Ports, func(p PortConfig) bool { return p.Index == port })
}

func (c Config) hasMux(controller, port, id uint8) bool {
	return lo.ContainsBy(c.Muxes, func(mc MuxConfig) bool {
		return mc.Controller == controller && mc.Port == port && mc.ID == id
	})
}

// Topology builds the topology configuration, creating GPIO pins with
// the given factory.
func (c Config) Topology(pins bridge.PinFactory) (topology.Config, error) {
	var result topology.Config
	for _, cc := range c.Controllers {
		speed, err := api.ParseSpeed(cc.Speed)
		if err != nil {
			return topology.Config{}, err
		}
		controller := api.Controller(cc.ID)
		result.Controllers = append(result.Controllers, topology.ControllerConfig{
			Controller: controller,
			Speed:      speed,
		})
		for _, pc := range cc.Ports {
			result.Ports = append(result.Ports, topology.PortConfig{
				Controller: controller,
				Port:       api.PortIndex(pc.Index),
				Pins: lo.Map(pc.Pins, func(n int, _ int) bridge.GPIOPin {
					return pins.Pin(n)
				}),
			})
		}
	}
	for _, mc := range c.Muxes {
		driver, err := mux.ByName(mc.Driver)
		if err != nil {
			return topology.Config{}, err
		}
		m := topology.MuxConfig{
			Config: mux.Config{
				Controller: api.Controller(mc.Controller),
				Port:       api.PortIndex(mc.Port),
				ID:         api.Mux(mc.ID),
				Address:    mc.Address,
			},
			Driver: driver,
		}
		if mc.ResetPin != nil {
			m.ResetPin = pins.Pin(*mc.ResetPin)
		}
		result.Muxes = append(result.Muxes, m)
	}
	if err := result.Validate(); err != nil {
		return topology.Config{}, err
	}
	return result, nil
}

// Linux builds the configuration of the i2c-dev hardware.
func (c Config) Linux(devicePattern string) bridge.LinuxConfig {
	result := bridge.LinuxConfig{
		DevicePattern: devicePattern,
		Buses:         make(map[api.Controller]bridge.LinuxBusConfig),
		StatusLEDPin:  -1,
	}
	if c.StatusLEDPin != nil {
		result.StatusLEDPin = *c.StatusLEDPin
	}
	for _, cc := range c.Controllers {
		bc := bridge.LinuxBusConfig{Device: cc.Device, SCLPin: -1}
		if cc.SCLPin != nil {
			bc.SCLPin = *cc.SCLPin
		}
		result.Buses[api.Controller(cc.ID)] = bc
	}
	return result
}

// Service builds the configuration of the I2C service.
func (c Config) Service() service.Config {
	slaves := lo.Map(c.Slaves, func(sc SlaveConfig, _ int) service.InitialSlave {
		return service.InitialSlave{
			SlaveConfig: api.SlaveConfig{
				Controller: api.Controller(sc.Controller),
				Port:       api.PortIndex(sc.Port),
				Address:    sc.Address,
			},
			Receive: sc.Receive,
		}
	})
	return service.Config{
		SlavePollBatch: c.SlavePollBatch,
		Slaves:         slaves,
	}
}

// ProbeConfig builds the configuration of the device probe.
func (c Config) ProbeConfig() (probe.Config, error) {
	result := probe.Config{Interval: c.Probe.Interval}
	for _, dc := range c.Probe.Devices {
		dev, err := dc.Device()
		if err != nil {
			return probe.Config{}, err
		}
		result.Devices = append(result.Devices, dev)
	}
	return result, nil
}

// Pins returns all GPIO numbers used by the configuration, sorted.
func (c Config) Pins() []int {
	var pins []int
	for _, cc := range c.Controllers {
		for _, pc := range cc.Ports {
			pins = append(pins, pc.Pins...)
		}
		if cc.SCLPin != nil {
			pins = append(pins, *cc.SCLPin)
		}
	}
	for _, mc := range c.Muxes {
		if mc.ResetPin != nil {
			pins = append(pins, *mc.ResetPin)
		}
	}
	if c.StatusLEDPin != nil {
		pins = append(pins, *c.StatusLEDPin)
	}
	pins = lo.Uniq(pins)
	sort.Ints(pins)
	return pins
}
