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
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
)

// Topology turns device addresses into correctly routed bus
// transactions. It owns the port routing and mux state caches.
// It is not safe for concurrent use.
type Topology struct {
	log         zerolog.Logger
	hw          bridge.I2C
	controllers map[api.Controller]ControllerConfig
	ports       []PortConfig
	muxes       []MuxConfig

	portMap       map[api.Controller]api.PortIndex
	muxMap        map[Bus]MuxState
	recoveryCount uint64
	recoveries    *pubsub.PubSub
	subscribers   *recoverySubscribers
}

// New creates a topology for the given configuration.
func New(log zerolog.Logger, config Config, hw bridge.I2C) (*Topology, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &Topology{
		log:         log.With().Str("component", "topology").Logger(),
		hw:          hw,
		controllers: make(map[api.Controller]ControllerConfig),
		ports:       config.Ports,
		muxes:       config.Muxes,
		portMap:     make(map[api.Controller]api.PortIndex),
		muxMap:      make(map[Bus]MuxState),
		recoveries:  pubsub.New(),
		subscribers: &recoverySubscribers{},
	}
	t.recoveries.Sub(t.subscribers.dispatch)
	for _, cc := range config.Controllers {
		t.controllers[cc.Controller] = cc
	}
	return t, nil
}

// Initialize brings all controllers and muxes in a known state.
// Every controller is enabled and routed to its first port, all other
// ports are released. Every mux is reset and, when its bus is routed,
// has all segments disabled. Muxes that can neither be reset nor
// reached start in the Unknown state.
func (t *Topology) Initialize() error {
	var ae aerr.AggregateError
	for _, pc := range t.ports {
		if _, routed := t.portMap[pc.Controller]; routed {
			if err := t.configurePins(pc, bridge.PinModeAnalog); err != nil {
				ae.Add(err)
			}
			continue
		}
		cc := t.controllers[pc.Controller]
		if err := t.hw.EnableController(cc.Controller); err != nil {
			ae.Add(errors.Wrapf(err, "EnableController[%s] failed", cc.Controller))
			continue
		}
		if err := t.hw.ConfigureTiming(cc.Controller, cc.Speed); err != nil {
			ae.Add(errors.Wrapf(err, "ConfigureTiming[%s] failed", cc.Controller))
		}
		if err := t.configurePins(pc, bridge.PinModeI2C); err != nil {
			ae.Add(err)
		}
		t.portMap[pc.Controller] = pc.Port
	}
	for _, bus := range t.muxBuses() {
		known := true
		for _, m := range t.muxesOn(bus) {
			if err := m.Driver.Configure(&m.Config); err != nil {
				ae.Add(err)
				known = false
				continue
			}
			if err := m.Driver.Reset(&m.Config); err != nil {
				ae.Add(err)
				known = false
			} else if m.ResetPin == nil {
				known = false
			}
		}
		if p, routed := t.portMap[bus.Controller]; routed && p == bus.Port {
			known = true
			if err := t.disableAllMuxes(bus); err != nil {
				ae.Add(errors.Wrapf(err, "disable muxes on %s failed", bus))
				known = false
			}
		}
		if !known {
			t.muxMap[bus] = Unknown
		}
	}
	if err := ae.AsError(); err != nil {
		return err
	}
	t.log.Info().
		Int("controllers", len(t.controllers)).
		Int("ports", len(t.ports)).
		Int("muxes", len(t.muxes)).
		Msg("Initialized topology")
	return nil
}

// Shutdown disables all muxes and controllers.
func (t *Topology) Shutdown() error {
	var ae aerr.AggregateError
	for _, bus := range t.muxBuses() {
		if err := t.routePort(bus.Controller, bus.Port); err != nil {
			ae.Add(err)
			continue
		}
		if err := t.disableAllMuxes(bus); err != nil {
			ae.Add(err)
		}
	}
	for c := range t.controllers {
		if err := t.hw.DisableController(c); err != nil {
			ae.Add(errors.Wrapf(err, "DisableController[%s] failed", c))
		}
	}
	return ae.AsError()
}

// WriteRead performs a write-read with the given device.
// Returns the number of bytes read.
func (t *Topology) WriteRead(dev api.Device, w, r []byte) (int, error) {
	return t.transact(dev, w, r, false)
}

// WriteReadBlock performs a block write-read with the given device.
// Returns the number of data bytes read.
func (t *Topology) WriteReadBlock(dev api.Device, w, r []byte) (int, error) {
	return t.transact(dev, w, r, true)
}

func (t *Topology) transact(dev api.Device, w, r []byte, block bool) (int, error) {
	bus := Bus{dev.Controller, dev.Port}
	if err := t.Select(dev); err != nil {
		transactionErrorCounters.WithLabelValues(bus.String(), api.CodeOf(err).String()).Inc()
		return 0, err
	}
	var n int
	var err error
	if block {
		n, err = t.hw.WriteReadBlock(dev.Controller, dev.Address, w, r)
	} else {
		n, err = t.hw.WriteRead(dev.Controller, dev.Address, w, r)
	}
	transactionCounters.WithLabelValues(bus.String()).Inc()
	if err != nil {
		code := api.CodeOf(err)
		transactionErrorCounters.WithLabelValues(bus.String(), code.String()).Inc()
		t.log.Debug().Err(err).Str("device", dev.String()).Msg("Transaction failed")
		t.handleFault(bus, code)
		return 0, err
	}
	return n, nil
}

// Select routes the controller to the port of the device and enables
// the mux segment of the device (if any). Nothing is written to the
// hardware for parts that are already in the requested state.
func (t *Topology) Select(dev api.Device) error {
	if err := t.ValidatePort(dev.Controller, dev.Port); err != nil {
		return err
	}
	if err := api.ValidateAddress(dev.Address); err != nil {
		return err
	}
	if err := t.routePort(dev.Controller, dev.Port); err != nil {
		return err
	}
	return t.selectMux(Bus{dev.Controller, dev.Port}, dev.Segment)
}

// ValidatePort checks that the controller and port are configured.
func (t *Topology) ValidatePort(c api.Controller, p api.PortIndex) error {
	if _, found := t.controllers[c]; !found {
		return errors.Wrapf(api.BadController, "controller %s is not configured", c)
	}
	if _, found := t.findPort(c, p); !found {
		return errors.Wrapf(api.BadPort, "port %d of %s is not configured", p, c)
	}
	return nil
}

// RoutePort routes a controller to one of its ports.
func (t *Topology) RoutePort(c api.Controller, p api.PortIndex) error {
	if err := t.ValidatePort(c, p); err != nil {
		return err
	}
	return t.routePort(c, p)
}

// routePort switches the pins of a controller when the requested port
// is not the current one. The old pins are released first so the
// controller is never connected to two pin sets.
func (t *Topology) routePort(c api.Controller, p api.PortIndex) error {
	current, routed := t.portMap[c]
	if routed && current == p {
		return nil
	}
	if routed {
		if old, found := t.findPort(c, current); found {
			if err := t.configurePins(old, bridge.PinModeAnalog); err != nil {
				return err
			}
		}
	}
	next, _ := t.findPort(c, p)
	if err := t.configurePins(next, bridge.PinModeI2C); err != nil {
		delete(t.portMap, c)
		return err
	}
	t.portMap[c] = p
	portSwitchCounters.WithLabelValues(c.String()).Inc()
	t.log.Debug().Str("controller", c.String()).Uint8("port", uint8(p)).Msg("Switched port")
	return nil
}

func (t *Topology) configurePins(pc PortConfig, mode bridge.PinMode) error {
	for _, pin := range pc.Pins {
		if err := pin.Configure(mode); err != nil {
			return errors.Wrapf(api.BadDeviceState, "configure pin of %s:%d as %s failed: %v", pc.Controller, pc.Port, mode, err)
		}
	}
	return nil
}

// selectMux brings the muxes on a bus in the state requested by want.
func (t *Topology) selectMux(bus Bus, want *api.MuxSegment) error {
	var target *MuxConfig
	if want != nil {
		m, found := t.findMux(bus, want.Mux)
		if !found {
			return errors.Wrapf(api.MuxNotFound, "%s on %s", want.Mux, bus)
		}
		target = m
	}
	current := t.muxMap[bus]

	switch {
	case current.IsEnabled() && want != nil && current.Mux == want.Mux:
		if current.Segment == want.Segment {
			muxCacheHitCounters.WithLabelValues(bus.String()).Inc()
			return nil
		}
		// Same mux, only the control register changes.
	case current.IsEnabled() && want != nil:
		prev, found := t.findMux(bus, current.Mux)
		if found {
			if err := t.writeMux(bus, prev, nil); err != nil {
				return t.muxFailed(bus, err)
			}
		}
		delete(t.muxMap, bus)
	case current.IsEnabled():
		if err := t.disableAllMuxes(bus); err != nil {
			return t.muxFailed(bus, err)
		}
		delete(t.muxMap, bus)
		return nil
	case current.IsUnknown():
		t.disableAllMuxesBestEffort(bus)
		delete(t.muxMap, bus)
	}

	if want == nil {
		return nil
	}
	seg := want.Segment
	if err := t.writeMux(bus, target, &seg); err != nil {
		if api.CodeOf(err) == api.SegmentNotFound {
			// Nothing was written.
			return err
		}
		return t.muxFailed(bus, err)
	}
	t.muxMap[bus] = Enabled(want.Mux, want.Segment)
	return nil
}

// muxFailed marks the bus unknown after a mux could not be programmed.
func (t *Topology) muxFailed(bus Bus, err error) error {
	code := api.CodeOf(err)
	t.log.Warn().Err(err).Str("bus", bus.String()).Msg("Mux programming failed")
	t.muxMap[bus] = Unknown
	t.handleFault(bus, code)
	return err
}

func (t *Topology) writeMux(bus Bus, m *MuxConfig, seg *api.Segment) error {
	muxWriteCounters.WithLabelValues(bus.String()).Inc()
	return m.Driver.EnableSegment(t.hw, &m.Config, seg)
}

// disableAllMuxes disables all segments of every mux on the bus,
// stopping at the first failure.
func (t *Topology) disableAllMuxes(bus Bus) error {
	for _, m := range t.muxesOn(bus) {
		if err := t.writeMux(bus, m, nil); err != nil {
			return err
		}
	}
	return nil
}

// disableAllMuxesBestEffort disables every mux on the bus, ignoring
// failures.
func (t *Topology) disableAllMuxesBestEffort(bus Bus) {
	for _, m := range t.muxesOn(bus) {
		if err := t.writeMux(bus, m, nil); err != nil {
			t.log.Debug().Err(err).Str("mux", m.Config.String()).Msg("Disable mux failed")
		}
	}
}

// handleFault recovers the bus after a fault that may have left it in
// an undefined state. The caller still reports the original fault.
func (t *Topology) handleFault(bus Bus, code api.ResponseCode) {
	if !code.NeedsReset() {
		return
	}
	t.log.Warn().
		Str("bus", bus.String()).
		Str("code", code.String()).
		Msg("Resetting bus")
	recoveryCounters.WithLabelValues(bus.String(), code.String()).Inc()
	if err := t.hw.ResetBus(bus.Controller); err != nil {
		t.log.Error().Err(err).Str("bus", bus.String()).Msg("ResetBus failed")
	}
	for _, m := range t.muxesOn(bus) {
		if err := m.Driver.Reset(&m.Config); err != nil {
			t.log.Debug().Err(err).Str("mux", m.Config.String()).Msg("Reset mux failed")
		}
	}
	t.disableAllMuxesBestEffort(bus)
	t.muxMap[bus] = Unknown
	t.publishRecovery(bus, code)
}

// MuxState returns the cached mux state of a bus.
func (t *Topology) MuxState(bus Bus) MuxState {
	return t.muxMap[bus]
}

// CurrentPort returns the port a controller is routed to.
func (t *Topology) CurrentPort(c api.Controller) (api.PortIndex, bool) {
	p, found := t.portMap[c]
	return p, found
}

// Snapshot returns a copy of the routing caches.
func (t *Topology) Snapshot() Snapshot {
	s := Snapshot{
		Ports:      make(map[api.Controller]api.PortIndex, len(t.portMap)),
		Muxes:      make(map[Bus]MuxState, len(t.muxMap)),
		Recoveries: t.recoveryCount,
	}
	for c, p := range t.portMap {
		s.Ports[c] = p
	}
	for b, m := range t.muxMap {
		s.Muxes[b] = m
	}
	return s
}

// Controllers returns the configured controllers.
func (t *Topology) Controllers() []api.Controller {
	return lo.Keys(t.controllers)
}

func (t *Topology) findPort(c api.Controller, p api.PortIndex) (PortConfig, bool) {
	return lo.Find(t.ports, func(pc PortConfig) bool {
		return pc.Controller == c && pc.Port == p
	})
}

func (t *Topology) findMux(bus Bus, id api.Mux) (*MuxConfig, bool) {
	for i := range t.muxes {
		m := &t.muxes[i]
		if m.Controller == bus.Controller && m.Port == bus.Port && m.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (t *Topology) muxesOn(bus Bus) []*MuxConfig {
	var result []*MuxConfig
	for i := range t.muxes {
		if m := &t.muxes[i]; m.Controller == bus.Controller && m.Port == bus.Port {
			result = append(result, m)
		}
	}
	return result
}

// muxBuses returns every bus that has at least one mux.
func (t *Topology) muxBuses() []Bus {
	return lo.Uniq(lo.Map(t.muxes, func(m MuxConfig, _ int) Bus {
		return Bus{m.Controller, m.Port}
	}))
}
