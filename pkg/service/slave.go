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

package service

import (
	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
)

// configureSlaveAddress sets the address a controller answers to.
func (s *service) configureSlaveAddress(msg *ipc.Message) error {
	cfg, err := api.UnmarshalSlaveConfig(msg.Payload)
	if err != nil {
		return err
	}
	return s.configureSlave(cfg)
}

func (s *service) configureSlave(cfg api.SlaveConfig) error {
	if err := s.Topology.ValidatePort(cfg.Controller, cfg.Port); err != nil {
		return err
	}
	// Controllers are separate buses; only the controller's other ports clash.
	if ss, found := s.slaves[cfg.Controller]; found && ss.config.Address == cfg.Address && ss.config.Port != cfg.Port {
		return errors.Wrapf(api.SlaveAddressInUse, "0x%02x is used by %s:%d", cfg.Address, cfg.Controller, ss.config.Port)
	}
	if err := s.Topology.RoutePort(cfg.Controller, cfg.Port); err != nil {
		return err
	}
	if err := s.Hardware.ConfigureSlaveMode(cfg.Controller, cfg); err != nil {
		return err
	}
	ss, found := s.slaves[cfg.Controller]
	if !found {
		ss = &slaveState{}
		s.slaves[cfg.Controller] = ss
	}
	ss.config = cfg
	s.Logger.Info().
		Str("controller", cfg.Controller.String()).
		Uint8("port", uint8(cfg.Port)).
		Uint8("address", cfg.Address).
		Msg("Configured slave address")
	return nil
}

// slaveHeader decodes the header of the slave receive operations.
func (s *service) slaveHeader(msg *ipc.Message) (api.Device, error) {
	dev, err := api.UnmarshalPayload(msg.Payload)
	if err != nil {
		return api.Device{}, err
	}
	if err := s.Topology.ValidatePort(dev.Controller, dev.Port); err != nil {
		return api.Device{}, err
	}
	return dev, nil
}

// enableSlaveReceive starts receiving on a configured controller.
// Enabling twice is not an error.
func (s *service) enableSlaveReceive(msg *ipc.Message) error {
	dev, err := s.slaveHeader(msg)
	if err != nil {
		return err
	}
	return s.enableSlave(dev.Controller, dev.Port)
}

func (s *service) enableSlave(c api.Controller, p api.PortIndex) error {
	ss, found := s.slaves[c]
	if !found || ss.config.Port != p {
		return errors.Wrapf(api.SlaveConfigurationFailed, "no slave address configured on %s:%d", c, p)
	}
	if ss.receiving {
		return nil
	}
	if err := s.Hardware.EnableSlaveReceive(c); err != nil {
		return err
	}
	ss.receiving = true
	return nil
}

// configureInitialSlaves applies the slave addresses of the board
// configuration. Failures are logged, they do not stop the server.
func (s *service) configureInitialSlaves() {
	for _, sc := range s.Slaves {
		log := s.Logger.With().
			Str("controller", sc.Controller.String()).
			Uint8("port", uint8(sc.Port)).
			Uint8("address", sc.Address).
			Logger()
		if err := s.configureSlave(sc.SlaveConfig); err != nil {
			log.Warn().Err(err).Msg("Failed to configure slave address")
			continue
		}
		if sc.Receive {
			if err := s.enableSlave(sc.Controller, sc.Port); err != nil {
				log.Warn().Err(err).Msg("Failed to enable slave receive")
			}
		}
	}
}

// disableSlaveReceive stops receiving. Disabling a controller that is
// not receiving is not an error.
func (s *service) disableSlaveReceive(msg *ipc.Message) error {
	dev, err := s.slaveHeader(msg)
	if err != nil {
		return err
	}
	ss, found := s.slaves[dev.Controller]
	if !found || !ss.receiving || ss.config.Port != dev.Port {
		return nil
	}
	if err := s.Hardware.DisableSlaveReceive(dev.Controller); err != nil {
		return err
	}
	ss.receiving = false
	s.dropSlaveMessages(dev.Controller, len(ss.pending), "Slave receive disabled")
	ss.pending = nil
	return nil
}

func (s *service) dropSlaveMessages(c api.Controller, count int, reason string) {
	if count == 0 {
		return
	}
	slaveDroppedCounters.WithLabelValues(c.String()).Add(float64(count))
	s.Logger.Warn().Int("dropped", count).Str("controller", c.String()).Msg(reason)
}

// checkSlaveBuffer moves received messages into the single writable
// lease as [source, length, data...] records. Returns the number of
// bytes written. Messages that do not fit stay pending for the next
// call, unless a single message is larger than the whole buffer.
func (s *service) checkSlaveBuffer(msg *ipc.Message) (int, error) {
	dev, err := s.slaveHeader(msg)
	if err != nil {
		return 0, err
	}
	if msg.LeaseCount() != 1 {
		return 0, errors.Wrapf(api.IllegalLeaseCount, "%d leases", msg.LeaseCount())
	}
	ss, found := s.slaves[dev.Controller]
	if !found || !ss.receiving || ss.config.Port != dev.Port {
		return 0, errors.Wrapf(api.SlaveNotEnabled, "%s:%d", dev.Controller, dev.Port)
	}
	lease, err := msg.Lease(0)
	if err != nil {
		return 0, leaseError(err)
	}
	info, err := lease.Info()
	if err != nil {
		return 0, leaseError(err)
	}
	if !info.Attributes.Writable() {
		return 0, errors.Wrap(api.BadArg, "slave buffer lease is not writable")
	}

	if room := s.SlavePollBatch - len(ss.pending); room > 0 {
		msgs := make([]api.SlaveMessage, room)
		n, err := s.Hardware.PollSlaveMessages(dev.Controller, msgs)
		if err != nil {
			return 0, err
		}
		ss.pending = append(ss.pending, msgs[:n]...)
	}
	buf := make([]byte, info.Len)
	size, encoded := api.EncodeSlaveMessages(buf, ss.pending)
	if encoded == 0 && len(ss.pending) > 0 {
		s.dropSlaveMessages(dev.Controller, 1, "Slave message larger than buffer")
		ss.pending = ss.pending[1:]
		size, encoded = api.EncodeSlaveMessages(buf, ss.pending)
	}
	if err := lease.WriteRange(0, buf[:size]); err != nil {
		return 0, leaseError(err)
	}
	ss.pending = ss.pending[encoded:]
	if len(ss.pending) == 0 {
		ss.pending = nil
	}
	slaveMessageCounters.WithLabelValues(dev.Controller.String()).Add(float64(encoded))
	return size, nil
}
