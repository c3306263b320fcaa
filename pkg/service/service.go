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
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

// Service serves I2C requests received on an endpoint.
type Service interface {
	// Run the server loop until the given context is canceled.
	Run(ctx context.Context) error
	// Status returns a snapshot of the server state.
	// It is safe to call from any goroutine, also after Run has returned.
	Status(ctx context.Context) (Status, error)
}

// Config of the service.
type Config struct {
	// Maximum number of slave messages collected per CheckSlaveBuffer.
	SlavePollBatch int
	// Slave addresses configured at startup.
	Slaves []InitialSlave
}

// InitialSlave is a slave address that is configured when the
// service starts.
type InitialSlave struct {
	api.SlaveConfig
	// Receive is set to also enable receiving.
	Receive bool
}

// Dependencies of the service.
type Dependencies struct {
	Logger   zerolog.Logger
	Endpoint *ipc.Endpoint
	Hardware bridge.Hardware
	Topology *topology.Topology
}

// Status is a snapshot of the server state.
type Status struct {
	StartedAt  time.Time              `json:"started_at"`
	Requests   uint64                 `json:"requests"`
	Failures   uint64                 `json:"failures"`
	Dropped    uint64                 `json:"dropped"`
	Recoveries uint64                 `json:"recoveries"`
	Ports      map[string]uint8       `json:"ports"`
	Muxes      map[string]string      `json:"muxes"`
	Slaves     map[string]SlaveStatus `json:"slaves,omitempty"`
}

// SlaveStatus is the slave mode state of a controller.
type SlaveStatus struct {
	Port      uint8 `json:"port"`
	Address   uint8 `json:"address"`
	Receiving bool  `json:"receiving"`
	api.SlaveStatus
}

type slaveState struct {
	config    api.SlaveConfig
	receiving bool
	// Polled messages that did not fit the last client buffer.
	pending []api.SlaveMessage
}

type service struct {
	Config
	Dependencies

	statusRequests chan chan Status
	stopped        chan struct{}
	slaves         map[api.Controller]*slaveState
	startedAt      time.Time
	requests       uint64
	failures       uint64
	dropped        uint64
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if deps.Endpoint == nil || deps.Hardware == nil || deps.Topology == nil {
		return nil, errors.New("endpoint, hardware and topology are required")
	}
	if conf.SlavePollBatch <= 0 {
		conf.SlavePollBatch = 16
	}
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	return &service{
		Config:         conf,
		Dependencies:   deps,
		statusRequests: make(chan chan Status),
		stopped:        make(chan struct{}),
		slaves:         make(map[api.Controller]*slaveState),
	}, nil
}

// Run initializes the topology, then handles messages one at a time
// until the given context is canceled.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer close(s.stopped)
	if err := s.Topology.Initialize(); err != nil {
		return errors.Wrap(err, "Initialize failed")
	}
	defer func() {
		if err := s.Topology.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("Shutdown failed")
		}
	}()
	s.configureInitialSlaves()
	s.startedAt = time.Now()
	log.Info().Str("endpoint", s.Endpoint.Task().Name()).Msg("Serving I2C requests")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("requests", s.requests).Msg("Stopped serving I2C requests")
			return nil
		case msg := <-s.Endpoint.Messages():
			s.handle(msg)
		case <-s.Endpoint.Notifications():
			s.handleNotifications()
		case reply := <-s.statusRequests:
			reply <- s.status()
		}
	}
}

// Status implements Service.
// Once Run has returned, the final state is returned.
func (s *service) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case s.statusRequests <- reply:
	case <-s.stopped:
		return s.status(), nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// handle a single message. Every message gets exactly one reply,
// unless its sender has died.
func (s *service) handle(msg *ipc.Message) {
	op := api.Op(msg.Op)
	s.requests++
	requestCounters.WithLabelValues(op.String()).Inc()

	value, err := s.dispatch(op, msg)
	if err != nil {
		if ipc.IsCallerDied(err) {
			s.dropped++
			droppedCounter.Inc()
			s.Logger.Debug().Str("op", op.String()).Msg("Caller died, dropping request")
			msg.Drop()
			return
		}
		code := api.CodeOf(err)
		s.failures++
		failureCounters.WithLabelValues(op.String(), code.String()).Inc()
		s.Logger.Debug().Err(err).Str("op", op.String()).Str("code", code.String()).Msg("Request failed")
		msg.ReplyError(uint32(code))
		return
	}
	msg.Reply(value)
}

func (s *service) dispatch(op api.Op, msg *ipc.Message) (int, error) {
	switch op {
	case api.OpWriteRead:
		return s.writeRead(msg, false)
	case api.OpWriteReadBlock:
		return s.writeRead(msg, true)
	case api.OpConfigureSlaveAddress:
		return 0, s.configureSlaveAddress(msg)
	case api.OpEnableSlaveReceive:
		return 0, s.enableSlaveReceive(msg)
	case api.OpDisableSlaveReceive:
		return 0, s.disableSlaveReceive(msg)
	case api.OpCheckSlaveBuffer:
		return s.checkSlaveBuffer(msg)
	default:
		return 0, errors.Wrapf(api.OperationNotSupported, "op %d", msg.Op)
	}
}

func (s *service) handleNotifications() {
	bits := s.Endpoint.TakeNotifications()
	if bits == 0 {
		return
	}
	notificationCounter.Inc()
	s.Logger.Debug().Uint32("bits", bits).Msg("Notification")
	if n, ok := s.Hardware.(bridge.Notifier); ok {
		n.HandleNotification(bits)
	}
}

func (s *service) status() Status {
	snapshot := s.Topology.Snapshot()
	st := Status{
		StartedAt:  s.startedAt,
		Requests:   s.requests,
		Failures:   s.failures,
		Dropped:    s.dropped,
		Recoveries: snapshot.Recoveries,
		Ports:      make(map[string]uint8, len(snapshot.Ports)),
		Muxes:      snapshot.MuxStates(),
	}
	for c, p := range snapshot.Ports {
		st.Ports[c.String()] = uint8(p)
	}
	controllers := make([]api.Controller, 0, len(s.slaves))
	for c := range s.slaves {
		controllers = append(controllers, c)
	}
	sort.Slice(controllers, func(i, j int) bool { return controllers[i] < controllers[j] })
	for _, c := range controllers {
		ss := s.slaves[c]
		entry := SlaveStatus{
			Port:      uint8(ss.config.Port),
			Address:   ss.config.Address,
			Receiving: ss.receiving,
		}
		if hs, err := s.Hardware.SlaveStatus(c); err == nil {
			entry.SlaveStatus = hs
		}
		if st.Slaves == nil {
			st.Slaves = make(map[string]SlaveStatus)
		}
		st.Slaves[c.String()] = entry
	}
	return st
}
