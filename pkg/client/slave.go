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

package client

import (
	"context"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
)

const (
	// Size of the buffer used by SlaveMessages.
	slaveBufferSize = 256
)

// Slave is a handle for slave mode on a controller port.
type Slave struct {
	conn       *Conn
	controller api.Controller
	port       api.PortIndex
	header     [api.HeaderSize]byte
}

// ConfigureAddress sets the address the controller answers to.
func (s *Slave) ConfigureAddress(ctx context.Context, addr uint8) error {
	cfg := api.SlaveConfig{Controller: s.controller, Port: s.port, Address: addr}
	payload := cfg.Marshal()
	_, err := s.conn.send(ctx, api.OpConfigureSlaveAddress, payload[:])
	return err
}

// EnableReceive starts receiving messages.
func (s *Slave) EnableReceive(ctx context.Context) error {
	_, err := s.conn.send(ctx, api.OpEnableSlaveReceive, s.header[:])
	return err
}

// DisableReceive stops receiving messages.
func (s *Slave) DisableReceive(ctx context.Context) error {
	_, err := s.conn.send(ctx, api.OpDisableSlaveReceive, s.header[:])
	return err
}

// CheckBuffer moves received messages into buf as
// [source, length, data...] records. Returns the number of bytes used.
func (s *Slave) CheckBuffer(ctx context.Context, buf []byte) (int, error) {
	return s.conn.send(ctx, api.OpCheckSlaveBuffer, s.header[:], ipc.WriteOnly(buf))
}

// Messages returns the messages received since the last check.
func (s *Slave) Messages(ctx context.Context) ([]api.SlaveMessage, error) {
	buf := make([]byte, slaveBufferSize)
	n, err := s.CheckBuffer(ctx, buf)
	if err != nil {
		return nil, err
	}
	return api.DecodeSlaveMessages(buf[:n]), nil
}
