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

	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
)

var (
	// ErrServerRestarted is returned once the server has restarted since
	// the connection was created. The connection cannot be used anymore.
	ErrServerRestarted = errors.New("i2c server restarted")
)

// Conn is a connection of a client task to the I2C server.
type Conn struct {
	endpoint   *ipc.Endpoint
	task       *ipc.Task
	generation uint8
}

// NewConn creates a connection to the server behind the endpoint.
func NewConn(endpoint *ipc.Endpoint, task *ipc.Task) *Conn {
	return &Conn{
		endpoint:   endpoint,
		task:       task,
		generation: endpoint.Task().Generation(),
	}
}

// send a request and convert the reply code.
func (c *Conn) send(ctx context.Context, op api.Op, payload []byte, leases ...ipc.LeaseSpec) (int, error) {
	code, value, err := c.endpoint.Send(ctx, c.task, c.generation, uint16(op), payload, leases...)
	if err != nil {
		return 0, err
	}
	switch {
	case code == 0:
		return value, nil
	case ipc.IsDeadCode(code):
		return 0, errors.WithStack(ErrServerRestarted)
	default:
		return 0, api.FromUint32(code)
	}
}

// Device returns a handle for the given device.
func (c *Conn) Device(dev api.Device) (*Device, error) {
	header, err := dev.Marshal()
	if err != nil {
		return nil, err
	}
	return &Device{conn: c, device: dev, header: header}, nil
}

// Slave returns a handle for slave mode on a controller port.
func (c *Conn) Slave(controller api.Controller, port api.PortIndex) (*Slave, error) {
	header, err := api.Device{Controller: controller, Port: port}.Marshal()
	if err != nil {
		return nil, err
	}
	return &Slave{conn: c, controller: controller, port: port, header: header}, nil
}
