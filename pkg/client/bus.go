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
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
)

// TxBus presents one bus segment as a plain Tx style I2C bus so
// existing device drivers can run on top of the server.
type TxBus struct {
	conn       *Conn
	controller api.Controller
	port       api.PortIndex
	segment    *api.MuxSegment
	timeout    time.Duration
}

var (
	_ drivers.I2C = &TxBus{}
	_ i2c.Bus     = &TxBus{}
)

// TxBus returns a bus for the given controller port and optional
// mux segment. Every transaction is limited by the given timeout
// (zero means no limit).
func (c *Conn) TxBus(controller api.Controller, port api.PortIndex, segment *api.MuxSegment, timeout time.Duration) *TxBus {
	return &TxBus{conn: c, controller: controller, port: port, segment: segment, timeout: timeout}
}

// String implements i2c.Bus.
func (b *TxBus) String() string {
	if b.segment == nil {
		return fmt.Sprintf("%s:%d", b.controller, b.port)
	}
	return fmt.Sprintf("%s:%d %s", b.controller, b.port, b.segment)
}

// Tx implements drivers.I2C and i2c.Bus.
func (b *TxBus) Tx(addr uint16, w, r []byte) error {
	if addr > api.MaxAddress {
		return errors.Wrapf(api.BadArg, "address 0x%x is not a 7-bit address", addr)
	}
	dev := api.Device{Controller: b.controller, Port: b.port, Segment: b.segment, Address: uint8(addr)}
	header, err := dev.Marshal()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	n, err := b.conn.send(ctx, api.OpWriteRead, header[:], ipc.ReadOnly(w), ipc.WriteOnly(r))
	if err != nil {
		return err
	}
	if n != len(r) {
		return errors.Wrapf(api.BadResponse, "read %d of %d bytes", n, len(r))
	}
	return nil
}

// ReadRegister reads len(buf) bytes from register reg.
func (b *TxBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf to register reg.
func (b *TxBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// SetSpeed implements i2c.Bus.
// Bus speed is part of the board configuration of the server.
func (b *TxBus) SetSpeed(f physic.Frequency) error {
	return errors.Wrapf(api.OperationNotSupported, "set speed to %s", f)
}
