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

// Device is a handle for one device on an I2C bus.
type Device struct {
	conn   *Conn
	device api.Device
	header [api.HeaderSize]byte
}

// Device returns the address of the device.
func (d *Device) Device() api.Device {
	return d.device
}

func (d *Device) String() string {
	return d.device.String()
}

func (d *Device) writeRead(ctx context.Context, leases ...ipc.LeaseSpec) (int, error) {
	return d.conn.send(ctx, api.OpWriteRead, d.header[:], leases...)
}

// ReadReg writes the register address and reads len(val) bytes into val.
func (d *Device) ReadReg(ctx context.Context, reg, val []byte) error {
	_, err := d.writeRead(ctx, ipc.ReadOnly(reg), ipc.WriteOnly(val))
	return err
}

// ReadRegInto writes the register address and reads into buf.
// Returns the number of bytes read.
func (d *Device) ReadRegInto(ctx context.Context, reg, buf []byte) (int, error) {
	return d.writeRead(ctx, ipc.ReadOnly(reg), ipc.WriteOnly(buf))
}

// ReadBlock writes the register address and performs an SMBus block
// read into buf. Returns the number of data bytes read.
func (d *Device) ReadBlock(ctx context.Context, reg, buf []byte) (int, error) {
	return d.conn.send(ctx, api.OpWriteReadBlock, d.header[:], ipc.ReadOnly(reg), ipc.WriteOnly(buf))
}

// Read reads len(val) bytes without writing a register address.
func (d *Device) Read(ctx context.Context, val []byte) error {
	_, err := d.writeRead(ctx, ipc.ReadOnly(nil), ipc.WriteOnly(val))
	return err
}

// ReadInto reads into buf without writing a register address.
// Returns the number of bytes read.
func (d *Device) ReadInto(ctx context.Context, buf []byte) (int, error) {
	return d.writeRead(ctx, ipc.ReadOnly(nil), ipc.WriteOnly(buf))
}

// Write writes buf to the device.
func (d *Device) Write(ctx context.Context, buf []byte) error {
	_, err := d.writeRead(ctx, ipc.ReadOnly(buf), ipc.WriteOnly(nil))
	return err
}

// WriteReadReg writes buf, then writes the register address and reads
// len(val) bytes into val.
func (d *Device) WriteReadReg(ctx context.Context, reg, buf, val []byte) error {
	_, err := d.writeRead(ctx,
		ipc.ReadOnly(buf), ipc.WriteOnly(nil),
		ipc.ReadOnly(reg), ipc.WriteOnly(val))
	return err
}

// WriteReadBlock writes buf, then writes the register address and
// performs a block read into out. Returns the number of data bytes read.
func (d *Device) WriteReadBlock(ctx context.Context, reg, buf, out []byte) (int, error) {
	return d.conn.send(ctx, api.OpWriteReadBlock, d.header[:],
		ipc.ReadOnly(buf), ipc.WriteOnly(nil),
		ipc.ReadOnly(reg), ipc.WriteOnly(out))
}

// WriteWrite writes first and second as two transfers of one request.
func (d *Device) WriteWrite(ctx context.Context, first, second []byte) error {
	_, err := d.writeRead(ctx,
		ipc.ReadOnly(first), ipc.WriteOnly(nil),
		ipc.ReadOnly(second), ipc.WriteOnly(nil))
	return err
}

// WriteWriteReadReg writes first and second, then writes the register
// address and reads len(val) bytes into val.
func (d *Device) WriteWriteReadReg(ctx context.Context, reg, first, second, val []byte) error {
	_, err := d.writeRead(ctx,
		ipc.ReadOnly(first), ipc.WriteOnly(nil),
		ipc.ReadOnly(second), ipc.WriteOnly(nil),
		ipc.ReadOnly(reg), ipc.WriteOnly(val))
	return err
}
