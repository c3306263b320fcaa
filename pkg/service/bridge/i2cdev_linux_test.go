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

//go:build linux

package bridge

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/binkynet/I2CServer/pkg/api"
)

func TestClassifyErrno(t *testing.T) {
	tests := map[unix.Errno]api.ResponseCode{
		unix.EBUSY:     api.ControllerBusy,
		unix.ETIMEDOUT: api.BusLocked,
		unix.EAGAIN:    api.BusLocked,
		unix.ENXIO:     api.NoDevice,
		unix.EREMOTEIO: api.NoDevice,
		unix.EIO:       api.BusError,
	}
	for errno, code := range tests {
		assert.Equal(t, code, classifyErrno(errno), errno.Error())
		assert.Equal(t, code, classifyErrno(&os.PathError{Op: "read", Path: "/dev/i2c-1", Err: errno}))
	}
	assert.Equal(t, api.BusError, classifyErrno(errors.New("other")))
}

func TestLinuxMissingAdapter(t *testing.T) {
	l, err := NewLinux(zerolog.Nop(), LinuxConfig{DevicePattern: "/nonexistent/i2c-%d", StatusLEDPin: -1})
	require.NoError(t, err)
	err = l.EnableController(api.I2C3)
	assert.Equal(t, api.BadController, api.CodeOf(err))
	_, err = l.WriteRead(api.I2C3, 0x48, []byte{1}, nil)
	assert.Equal(t, api.BadDeviceState, api.CodeOf(err))
	assert.Equal(t, api.SlaveNotSupported, l.EnableSlaveReceive(api.I2C3))
	assert.NoError(t, l.Close())
}
