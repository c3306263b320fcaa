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

package bridge

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/I2CServer/pkg/api"
)

func TestVirtualDefaults(t *testing.T) {
	v := NewVirtual(zerolog.Nop())

	r := make([]byte, 3)
	n, err := v.WriteRead(api.I2C1, 0x48, nil, r)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x48, 0x49, 0x4A}, r)

	n, err = v.WriteRead(api.I2C1, 0x48, []byte{0x10, 0x11}, r)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x10, 0x11}, r[:n])

	n, err = v.WriteRead(api.I2C1, 0x48, []byte{0x10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = v.WriteRead(api.I2C1, 0x48, nil, nil)
	assert.Equal(t, api.BadArg, err)

	assert.Equal(t, 4, v.Count(OpWriteRead))
	assert.Len(t, v.CallsTo(api.I2C1, 0x48), 4)
	assert.Empty(t, v.CallsTo(api.I2C2, 0x48))
}

func TestVirtualResponsesAndFaults(t *testing.T) {
	v := NewVirtual(zerolog.Nop())
	v.SetResponse(api.I2C0, 0x50, []byte{0xAA, 0xBB})
	v.InjectFault(api.I2C0, 0x50, api.BusLocked)

	r := make([]byte, 2)
	_, err := v.WriteRead(api.I2C0, 0x50, []byte{0}, r)
	assert.Equal(t, api.BusLocked, err)

	n, err := v.WriteRead(api.I2C0, 0x50, []byte{0}, r)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0xAA, 0xBB}, r)

	v.SetStickyFault(api.I2C0, 0x50, api.BusError)
	for i := 0; i < 3; i++ {
		_, err = v.WriteRead(api.I2C0, 0x50, []byte{0}, r)
		assert.Equal(t, api.BusError, err)
	}
	v.ClearFaults()
	_, err = v.WriteRead(api.I2C0, 0x50, []byte{0}, r)
	assert.NoError(t, err)

	v.SetMissing(api.I2C0, 0x51)
	_, err = v.WriteRead(api.I2C0, 0x51, []byte{0}, r)
	assert.Equal(t, api.NoDevice, api.CodeOf(err))

	v.InjectResetFault(api.I2C0, api.BusLocked)
	assert.Equal(t, api.BusLocked, v.ResetBus(api.I2C0))
	assert.NoError(t, v.ResetBus(api.I2C0))
	assert.Equal(t, 2, v.Count(OpResetBus))
}

func TestVirtualBlock(t *testing.T) {
	v := NewVirtual(zerolog.Nop())
	v.SetResponse(api.I2C0, 0x0B, []byte{1, 2, 3, 4})
	r := make([]byte, 8)
	n, err := v.WriteReadBlock(api.I2C0, 0x0B, []byte{0x20}, r)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, r[:n])
	assert.Equal(t, 1, v.Count(OpWriteReadBlock))
}

func TestVirtualController(t *testing.T) {
	v := NewVirtual(zerolog.Nop())
	require.NoError(t, v.EnableController(api.I2C2))
	require.NoError(t, v.ConfigureTiming(api.I2C2, api.Fast))
	assert.True(t, v.Enabled(api.I2C2))
	assert.Equal(t, api.Fast, v.Speed(api.I2C2))
	require.NoError(t, v.DisableController(api.I2C2))
	assert.False(t, v.Enabled(api.I2C2))
}

func TestVirtualSlave(t *testing.T) {
	v := NewVirtual(zerolog.Nop())
	msg := api.SlaveMessage{SourceAddress: 0x10, Data: []byte{1}}

	assert.Equal(t, api.SlaveConfigurationFailed, v.EnableSlaveReceive(api.I2C1))
	assert.Equal(t, api.SlaveNotEnabled, v.InjectSlaveMessage(api.I2C1, msg))

	require.NoError(t, v.ConfigureSlaveMode(api.I2C1, api.SlaveConfig{Controller: api.I2C1, Address: 0x42}))
	require.NoError(t, v.EnableSlaveReceive(api.I2C1))
	for i := 0; i < virtualSlaveQueueLength; i++ {
		require.NoError(t, v.InjectSlaveMessage(api.I2C1, msg))
	}
	assert.Equal(t, api.SlaveBufferFull, v.InjectSlaveMessage(api.I2C1, msg))
	status, err := v.SlaveStatus(api.I2C1)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.True(t, status.BufferFull)
	assert.Equal(t, uint32(virtualSlaveQueueLength), status.MessagesReceived)
	assert.Equal(t, uint32(1), status.MessagesDropped)

	buf := make([]api.SlaveMessage, 10)
	n, err := v.PollSlaveMessages(api.I2C1, buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	n, err = v.PollSlaveMessages(api.I2C1, buf)
	require.NoError(t, err)
	assert.Equal(t, virtualSlaveQueueLength-10, n)
	n, err = v.PollSlaveMessages(api.I2C1, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, v.DisableSlaveReceive(api.I2C1))
	_, err = v.PollSlaveMessages(api.I2C1, buf)
	assert.Equal(t, api.SlaveNotEnabled, err)
}

func TestVirtualPins(t *testing.T) {
	f := NewVirtualPins()
	p := f.Get(17)
	assert.Same(t, p, f.Pin(17))
	require.NoError(t, p.SetHigh())
	require.NoError(t, p.ConfigureAsOutput())
	require.NoError(t, p.Configure(PinModeI2C))
	assert.Equal(t, []string{"high", "output", "i2c"}, p.Events())
	assert.True(t, p.IsHigh())
	assert.Equal(t, PinModeI2C, p.Mode())
}

func TestStatusLed(t *testing.T) {
	pin := NewVirtualPin(23)
	led, err := newStatusLed(pin)
	require.NoError(t, err)
	require.NoError(t, led.Healthy())
	require.NoError(t, led.Healthy())
	assert.Equal(t, []string{"low", "output", "high"}, pin.Events())

	led.Recovering(time.Millisecond)
	assert.Eventually(t, func() bool { return len(pin.Events()) > 5 }, time.Second, time.Millisecond)
	require.NoError(t, led.Close())
	assert.False(t, pin.IsHigh())

	var none *statusLed
	assert.NoError(t, none.Healthy())
}
