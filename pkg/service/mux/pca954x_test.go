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

package mux

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
)

func segment(s api.Segment) *api.Segment {
	return &s
}

func TestPCA9548Control(t *testing.T) {
	hw := bridge.NewVirtual(zerolog.Nop())
	cfg := &Config{Controller: api.I2C1, ID: api.M1, Address: 0x70}

	for s := api.S1; s <= api.S8; s++ {
		require.NoError(t, PCA9548.EnableSegment(hw, cfg, segment(s)))
	}
	require.NoError(t, PCA9548.EnableSegment(hw, cfg, nil))

	calls := hw.CallsTo(api.I2C1, 0x70)
	require.Len(t, calls, 9)
	for i := 0; i < 8; i++ {
		assert.Equal(t, []byte{1 << uint(i)}, calls[i].Write)
		assert.Equal(t, 0, calls[i].ReadLen)
	}
	assert.Equal(t, []byte{0}, calls[8].Write)
}

func TestPCA954xSegmentNotFound(t *testing.T) {
	hw := bridge.NewVirtual(zerolog.Nop())
	cfg := &Config{Controller: api.I2C1, ID: api.M1, Address: 0x70}

	err := PCA9548.EnableSegment(hw, cfg, segment(api.S9))
	assert.Equal(t, api.SegmentNotFound, api.CodeOf(err))
	err = PCA9545.EnableSegment(hw, cfg, segment(api.S5))
	assert.Equal(t, api.SegmentNotFound, api.CodeOf(err))
	require.NoError(t, PCA9545.EnableSegment(hw, cfg, segment(api.S4)))
	assert.Len(t, hw.CallsTo(api.I2C1, 0x70), 1)
}

func TestMuxErrors(t *testing.T) {
	hw := bridge.NewVirtual(zerolog.Nop())
	cfg := &Config{Controller: api.I2C1, ID: api.M1, Address: 0x70}

	tests := map[api.ResponseCode]api.ResponseCode{
		api.BusLocked:      api.BusLockedMux,
		api.BusReset:       api.BusResetMux,
		api.NoDevice:       api.MuxMissing,
		api.ControllerBusy: api.ControllerBusy,
		api.BusError:       api.BusError,
	}
	for fault, expected := range tests {
		hw.InjectFault(api.I2C1, 0x70, fault)
		err := PCA9548.EnableSegment(hw, cfg, segment(api.S1))
		assert.Equal(t, expected, api.CodeOf(err), fault.String())
	}
}

func TestResetPin(t *testing.T) {
	pin := bridge.NewVirtualPin(17)
	cfg := &Config{Controller: api.I2C1, ID: api.M1, Address: 0x70, ResetPin: pin}

	require.NoError(t, PCA9548.Configure(cfg))
	assert.Equal(t, []string{"high", "output"}, pin.Events())

	pin.ResetEvents()
	require.NoError(t, PCA9548.Reset(cfg))
	assert.Equal(t, []string{"low", "high"}, pin.Events())

	// Without a reset pin both are no-ops.
	noPin := &Config{Controller: api.I2C1, ID: api.M2, Address: 0x71}
	assert.NoError(t, PCA9548.Configure(noPin))
	assert.NoError(t, PCA9548.Reset(noPin))
}

func TestByName(t *testing.T) {
	d, err := ByName("PCA9548")
	require.NoError(t, err)
	assert.Equal(t, "pca9548", d.Name())
	d, err = ByName("pca9545")
	require.NoError(t, err)
	assert.Equal(t, "pca9545", d.Name())
	_, err = ByName("unknown")
	assert.Error(t, err)
}
