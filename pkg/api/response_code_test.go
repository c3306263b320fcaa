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

package api

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestResponseCodeValues(t *testing.T) {
	assert.Equal(t, uint32(1), uint32(BadResponse))
	assert.Equal(t, uint32(2), uint32(BadArg))
	assert.Equal(t, uint32(21), uint32(BusError))
	assert.Equal(t, uint32(31), uint32(SlaveConfigurationFailed))
	for c := BadResponse; c <= SlaveConfigurationFailed; c++ {
		assert.NotEmpty(t, responseCodeNames[c], "code %d", uint32(c))
	}
	assert.False(t, ResponseCode(0).Valid())
	assert.False(t, ResponseCode(32).Valid())
}

func TestNeedsReset(t *testing.T) {
	reset := map[ResponseCode]bool{
		BusLocked: true, BusLockedMux: true, BusReset: true,
		BusResetMux: true, ControllerBusy: true, BusError: true,
	}
	for c := BadResponse; c <= SlaveConfigurationFailed; c++ {
		assert.Equal(t, reset[c], c.NeedsReset(), c.String())
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ResponseCode(0), CodeOf(nil))
	assert.Equal(t, NoDevice, CodeOf(NoDevice))
	assert.Equal(t, BusLocked, CodeOf(errors.Wrapf(BusLocked, "write to 0x%02x", 0x48)))
	assert.Equal(t, BadDeviceState, CodeOf(errors.New("something else")))
	assert.True(t, IsCode(errors.WithStack(MuxMissing), MuxMissing))
	assert.False(t, IsCode(nil, MuxMissing))
}

func TestFromUint32(t *testing.T) {
	assert.Equal(t, NoDevice, FromUint32(3))
	assert.Equal(t, BadResponse, FromUint32(0))
	assert.Equal(t, BadResponse, FromUint32(1000))
}
