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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	for c := I2C0; c < MaxControllers; c++ {
		for _, port := range []PortIndex{0, 1, 7, 255} {
			for _, addr := range []uint8{0x08, 0x48, 0x77} {
				d := Device{Controller: c, Port: port, Address: addr}
				buf, err := d.Marshal()
				require.NoError(t, err)
				got, err := Unmarshal(buf)
				require.NoError(t, err)
				assert.True(t, d.Equal(got), "%s != %s", d, got)

				for m := M1; m <= MaxMux; m++ {
					for s := S1; s <= MaxSegment; s++ {
						d.Segment = &MuxSegment{Mux: m, Segment: s}
						buf, err := d.Marshal()
						require.NoError(t, err)
						got, err := Unmarshal(buf)
						require.NoError(t, err)
						assert.True(t, d.Equal(got), "%s != %s", d, got)
					}
				}
			}
		}
	}
}

func TestMarshalLayout(t *testing.T) {
	d := Device{Controller: I2C1, Port: 0, Address: 0x48, Segment: &MuxSegment{Mux: M1, Segment: S2}}
	buf, err := d.Marshal()
	require.NoError(t, err)
	assert.Equal(t, [HeaderSize]byte{0x48, 0x01, 0x00, 0x92}, buf)

	d.Segment = nil
	buf, err = d.Marshal()
	require.NoError(t, err)
	assert.Equal(t, [HeaderSize]byte{0x48, 0x01, 0x00, 0x00}, buf)

	d.Segment = &MuxSegment{Mux: M5, Segment: S16}
	buf, err = d.Marshal()
	require.NoError(t, err)
	assert.Equal(t, byte(0xD0), buf[3])
}

func TestMarshalInvalid(t *testing.T) {
	_, err := Device{Controller: 8, Address: 0x48}.Marshal()
	assert.Equal(t, BadController, err)
	_, err = Device{Controller: I2C0, Address: 0x48, Segment: &MuxSegment{Mux: 0, Segment: S1}}.Marshal()
	assert.Equal(t, BadMux, err)
	_, err = Device{Controller: I2C0, Address: 0x48, Segment: &MuxSegment{Mux: M1, Segment: 17}}.Marshal()
	assert.Equal(t, BadSegment, err)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		Name   string
		Header [HeaderSize]byte
		Code   ResponseCode
	}{
		{"controller", [HeaderSize]byte{0x48, 8, 0, 0}, BadController},
		{"controller before mux", [HeaderSize]byte{0x48, 9, 0, 0x01}, BadController},
		{"mux 0", [HeaderSize]byte{0x48, 0, 0, 0x81}, BadMux},
		{"mux 6", [HeaderSize]byte{0x48, 0, 0, 0xE1}, BadMux},
		{"mux flag missing", [HeaderSize]byte{0x48, 0, 0, 0x12}, BadMux},
	}
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Unmarshal(tc.Header)
			assert.Equal(t, tc.Code, err)
		})
	}
}

func TestUnmarshalPayload(t *testing.T) {
	_, err := UnmarshalPayload([]byte{0x48, 0, 0})
	assert.Equal(t, BadArg, err)
	_, err = UnmarshalPayload([]byte{0x48, 0, 0, 0, 0})
	assert.Equal(t, BadArg, err)
	d, err := UnmarshalPayload([]byte{0x48, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, I2C2, d.Controller)
	assert.Equal(t, PortIndex(1), d.Port)
	assert.Nil(t, d.Segment)
}

func TestReservedAddress(t *testing.T) {
	for addr := 0; addr <= 0xFF; addr++ {
		a := uint8(addr)
		reserved := a <= 0x07 || (a >= 0x78 && a <= 0x7F)
		assert.Equal(t, reserved, IsReservedAddress(a), "0x%02x", a)
		switch {
		case a > 0x7F:
			assert.Equal(t, BadArg, ValidateAddress(a))
		case reserved:
			assert.Equal(t, ReservedAddress, ValidateAddress(a))
		default:
			assert.NoError(t, ValidateAddress(a))
		}
	}
}

func TestDeviceString(t *testing.T) {
	d := Device{Controller: I2C1, Port: 0, Address: 0x48, Segment: &MuxSegment{Mux: M1, Segment: S2}}
	assert.Equal(t, "I2C1:0 M1:S2 0x48", d.String())
	d.Segment = nil
	assert.Equal(t, "I2C1:0 0x48", d.String())
}
