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
	"periph.io/x/conn/v3/physic"
)

func TestSlaveRecords(t *testing.T) {
	msgs := []SlaveMessage{
		{SourceAddress: 0x10, Data: []byte{1, 2, 3}},
		{SourceAddress: 0x11, Data: []byte{}},
		{SourceAddress: 0x12, Data: []byte{9}},
	}
	buf := make([]byte, 64)
	n, count := EncodeSlaveMessages(buf, msgs)
	assert.Equal(t, 3, count)
	assert.Equal(t, 5+2+3, n)
	assert.Equal(t, []byte{0x10, 3, 1, 2, 3, 0x11, 0, 0x12, 1, 9}, buf[:n])
	assert.Equal(t, msgs, DecodeSlaveMessages(buf[:n]))
}

func TestSlaveRecordsTruncate(t *testing.T) {
	msgs := []SlaveMessage{
		{SourceAddress: 0x10, Data: []byte{1, 2, 3}},
		{SourceAddress: 0x11, Data: []byte{4, 5}},
	}
	buf := make([]byte, 7)
	n, count := EncodeSlaveMessages(buf, msgs)
	assert.Equal(t, 1, count)
	assert.Equal(t, 5, n)

	// Truncated trailing record is ignored.
	got := DecodeSlaveMessages([]byte{0x10, 1, 7, 0x11, 4, 1})
	require.Len(t, got, 1)
	assert.Equal(t, []byte{7}, got[0].Data)
}

func TestUnmarshalSlaveConfig(t *testing.T) {
	cfg := SlaveConfig{Controller: I2C2, Port: 1, Address: 0x42}
	buf := cfg.Marshal()
	got, err := UnmarshalSlaveConfig(buf[:])
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = UnmarshalSlaveConfig([]byte{0x03, 0, 0, 0})
	assert.Equal(t, BadSlaveAddress, err)
	_, err = UnmarshalSlaveConfig([]byte{0x80, 0, 0, 0})
	assert.Equal(t, BadSlaveAddress, err)
	_, err = UnmarshalSlaveConfig([]byte{0x42, 8, 0, 0})
	assert.Equal(t, BadController, err)
	_, err = UnmarshalSlaveConfig([]byte{0x42, 0})
	assert.Equal(t, BadArg, err)
}

func TestSpeed(t *testing.T) {
	assert.Equal(t, 100*physic.KiloHertz, Standard.Frequency())
	assert.Equal(t, 400*physic.KiloHertz, Fast.Frequency())
	s, err := ParseSpeed("Fast")
	require.NoError(t, err)
	assert.Equal(t, Fast, s)
	s, err = ParseSpeed("")
	require.NoError(t, err)
	assert.Equal(t, Standard, s)
	_, err = ParseSpeed("ludicrous")
	assert.Error(t, err)
}
