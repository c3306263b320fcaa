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

// SlaveConfig describes the address a controller answers to in
// slave (target) mode.
type SlaveConfig struct {
	Controller Controller
	Port       PortIndex
	Address    uint8
}

// Marshal encodes the configuration as [address, controller, port, 0].
func (c SlaveConfig) Marshal() [HeaderSize]byte {
	return [HeaderSize]byte{c.Address, byte(c.Controller), byte(c.Port), 0}
}

// UnmarshalSlaveConfig decodes a ConfigureSlaveAddress payload.
// The fourth byte is reserved and ignored.
func UnmarshalSlaveConfig(payload []byte) (SlaveConfig, error) {
	if len(payload) != HeaderSize {
		return SlaveConfig{}, BadArg
	}
	c := SlaveConfig{
		Address:    payload[0],
		Controller: Controller(payload[1]),
		Port:       PortIndex(payload[2]),
	}
	if c.Address > MaxAddress || IsReservedAddress(c.Address) {
		return SlaveConfig{}, BadSlaveAddress
	}
	if !c.Controller.Valid() {
		return SlaveConfig{}, BadController
	}
	return c, nil
}

// SlaveMessage is one message received while in slave mode.
type SlaveMessage struct {
	SourceAddress uint8
	Data          []byte
}

// EncodedLen returns the number of bytes the message occupies in a
// slave buffer record.
func (m SlaveMessage) EncodedLen() int {
	return 2 + len(m.Data)
}

// SlaveStatus holds the receive counters of a controller in slave mode.
type SlaveStatus struct {
	Enabled          bool   `json:"enabled"`
	MessagesReceived uint32 `json:"messages_received"`
	MessagesDropped  uint32 `json:"messages_dropped"`
	AddressMatches   uint32 `json:"address_matches"`
	BusErrors        uint32 `json:"bus_errors"`
	BufferFull       bool   `json:"buffer_full"`
}

// EncodeSlaveMessages writes [source, length, data...] records into dst
// for as many messages as fit. It returns the number of bytes written
// and the number of messages encoded.
func EncodeSlaveMessages(dst []byte, msgs []SlaveMessage) (int, int) {
	pos := 0
	for i, m := range msgs {
		if len(m.Data) > MaxLeaseLength || pos+m.EncodedLen() > len(dst) {
			return pos, i
		}
		dst[pos] = m.SourceAddress
		dst[pos+1] = byte(len(m.Data))
		copy(dst[pos+2:], m.Data)
		pos += m.EncodedLen()
	}
	return pos, len(msgs)
}

// DecodeSlaveMessages parses records written by EncodeSlaveMessages.
// Decoding stops at the first truncated record.
func DecodeSlaveMessages(buf []byte) []SlaveMessage {
	var result []SlaveMessage
	pos := 0
	for pos+2 <= len(buf) {
		n := int(buf[pos+1])
		if pos+2+n > len(buf) {
			break
		}
		data := make([]byte, n)
		copy(data, buf[pos+2:pos+2+n])
		result = append(result, SlaveMessage{SourceAddress: buf[pos], Data: data})
		pos += 2 + n
	}
	return result
}
