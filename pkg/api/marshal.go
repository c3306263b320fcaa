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

const (
	// HeaderSize is the size of the request header in bytes.
	HeaderSize = 4

	muxFlag      = 0x80
	muxShift     = 4
	muxMask      = 0x07
	segmentMask  = 0x0F
	segment16Nib = 0x00
)

// Marshal encodes the device into the 4 byte request header
// [address, controller, port, flags].
//
// flags is 0 for devices without a mux. Otherwise bit 7 is set,
// bits 6..4 hold the mux and bits 3..0 the segment. Segment 16 is
// encoded as nibble 0.
func (d Device) Marshal() ([HeaderSize]byte, error) {
	var buf [HeaderSize]byte
	if !d.Controller.Valid() {
		return buf, BadController
	}
	var flags byte
	if d.Segment != nil {
		if !d.Segment.Mux.Valid() {
			return buf, BadMux
		}
		if !d.Segment.Segment.Valid() {
			return buf, BadSegment
		}
		nib := byte(d.Segment.Segment) & segmentMask
		if d.Segment.Segment == S16 {
			nib = segment16Nib
		}
		flags = muxFlag | (byte(d.Segment.Mux)&muxMask)<<muxShift | nib
	}
	buf[0] = d.Address
	buf[1] = byte(d.Controller)
	buf[2] = byte(d.Port)
	buf[3] = flags
	return buf, nil
}

// Unmarshal decodes a request header.
// Out of range fields are reported as BadController, BadMux or
// BadSegment, checked in that order.
func Unmarshal(buf [HeaderSize]byte) (Device, error) {
	d := Device{
		Address:    buf[0],
		Controller: Controller(buf[1]),
		Port:       PortIndex(buf[2]),
	}
	if !d.Controller.Valid() {
		return Device{}, BadController
	}
	flags := buf[3]
	if flags == 0 {
		return d, nil
	}
	if flags&muxFlag == 0 {
		return Device{}, BadMux
	}
	mux := Mux((flags >> muxShift) & muxMask)
	if !mux.Valid() {
		return Device{}, BadMux
	}
	seg := Segment(flags & segmentMask)
	if seg == segment16Nib {
		seg = S16
	}
	if !seg.Valid() {
		return Device{}, BadSegment
	}
	d.Segment = &MuxSegment{Mux: mux, Segment: seg}
	return d, nil
}

// UnmarshalPayload decodes a request header from a message payload.
// A payload that is not exactly HeaderSize bytes is a BadArg.
func UnmarshalPayload(payload []byte) (Device, error) {
	if len(payload) != HeaderSize {
		return Device{}, BadArg
	}
	var buf [HeaderSize]byte
	copy(buf[:], payload)
	return Unmarshal(buf)
}
