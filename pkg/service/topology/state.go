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

package topology

import (
	"fmt"

	"github.com/binkynet/I2CServer/pkg/api"
)

// Bus is a controller routed to one of its ports.
type Bus struct {
	Controller api.Controller
	Port       api.PortIndex
}

func (b Bus) String() string {
	return fmt.Sprintf("%s:%d", b.Controller, b.Port)
}

// MarshalText implements encoding.TextMarshaler.
func (b Bus) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

type muxStateKind uint8

const (
	muxStateNone muxStateKind = iota
	muxStateEnabled
	muxStateUnknown
)

// MuxState is what the server believes the muxes on a bus are set to.
// The zero value means no mux segment is enabled.
type MuxState struct {
	kind    muxStateKind
	Mux     api.Mux
	Segment api.Segment
}

var (
	// NoMux means all muxes on the bus are disabled.
	NoMux = MuxState{}
	// Unknown means the muxes may be in any state.
	Unknown = MuxState{kind: muxStateUnknown}
)

// Enabled returns the state in which exactly one segment of one mux
// is connected.
func Enabled(m api.Mux, s api.Segment) MuxState {
	return MuxState{kind: muxStateEnabled, Mux: m, Segment: s}
}

// IsEnabled returns true for the Enabled state.
func (s MuxState) IsEnabled() bool { return s.kind == muxStateEnabled }

// IsUnknown returns true for the Unknown state.
func (s MuxState) IsUnknown() bool { return s.kind == muxStateUnknown }

// IsNone returns true when no mux segment is enabled.
func (s MuxState) IsNone() bool { return s.kind == muxStateNone }

func (s MuxState) String() string {
	switch s.kind {
	case muxStateEnabled:
		return fmt.Sprintf("enabled(%s:%s)", s.Mux, s.Segment)
	case muxStateUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// MarshalText renders the state for status output.
func (s MuxState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a copy of the routing caches.
type Snapshot struct {
	// Currently routed port per controller.
	Ports map[api.Controller]api.PortIndex `json:"ports"`
	// Mux state per bus. Buses without entry have no mux enabled.
	Muxes map[Bus]MuxState `json:"-"`
	// Number of bus resets performed after faults.
	Recoveries uint64 `json:"recoveries"`
}

// MuxStates returns the mux states keyed by bus name.
func (s Snapshot) MuxStates() map[string]string {
	result := make(map[string]string, len(s.Muxes))
	for bus, state := range s.Muxes {
		result[bus.String()] = state.String()
	}
	return result
}
