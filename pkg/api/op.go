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

// Op is the operation selector of a request message.
type Op uint16

const (
	OpWriteRead Op = iota + 1
	OpWriteReadBlock
	OpConfigureSlaveAddress
	OpEnableSlaveReceive
	OpDisableSlaveReceive
	OpCheckSlaveBuffer
)

func (o Op) String() string {
	switch o {
	case OpWriteRead:
		return "WriteRead"
	case OpWriteReadBlock:
		return "WriteReadBlock"
	case OpConfigureSlaveAddress:
		return "ConfigureSlaveAddress"
	case OpEnableSlaveReceive:
		return "EnableSlaveReceive"
	case OpDisableSlaveReceive:
		return "DisableSlaveReceive"
	case OpCheckSlaveBuffer:
		return "CheckSlaveBuffer"
	default:
		return "Unknown"
	}
}

const (
	// MaxLeaseLength is the largest transfer a single lease may describe.
	MaxLeaseLength = 255
)
