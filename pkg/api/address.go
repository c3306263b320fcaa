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
	// MaxAddress is the highest 7-bit address.
	MaxAddress = 0x7F
)

// IsReservedAddress returns true for the 7-bit addresses reserved by
// the I2C specification (0x00-0x07 and 0x78-0x7F).
func IsReservedAddress(addr uint8) bool {
	return addr <= 0x07 || (addr >= 0x78 && addr <= MaxAddress)
}

// ValidateAddress checks that addr can be used as a target address.
func ValidateAddress(addr uint8) error {
	switch {
	case addr > MaxAddress:
		return BadArg
	case IsReservedAddress(addr):
		return ReservedAddress
	default:
		return nil
	}
}
