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
	"strings"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Speed is the bus clock rate of a controller.
type Speed uint8

const (
	Standard Speed = iota
	Fast
	FastPlus
	HighSpeed
)

// Frequency returns the SCL frequency of the speed.
func (s Speed) Frequency() physic.Frequency {
	switch s {
	case Fast:
		return 400 * physic.KiloHertz
	case FastPlus:
		return physic.MegaHertz
	case HighSpeed:
		return 3400 * physic.KiloHertz
	default:
		return 100 * physic.KiloHertz
	}
}

func (s Speed) String() string {
	switch s {
	case Fast:
		return "fast"
	case FastPlus:
		return "fast-plus"
	case HighSpeed:
		return "high-speed"
	default:
		return "standard"
	}
}

// ParseSpeed parses the name of a speed. An empty name is Standard.
func ParseSpeed(name string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "100khz":
		return Standard, nil
	case "fast", "400khz":
		return Fast, nil
	case "fast-plus", "fastplus", "1mhz":
		return FastPlus, nil
	case "high-speed", "highspeed", "3.4mhz":
		return HighSpeed, nil
	default:
		return Standard, errors.Errorf("unknown i2c speed '%s'", name)
	}
}
