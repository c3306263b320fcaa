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

//go:build !linux

package bridge

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/I2CServer/pkg/api"
)

// LinuxBusConfig configures a single /dev/i2c-N adapter.
type LinuxBusConfig struct {
	Device string
	SCLPin int
}

// LinuxConfig configures the i2c-dev based hardware.
type LinuxConfig struct {
	DevicePattern string
	Buses         map[api.Controller]LinuxBusConfig
	StatusLEDPin  int
}

// Linux is not available on this platform.
type Linux struct {
	Hardware
}

// NewLinux fails on platforms without i2c-dev.
func NewLinux(log zerolog.Logger, config LinuxConfig) (*Linux, error) {
	return nil, errors.New("linux i2c-dev hardware is not supported on this platform")
}

// Close does nothing.
func (l *Linux) Close() error {
	return nil
}
