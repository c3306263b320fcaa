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

//go:build linux

package environment

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	i2cDevGlob = "/dev/i2c-*"
)

// AutoDetectHardware returns the type of hardware to use on this host.
func AutoDetectHardware(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err == nil {
		log.Debug().
			Str("release", strings.TrimSpace(unix.ByteSliceToString(name.Release[:]))).
			Str("machine", unix.ByteSliceToString(name.Machine[:])).
			Msg("Detecting hardware")
	}
	return detect(i2cDevGlob)
}

// detect returns HardwareLinux when at least one device matching the
// given glob can be opened for reading and writing.
func detect(glob string) string {
	matches, err := filepath.Glob(glob)
	if err != nil {
		return HardwareVirtual
	}
	for _, m := range matches {
		if unix.Access(m, unix.R_OK|unix.W_OK) == nil {
			return HardwareLinux
		}
	}
	return HardwareVirtual
}
