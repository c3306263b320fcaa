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

package config

// Default returns the configuration used when no configuration file is
// given: a single fast controller (I2C1) with one port and a PCA9548
// at 0x70.
func Default() Config {
	return Config{
		Controllers: []ControllerConfig{
			{
				ID:    1,
				Speed: "fast",
				Ports: []PortConfig{{Index: 0}},
			},
		},
		Muxes: []MuxConfig{
			{Controller: 1, Port: 0, ID: 1, Driver: "pca9548", Address: 0x70},
		},
	}
}
