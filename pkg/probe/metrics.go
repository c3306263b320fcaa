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

package probe

import (
	"github.com/binkynet/I2CServer/pkg/metrics"
)

const (
	subSystem = "probe"
)

var (
	// Presence of probed devices (1 = answered the last probe)
	presentGauges = metrics.MustRegisterGaugeVec(subSystem,
		"device_present",
		"Presence of probed devices (1 = answered the last probe)",
		"device")
	// Total number of failed probes per device and code
	failureCounters = metrics.MustRegisterCounterVec(subSystem,
		"failures_total",
		"Total number of failed probes per device and response code",
		"device", "code")
)
