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

package bridge

import (
	"github.com/binkynet/I2CServer/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of SCL recovery attempts
	i2cRecoveryAttemptsTotal = metrics.MustRegisterCounterVec(subSystem,
		"recovery_attempts_total",
		"Total number of SCL recovery attempts",
		"controller")
	// Total number of failed SCL recovery attempts
	i2cRecoveryFailedTotal = metrics.MustRegisterCounterVec(subSystem,
		"recovery_failed_total",
		"Total number of failed SCL recovery attempts",
		"controller")
	// Total number of successful SCL recovery attempts
	i2cRecoverySucceededTotal = metrics.MustRegisterCounterVec(subSystem,
		"recovery_succeeded_total",
		"Total number of successful SCL recovery attempts",
		"controller")
	// Total number of bus resets without SCL recovery (no pin configured)
	i2cRecoverySkippedTotal = metrics.MustRegisterCounterVec(subSystem,
		"recovery_skipped_total",
		"Total number of bus resets without SCL recovery",
		"controller")
)
