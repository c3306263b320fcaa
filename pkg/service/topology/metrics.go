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
	"github.com/binkynet/I2CServer/pkg/metrics"
)

const (
	subSystem = "topology"
)

var (
	// Total number of transactions sent to the hardware
	transactionCounters = metrics.MustRegisterCounterVec(subSystem,
		"transactions_total",
		"Total number of transactions sent to the hardware",
		"bus")
	// Total number of failed transactions
	transactionErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"transaction_errors_total",
		"Total number of failed transactions",
		"bus", "code")
	// Total number of mux control register writes
	muxWriteCounters = metrics.MustRegisterCounterVec(subSystem,
		"mux_writes_total",
		"Total number of mux control register writes",
		"bus")
	// Total number of requests served from the mux state cache
	muxCacheHitCounters = metrics.MustRegisterCounterVec(subSystem,
		"mux_cache_hits_total",
		"Total number of requests for an already enabled mux segment",
		"bus")
	// Total number of port switches
	portSwitchCounters = metrics.MustRegisterCounterVec(subSystem,
		"port_switches_total",
		"Total number of port switches",
		"controller")
	// Total number of bus recoveries
	recoveryCounters = metrics.MustRegisterCounterVec(subSystem,
		"recoveries_total",
		"Total number of bus recoveries",
		"bus", "code")
)
