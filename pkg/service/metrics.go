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

package service

import (
	"github.com/binkynet/I2CServer/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of requests per operation
	requestCounters = metrics.MustRegisterCounterVec(subSystem,
		"requests_total",
		"Total number of requests per operation",
		"op")
	// Total number of failed requests per operation and code
	failureCounters = metrics.MustRegisterCounterVec(subSystem,
		"request_failures_total",
		"Total number of failed requests per operation and response code",
		"op", "code")
	// Total number of requests dropped because the caller died
	droppedCounter = metrics.MustRegisterCounter(subSystem,
		"requests_dropped_total",
		"Total number of requests dropped because the caller died")
	// Total number of notifications received
	notificationCounter = metrics.MustRegisterCounter(subSystem,
		"notifications_total",
		"Total number of notifications received")
	// Total number of slave messages delivered
	slaveMessageCounters = metrics.MustRegisterCounterVec(subSystem,
		"slave_messages_total",
		"Total number of slave messages delivered to clients",
		"controller")
	// Total number of slave messages that did not fit the client buffer
	slaveDroppedCounters = metrics.MustRegisterCounterVec(subSystem,
		"slave_messages_dropped_total",
		"Total number of slave messages that did not fit the client buffer",
		"controller")
)
