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
	"context"
	"sync"
	"time"

	"github.com/binkynet/I2CServer/pkg/api"
)

// RecoveryEvent is published every time a bus is reset after a fault.
type RecoveryEvent struct {
	Bus       Bus              `json:"bus"`
	Code      api.ResponseCode `json:"-"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}

// recoverySubscribers fans a published event out to all registered
// callbacks. It is the single subscriber of the recoveries hub.
type recoverySubscribers struct {
	mutex     sync.Mutex
	lastID    int
	callbacks map[int]func(RecoveryEvent)
}

func (rs *recoverySubscribers) add(cb func(RecoveryEvent)) int {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	if rs.callbacks == nil {
		rs.callbacks = make(map[int]func(RecoveryEvent))
	}
	rs.lastID++
	rs.callbacks[rs.lastID] = cb
	return rs.lastID
}

func (rs *recoverySubscribers) remove(id int) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()
	delete(rs.callbacks, id)
}

func (rs *recoverySubscribers) dispatch(ev RecoveryEvent) {
	rs.mutex.Lock()
	callbacks := make([]func(RecoveryEvent), 0, len(rs.callbacks))
	for _, cb := range rs.callbacks {
		callbacks = append(callbacks, cb)
	}
	rs.mutex.Unlock()
	for _, cb := range callbacks {
		cb(ev)
	}
}

// OnRecovery registers a callback that is invoked (asynchronously)
// for every bus recovery. Call the returned function to unregister.
func (t *Topology) OnRecovery(cb func(RecoveryEvent)) context.CancelFunc {
	id := t.subscribers.add(cb)
	var once sync.Once
	return func() {
		once.Do(func() { t.subscribers.remove(id) })
	}
}

func (t *Topology) publishRecovery(bus Bus, code api.ResponseCode) {
	t.recoveryCount++
	t.recoveries.Pub(RecoveryEvent{
		Bus:       bus,
		Code:      code,
		Reason:    code.String(),
		Timestamp: time.Now(),
	})
}
