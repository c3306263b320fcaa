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

package ipc

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Endpoint is the receive point of a server task.
type Endpoint struct {
	task     *Task
	messages chan *Message
	notify   chan struct{}

	mutex   sync.Mutex
	pending uint32
}

// NewEndpoint creates an endpoint served by a task with given name.
func NewEndpoint(name string, queueLength int) *Endpoint {
	return &Endpoint{
		task:     NewTask(name),
		messages: make(chan *Message, queueLength),
		notify:   make(chan struct{}, 1),
	}
}

// Task returns the server task behind the endpoint.
func (e *Endpoint) Task() *Task {
	return e.task
}

// Messages returns the channel on which requests arrive.
func (e *Endpoint) Messages() <-chan *Message {
	return e.messages
}

// Notifications returns a channel that fires when notification bits
// are pending. Use TakeNotifications to collect them.
func (e *Endpoint) Notifications() <-chan struct{} {
	return e.notify
}

// Notify posts notification bits to the server.
// Bits posted before the server collects them are merged.
func (e *Endpoint) Notify(bits uint32) {
	e.mutex.Lock()
	e.pending |= bits
	e.mutex.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// TakeNotifications returns and clears all pending notification bits.
func (e *Endpoint) TakeNotifications() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	bits := e.pending
	e.pending = 0
	return bits
}

// Send delivers a request to the server and waits for its reply.
// generation is the server generation the caller believes is current;
// when the server has restarted since, the dead code is returned
// without delivering the message.
// If the server drops the message, ErrCallerDied is returned.
func (e *Endpoint) Send(ctx context.Context, caller *Task, generation uint8, op uint16, payload []byte, leases ...LeaseSpec) (uint32, int, error) {
	if current := e.task.Generation(); current != generation {
		return DeadCode(current), 0, nil
	}
	msg := newMessage(caller, op, payload, leases)
	select {
	case e.messages <- msg:
	case <-ctx.Done():
		return 0, 0, errors.WithStack(ctx.Err())
	}
	select {
	case r := <-msg.reply:
		if r.dropped {
			return 0, 0, errors.WithStack(ErrCallerDied)
		}
		return r.code, r.value, nil
	case <-ctx.Done():
		return 0, 0, errors.WithStack(ctx.Err())
	}
}
