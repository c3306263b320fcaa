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
	"sync"

	"github.com/pkg/errors"
)

// Message is a request received by a server.
// Every message must be completed exactly once by Reply, ReplyError
// or Drop.
type Message struct {
	Op      uint16
	Payload []byte
	Sender  *Task

	leases []*lease
	once   sync.Once
	reply  chan response
}

type response struct {
	code    uint32
	value   int
	dropped bool
}

func newMessage(caller *Task, op uint16, payload []byte, specs []LeaseSpec) *Message {
	m := &Message{
		Op:      op,
		Payload: payload,
		Sender:  caller,
		reply:   make(chan response, 1),
	}
	var gen uint8
	if caller != nil {
		gen = caller.Generation()
	}
	for _, s := range specs {
		m.leases = append(m.leases, &lease{spec: s, owner: caller, generation: gen})
	}
	return m
}

// LeaseCount returns the number of leases granted with the message.
func (m *Message) LeaseCount() int {
	return len(m.leases)
}

// Lease returns the lease with given index.
func (m *Message) Lease(index int) (Lease, error) {
	if index < 0 || index >= len(m.leases) {
		return nil, errors.WithStack(ErrNoLease)
	}
	return m.leases[index], nil
}

// Reply completes the message successfully with given value.
func (m *Message) Reply(value int) {
	m.complete(response{value: value})
}

// ReplyError completes the message with a non-zero response code.
func (m *Message) ReplyError(code uint32) {
	m.complete(response{code: code})
}

// Drop completes the message without a reply, used when the caller
// no longer exists.
func (m *Message) Drop() {
	m.complete(response{dropped: true})
}

func (m *Message) complete(r response) {
	m.once.Do(func() {
		m.reply <- r
	})
}
