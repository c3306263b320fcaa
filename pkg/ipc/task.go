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
	"sync/atomic"
)

const (
	// DeadCodeMask marks a reply code that reports a restarted task.
	// The low byte holds the new generation of that task.
	DeadCodeMask uint32 = 0xFFFF_FF00
)

// Task is a schedulable entity with a generation that is incremented
// every time the task restarts.
type Task struct {
	name       string
	generation atomic.Uint32
}

// NewTask creates a task in generation 0.
func NewTask(name string) *Task {
	return &Task{name: name}
}

// Name returns the name of the task.
func (t *Task) Name() string {
	return t.name
}

// Generation returns the current generation.
func (t *Task) Generation() uint8 {
	return uint8(t.generation.Load())
}

// Restart moves the task to its next generation. Everything that was
// bound to the previous generation becomes invalid.
func (t *Task) Restart() {
	t.generation.Add(1)
}

// DeadCode returns the reply code reporting that a task now runs in
// the given generation.
func DeadCode(generation uint8) uint32 {
	return DeadCodeMask | uint32(generation)
}

// IsDeadCode returns true if code reports a restarted task.
func IsDeadCode(code uint32) bool {
	return code&DeadCodeMask == DeadCodeMask
}
