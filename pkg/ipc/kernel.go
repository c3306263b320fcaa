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

// Kernel is an in-process registry of server endpoints.
type Kernel struct {
	mutex     sync.Mutex
	endpoints map[string]*Endpoint
}

// NewKernel creates an empty kernel.
func NewKernel() *Kernel {
	return &Kernel{endpoints: make(map[string]*Endpoint)}
}

// Register creates the endpoint of a server task.
func (k *Kernel) Register(name string, queueLength int) (*Endpoint, error) {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	if _, found := k.endpoints[name]; found {
		return nil, errors.Errorf("endpoint '%s' already registered", name)
	}
	ep := NewEndpoint(name, queueLength)
	k.endpoints[name] = ep
	return ep, nil
}

// Lookup returns the endpoint with given name.
func (k *Kernel) Lookup(name string) (*Endpoint, bool) {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	ep, found := k.endpoints[name]
	return ep, found
}
