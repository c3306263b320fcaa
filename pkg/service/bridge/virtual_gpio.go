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
	"fmt"
	"sync"
)

// VirtualPin is a GPIO pin that records what is done to it.
type VirtualPin struct {
	number int
	mutex  sync.Mutex
	events []string
	high   bool
	output bool
	mode   PinMode
}

var _ GPIOPin = &VirtualPin{}

// NewVirtualPin creates a pin that is low, input and analog.
func NewVirtualPin(number int) *VirtualPin {
	return &VirtualPin{number: number}
}

func (p *VirtualPin) add(event string) {
	p.events = append(p.events, event)
}

// SetHigh implements GPIOPin.
func (p *VirtualPin) SetHigh() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.high = true
	p.add("high")
	return nil
}

// SetLow implements GPIOPin.
func (p *VirtualPin) SetLow() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.high = false
	p.add("low")
	return nil
}

// ConfigureAsOutput implements GPIOPin.
func (p *VirtualPin) ConfigureAsOutput() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.output = true
	p.add("output")
	return nil
}

// Configure implements GPIOPin.
func (p *VirtualPin) Configure(mode PinMode) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.mode = mode
	p.add(mode.String())
	return nil
}

// Events returns everything done to the pin, in order.
func (p *VirtualPin) Events() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.events...)
}

// ResetEvents clears the event log.
func (p *VirtualPin) ResetEvents() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.events = nil
}

// Mode returns the current pin function.
func (p *VirtualPin) Mode() PinMode {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.mode
}

// IsHigh returns the current output level.
func (p *VirtualPin) IsHigh() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.high
}

func (p *VirtualPin) String() string {
	return fmt.Sprintf("virtual-gpio%d", p.number)
}

// VirtualPins creates virtual pins, returning the same pin for the
// same number.
type VirtualPins struct {
	mutex sync.Mutex
	pins  map[int]*VirtualPin
}

var _ PinFactory = &VirtualPins{}

// NewVirtualPins creates an empty virtual pin factory.
func NewVirtualPins() *VirtualPins {
	return &VirtualPins{pins: make(map[int]*VirtualPin)}
}

// Pin implements PinFactory.
func (f *VirtualPins) Pin(number int) GPIOPin {
	return f.Get(number)
}

// Get returns the virtual pin with given number.
func (f *VirtualPins) Get(number int) *VirtualPin {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	p, found := f.pins[number]
	if !found {
		p = NewVirtualPin(number)
		f.pins[number] = p
	}
	return p
}
