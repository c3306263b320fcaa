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
	"os"
	"strconv"
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	sysfsUnexportPath = "/sys/class/gpio/unexport"
)

// SysfsPin is a GPIO pin driven through the sysfs gpio interface.
type SysfsPin struct {
	number    int
	activeLow bool

	mutex  sync.Mutex
	output gpio.OutputPin
	level  bool
}

var _ GPIOPin = &SysfsPin{}

// NewSysfsPin creates a pin for given gpio number.
// Nothing is exported until the pin is used.
func NewSysfsPin(number int) *SysfsPin {
	return &SysfsPin{number: number}
}

// SetHigh implements GPIOPin.
// When the pin is not an output yet, the level is applied by
// ConfigureAsOutput.
func (p *SysfsPin) SetHigh() error {
	return p.set(true)
}

// SetLow implements GPIOPin.
func (p *SysfsPin) SetLow() error {
	return p.set(false)
}

func (p *SysfsPin) set(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.level = value
	if p.output == nil {
		return nil
	}
	if err := p.output.Write(value); err != nil {
		return errors.Wrapf(err, "Write[gpio%d] failed", p.number)
	}
	return nil
}

// ConfigureAsOutput implements GPIOPin.
func (p *SysfsPin) ConfigureAsOutput() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	out, err := gpio.Output(p.number, p.activeLow, p.level)
	if err != nil {
		return errors.Wrapf(err, "Output[gpio%d] failed", p.number)
	}
	p.output = out
	return nil
}

// Configure implements GPIOPin.
// Analog turns the pin into a floating input; I2C hands it back to
// the kernel so the pin controller can route it to the bus.
func (p *SysfsPin) Configure(mode PinMode) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.output = nil
	switch mode {
	case PinModeAnalog:
		if _, err := gpio.Input(p.number, p.activeLow); err != nil {
			return errors.Wrapf(err, "Input[gpio%d] failed", p.number)
		}
		return nil
	case PinModeI2C:
		return unexportPin(p.number)
	default:
		return errors.Errorf("unknown pin mode %d", mode)
	}
}

func (p *SysfsPin) String() string {
	return fmt.Sprintf("gpio%d", p.number)
}

// unexportPin releases a pin from the sysfs interface.
func unexportPin(number int) error {
	content := strconv.Itoa(number)
	if err := os.WriteFile(sysfsUnexportPath, []byte(content), 0644); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to unexport gpio%d", number)
	}
	return nil
}

// SysfsPins creates sysfs pins.
type SysfsPins struct{}

var _ PinFactory = SysfsPins{}

// Pin implements PinFactory.
func (SysfsPins) Pin(number int) GPIOPin {
	return NewSysfsPin(number)
}
