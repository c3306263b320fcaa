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
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// statusLed shows the health of the buses: on while healthy,
// blinking after a bus had to be reset.
type statusLed struct {
	sync.Mutex
	pin         GPIOPin
	cancelBlink func()
	healthy     bool
}

func newStatusLed(pin GPIOPin) (*statusLed, error) {
	if err := pin.SetLow(); err != nil {
		return nil, errors.Wrap(err, "SetLow failed")
	}
	if err := pin.ConfigureAsOutput(); err != nil {
		return nil, errors.Wrap(err, "ConfigureAsOutput failed")
	}
	return &statusLed{pin: pin}, nil
}

// Healthy turns the led on and stops blinking.
func (l *statusLed) Healthy() error {
	if l == nil {
		return nil
	}
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	if l.healthy {
		return nil
	}
	l.stopBlink()
	l.healthy = true
	if err := l.pin.SetHigh(); err != nil {
		return errors.Wrap(err, "SetHigh failed")
	}
	return nil
}

// Recovering starts blinking the led with given delay.
func (l *statusLed) Recovering(delay time.Duration) {
	if l == nil {
		return
	}
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlink()
	l.healthy = false
	ctx, cancel := context.WithCancel(context.Background())
	l.cancelBlink = cancel
	go func() {
		value := true
		for {
			l.Mutex.Lock()
			if ctx.Err() == nil {
				if value {
					l.pin.SetHigh()
				} else {
					l.pin.SetLow()
				}
				value = !value
			}
			l.Mutex.Unlock()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Must be called with the mutex held.
func (l *statusLed) stopBlink() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
}

// Close stops blinking and turns the led off.
func (l *statusLed) Close() error {
	if l == nil {
		return nil
	}
	l.Mutex.Lock()
	defer l.Mutex.Unlock()
	l.stopBlink()
	return l.pin.SetLow()
}
