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
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/I2CServer/pkg/api"
)

const (
	// Number of slave messages a virtual controller buffers.
	virtualSlaveQueueLength = 16
)

// Names of the operations recorded by Virtual.
const (
	OpWriteRead         = "write-read"
	OpWriteReadBlock    = "write-read-block"
	OpConfigureTiming   = "configure-timing"
	OpResetBus          = "reset-bus"
	OpEnableController  = "enable-controller"
	OpDisableController = "disable-controller"
	OpConfigureSlave    = "configure-slave"
	OpEnableSlave       = "enable-slave"
	OpDisableSlave      = "disable-slave"
	OpPollSlave         = "poll-slave"
)

// VirtualCall is a recorded call on virtual hardware.
type VirtualCall struct {
	Op         string
	Controller api.Controller
	Address    uint8
	Write      []byte
	ReadLen    int
}

type virtualKey struct {
	controller api.Controller
	address    uint8
}

type virtualSlave struct {
	config    *api.SlaveConfig
	receiving bool
	queue     []api.SlaveMessage
	status    api.SlaveStatus
}

// Virtual is hardware that exists only in memory.
// Unless told otherwise every address answers: a read without a write
// returns address+i, a read after a write echoes the written bytes.
type Virtual struct {
	log   zerolog.Logger
	mutex sync.Mutex

	responses map[virtualKey][]byte
	missing   map[virtualKey]bool
	faults    map[virtualKey][]error
	sticky    map[virtualKey]error
	busFaults map[api.Controller][]error

	calls         []VirtualCall
	counters      map[string]int
	enabled       map[api.Controller]bool
	speeds        map[api.Controller]api.Speed
	slaves        map[api.Controller]*virtualSlave
	notifications uint32
}

var _ Hardware = &Virtual{}

// NewVirtual creates empty virtual hardware.
func NewVirtual(log zerolog.Logger) *Virtual {
	return &Virtual{
		log:       log.With().Str("component", "virtual-i2c").Logger(),
		responses: make(map[virtualKey][]byte),
		missing:   make(map[virtualKey]bool),
		faults:    make(map[virtualKey][]error),
		sticky:    make(map[virtualKey]error),
		busFaults: make(map[api.Controller][]error),
		counters:  make(map[string]int),
		enabled:   make(map[api.Controller]bool),
		speeds:    make(map[api.Controller]api.Speed),
		slaves:    make(map[api.Controller]*virtualSlave),
	}
}

// SetResponse sets the bytes the device at given address returns.
func (v *Virtual) SetResponse(c api.Controller, addr uint8, data []byte) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	k := virtualKey{c, addr}
	v.responses[k] = append([]byte(nil), data...)
	delete(v.missing, k)
}

// SetMissing makes the device at given address not acknowledge.
func (v *Virtual) SetMissing(c api.Controller, addr uint8) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.missing[virtualKey{c, addr}] = true
}

// InjectFault makes the next transaction with the device at given
// address fail with err. Multiple faults are consumed in order.
func (v *Virtual) InjectFault(c api.Controller, addr uint8, err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	k := virtualKey{c, addr}
	v.faults[k] = append(v.faults[k], err)
}

// SetStickyFault makes every transaction with the device at given
// address fail with err until ClearFaults is called.
func (v *Virtual) SetStickyFault(c api.Controller, addr uint8, err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.sticky[virtualKey{c, addr}] = err
}

// InjectResetFault makes the next ResetBus of given controller fail.
func (v *Virtual) InjectResetFault(c api.Controller, err error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.busFaults[c] = append(v.busFaults[c], err)
}

// ClearFaults removes all injected faults and missing devices.
func (v *Virtual) ClearFaults() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.missing = make(map[virtualKey]bool)
	v.faults = make(map[virtualKey][]error)
	v.sticky = make(map[virtualKey]error)
	v.busFaults = make(map[api.Controller][]error)
}

// Calls returns a copy of all recorded calls.
func (v *Virtual) Calls() []VirtualCall {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return append([]VirtualCall(nil), v.calls...)
}

// CallsTo returns the recorded transactions with given address.
func (v *Virtual) CallsTo(c api.Controller, addr uint8) []VirtualCall {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	var result []VirtualCall
	for _, call := range v.calls {
		if call.Controller == c && call.Address == addr && (call.Op == OpWriteRead || call.Op == OpWriteReadBlock) {
			result = append(result, call)
		}
	}
	return result
}

// ResetCalls clears the call log and counters.
func (v *Virtual) ResetCalls() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.calls = nil
	v.counters = make(map[string]int)
}

// Count returns the number of calls of given operation.
func (v *Virtual) Count(op string) int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.counters[op]
}

// Enabled returns true if the controller is enabled.
func (v *Virtual) Enabled(c api.Controller) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.enabled[c]
}

// Speed returns the configured speed of a controller.
func (v *Virtual) Speed(c api.Controller) api.Speed {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.speeds[c]
}

// Notifications returns the union of all notification bits seen.
func (v *Virtual) Notifications() uint32 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.notifications
}

// HandleNotification implements Notifier.
func (v *Virtual) HandleNotification(bits uint32) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.notifications |= bits
}

func (v *Virtual) record(call VirtualCall) {
	v.calls = append(v.calls, call)
	v.counters[call.Op]++
}

// respond returns the data a device produces for a transaction.
// Must be called with the mutex held.
func (v *Virtual) respond(c api.Controller, addr uint8, w []byte, readLen int) ([]byte, error) {
	k := virtualKey{c, addr}
	if err := v.sticky[k]; err != nil {
		return nil, err
	}
	if queue := v.faults[k]; len(queue) > 0 {
		v.faults[k] = queue[1:]
		return nil, queue[0]
	}
	if v.missing[k] {
		return nil, errors.Wrapf(api.NoDevice, "no device at %s 0x%02x", c, addr)
	}
	if data, found := v.responses[k]; found {
		return data, nil
	}
	if len(w) == 0 {
		data := make([]byte, readLen)
		for i := range data {
			data[i] = addr + byte(i)
		}
		return data, nil
	}
	return w, nil
}

// WriteRead implements I2C.
func (v *Virtual) WriteRead(c api.Controller, addr uint8, w, r []byte) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.record(VirtualCall{Op: OpWriteRead, Controller: c, Address: addr, Write: append([]byte(nil), w...), ReadLen: len(r)})
	if len(w) == 0 && len(r) == 0 {
		return 0, api.BadArg
	}
	data, err := v.respond(c, addr, w, len(r))
	if err != nil {
		return 0, err
	}
	if len(r) == 0 {
		return 0, nil
	}
	n := copy(r, data)
	v.log.Debug().
		Str("controller", c.String()).
		Uint8("address", addr).
		Int("written", len(w)).
		Int("read", n).
		Msg("write-read")
	return n, nil
}

// WriteReadBlock implements I2C.
// The length prefix of the device response is consumed here.
func (v *Virtual) WriteReadBlock(c api.Controller, addr uint8, w, r []byte) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.record(VirtualCall{Op: OpWriteReadBlock, Controller: c, Address: addr, Write: append([]byte(nil), w...), ReadLen: len(r)})
	if len(r) == 0 {
		return 0, api.BadArg
	}
	data, err := v.respond(c, addr, w, len(r))
	if err != nil {
		return 0, err
	}
	count := len(data)
	if count > api.MaxLeaseLength {
		count = api.MaxLeaseLength
	}
	return copy(r, data[:count]), nil
}

// ConfigureTiming implements I2C.
func (v *Virtual) ConfigureTiming(c api.Controller, speed api.Speed) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpConfigureTiming, Controller: c})
	v.speeds[c] = speed
	return nil
}

// ResetBus implements I2C.
func (v *Virtual) ResetBus(c api.Controller) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpResetBus, Controller: c})
	if queue := v.busFaults[c]; len(queue) > 0 {
		v.busFaults[c] = queue[1:]
		return queue[0]
	}
	return nil
}

// EnableController implements I2C.
func (v *Virtual) EnableController(c api.Controller) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpEnableController, Controller: c})
	v.enabled[c] = true
	return nil
}

// DisableController implements I2C.
func (v *Virtual) DisableController(c api.Controller) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpDisableController, Controller: c})
	v.enabled[c] = false
	return nil
}

func (v *Virtual) slave(c api.Controller) *virtualSlave {
	s, found := v.slaves[c]
	if !found {
		s = &virtualSlave{}
		v.slaves[c] = s
	}
	return s
}

// ConfigureSlaveMode implements Slave.
func (v *Virtual) ConfigureSlaveMode(c api.Controller, cfg api.SlaveConfig) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpConfigureSlave, Controller: c, Address: cfg.Address})
	v.slave(c).config = &cfg
	return nil
}

// EnableSlaveReceive implements Slave.
func (v *Virtual) EnableSlaveReceive(c api.Controller) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpEnableSlave, Controller: c})
	s := v.slave(c)
	if s.config == nil {
		return api.SlaveConfigurationFailed
	}
	s.receiving = true
	s.status.Enabled = true
	return nil
}

// DisableSlaveReceive implements Slave.
func (v *Virtual) DisableSlaveReceive(c api.Controller) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpDisableSlave, Controller: c})
	s := v.slave(c)
	s.receiving = false
	s.status.Enabled = false
	return nil
}

// PollSlaveMessages implements Slave.
func (v *Virtual) PollSlaveMessages(c api.Controller, msgs []api.SlaveMessage) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.record(VirtualCall{Op: OpPollSlave, Controller: c})
	s := v.slave(c)
	if !s.receiving {
		return 0, api.SlaveNotEnabled
	}
	n := copy(msgs, s.queue)
	s.queue = s.queue[n:]
	s.status.BufferFull = false
	return n, nil
}

// SlaveStatus implements Slave.
func (v *Virtual) SlaveStatus(c api.Controller) (api.SlaveStatus, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.slave(c).status, nil
}

// InjectSlaveMessage simulates a master writing to our slave address.
func (v *Virtual) InjectSlaveMessage(c api.Controller, msg api.SlaveMessage) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	s := v.slave(c)
	if !s.receiving {
		return api.SlaveNotEnabled
	}
	if len(s.queue) >= virtualSlaveQueueLength {
		s.status.MessagesDropped++
		s.status.BufferFull = true
		return api.SlaveBufferFull
	}
	s.status.MessagesReceived++
	s.status.AddressMatches++
	s.queue = append(s.queue, api.SlaveMessage{
		SourceAddress: msg.SourceAddress,
		Data:          append([]byte(nil), msg.Data...),
	})
	return nil
}
