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

//go:build linux

package bridge

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/binkynet/I2CServer/pkg/api"
)

const (
	// From  /usr/include/linux/i2c-dev.h:
	// ioctl signals
	I2C_SLAVE = 0x0703
	I2C_FUNCS = 0x0705
	I2C_RDWR  = 0x0707
	I2C_SMBUS = 0x0720
	// Read/write markers
	I2C_SMBUS_READ  = 1
	I2C_SMBUS_WRITE = 0

	// From  /usr/include/linux/i2c.h:
	I2C_M_RD = 0x0001
	// Adapter functionality
	I2C_FUNC_I2C                   = 0x00000001
	I2C_FUNC_SLAVE                 = 0x00000020
	I2C_FUNC_SMBUS_READ_BLOCK_DATA = 0x01000000

	// Transaction types
	I2C_SMBUS_BLOCK_DATA = 5
	I2C_SMBUS_BLOCK_MAX  = 32

	I2C_RECOVER_NUM_CLOCKS = 10    /* # clock cycles for recovery  */
	I2C_RECOVER_CLOCK_FREQ = 50000 /* clock frequency for recovery */

	I2C_RECOVER_CLOCK_DELAY_US = (1000000 / (2 * I2C_RECOVER_CLOCK_FREQ))

	statusBlinkDelay = time.Millisecond * 250
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// LinuxBusConfig configures a single /dev/i2c-N adapter.
type LinuxBusConfig struct {
	// Path of the device. Derived from the device pattern when empty.
	Device string
	// GPIO number of the SCL line, used to clock out a stuck slave.
	// Negative to disable.
	SCLPin int
}

// LinuxConfig configures the i2c-dev based hardware.
type LinuxConfig struct {
	// Pattern used to build the device path from the controller number.
	DevicePattern string
	Buses         map[api.Controller]LinuxBusConfig
	// GPIO number of a status led. Negative to disable.
	StatusLEDPin int
}

type linuxBus struct {
	path    string
	sclPin  int
	file    *os.File
	funcs   uint64 // adapter functionality mask
	address int
	speed   api.Speed
}

// Linux is hardware backed by the kernel i2c-dev interface.
// Slave mode is not available through i2c-dev.
type Linux struct {
	log    zerolog.Logger
	config LinuxConfig
	mutex  sync.Mutex
	buses  map[api.Controller]*linuxBus
	led    *statusLed
}

var _ Hardware = &Linux{}

// NewLinux creates i2c-dev hardware.
func NewLinux(log zerolog.Logger, config LinuxConfig) (*Linux, error) {
	if config.DevicePattern == "" {
		config.DevicePattern = "/dev/i2c-%d"
	}
	l := &Linux{
		log:    log.With().Str("component", "linux-i2c").Logger(),
		config: config,
		buses:  make(map[api.Controller]*linuxBus),
	}
	if config.StatusLEDPin >= 0 {
		led, err := newStatusLed(NewSysfsPin(config.StatusLEDPin))
		if err != nil {
			return nil, errors.Wrap(err, "status led failed")
		}
		l.led = led
	}
	return l, nil
}

func (l *Linux) busConfig(c api.Controller) LinuxBusConfig {
	cfg, found := l.config.Buses[c]
	if !found {
		cfg.SCLPin = -1
	}
	if cfg.Device == "" {
		cfg.Device = fmt.Sprintf(l.config.DevicePattern, int(c))
	}
	return cfg
}

// Must be called with the mutex held.
func (l *Linux) bus(c api.Controller) (*linuxBus, error) {
	b, found := l.buses[c]
	if !found || b.file == nil {
		return nil, errors.Wrapf(api.BadDeviceState, "controller %s is not enabled", c)
	}
	return b, nil
}

// EnableController implements I2C.
func (l *Linux) EnableController(c api.Controller) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if b, found := l.buses[c]; found && b.file != nil {
		return nil
	}
	cfg := l.busConfig(c)
	b := &linuxBus{path: cfg.Device, sclPin: cfg.SCLPin, address: -1}
	if err := b.open(); err != nil {
		return err
	}
	l.buses[c] = b
	l.log.Info().Str("controller", c.String()).Str("device", b.path).Msg("Enabled controller")
	return l.led.Healthy()
}

// DisableController implements I2C.
func (l *Linux) DisableController(c api.Controller) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, found := l.buses[c]
	if !found {
		return nil
	}
	delete(l.buses, c)
	return b.close()
}

// ConfigureTiming implements I2C.
// i2c-dev cannot change the bus clock; it is set by the device tree.
func (l *Linux) ConfigureTiming(c api.Controller, speed api.Speed) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, err := l.bus(c)
	if err != nil {
		return err
	}
	b.speed = speed
	l.log.Debug().
		Str("controller", c.String()).
		Str("speed", speed.Frequency().String()).
		Msg("Bus speed is configured by the kernel")
	return nil
}

// WriteRead implements I2C.
func (l *Linux) WriteRead(c api.Controller, addr uint8, w, r []byte) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, err := l.bus(c)
	if err != nil {
		return 0, err
	}
	if len(w) == 0 && len(r) == 0 {
		return 0, api.BadArg
	}
	if b.funcs&I2C_FUNC_I2C != 0 {
		if err := b.rdwr(addr, w, r); err != nil {
			return 0, errors.Wrapf(classifyErrno(err), "rdwr[0x%0x] failed: %v", addr, err)
		}
	} else {
		if err := b.setAddress(addr); err != nil {
			return 0, errors.Wrapf(classifyErrno(err), "setAddress[0x%0x] failed: %v", addr, err)
		}
		if len(w) > 0 {
			if _, err := b.file.Write(w); err != nil {
				return 0, errors.Wrapf(classifyErrno(err), "write[0x%0x] failed: %v", addr, err)
			}
		}
		if len(r) > 0 {
			if _, err := b.file.Read(r); err != nil {
				return 0, errors.Wrapf(classifyErrno(err), "read[0x%0x] failed: %v", addr, err)
			}
		}
	}
	l.led.Healthy()
	return len(r), nil
}

// WriteReadBlock implements I2C using an SMBus block read.
// The write part must be exactly one command byte.
func (l *Linux) WriteReadBlock(c api.Controller, addr uint8, w, r []byte) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, err := l.bus(c)
	if err != nil {
		return 0, err
	}
	if len(w) != 1 || b.funcs&I2C_FUNC_SMBUS_READ_BLOCK_DATA == 0 {
		return 0, errors.Wrapf(api.OperationNotSupported, "block read with %d byte command", len(w))
	}
	if err := b.setAddress(addr); err != nil {
		return 0, errors.Wrapf(classifyErrno(err), "setAddress[0x%0x] failed: %v", addr, err)
	}
	// block[0] holds the count
	var data [I2C_SMBUS_BLOCK_MAX + 2]byte
	if err := b.smbusAccess(I2C_SMBUS_READ, w[0], I2C_SMBUS_BLOCK_DATA, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(classifyErrno(err), "readBlockData[0x%0x](0x%0x) failed: %v", addr, w[0], err)
	}
	count := int(data[0])
	if count > I2C_SMBUS_BLOCK_MAX {
		count = I2C_SMBUS_BLOCK_MAX
	}
	l.led.Healthy()
	return copy(r, data[1:1+count]), nil
}

// ResetBus implements I2C.
// The adapter is closed, SCL is clocked to release a slave that holds
// SDA low, then the adapter is opened again.
func (l *Linux) ResetBus(c api.Controller) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	b, found := l.buses[c]
	if !found {
		return errors.Wrapf(api.BadDeviceState, "controller %s is not enabled", c)
	}
	l.led.Recovering(statusBlinkDelay)
	b.close()
	if b.sclPin >= 0 {
		l.log.Warn().Str("controller", c.String()).Int("scl", b.sclPin).Msg("Performing i2c recovery ...")
		i2cRecoveryAttemptsTotal.WithLabelValues(c.String()).Inc()
		if err := recoverFromLockup(b.sclPin); err != nil {
			i2cRecoveryFailedTotal.WithLabelValues(c.String()).Inc()
			return errors.Wrapf(api.BusLocked, "recovery failed: %v", err)
		}
		i2cRecoverySucceededTotal.WithLabelValues(c.String()).Inc()
	} else {
		i2cRecoverySkippedTotal.WithLabelValues(c.String()).Inc()
	}
	return b.open()
}

// ConfigureSlaveMode implements Slave.
func (l *Linux) ConfigureSlaveMode(c api.Controller, cfg api.SlaveConfig) error {
	return api.SlaveNotSupported
}

// EnableSlaveReceive implements Slave.
func (l *Linux) EnableSlaveReceive(c api.Controller) error {
	return api.SlaveNotSupported
}

// DisableSlaveReceive implements Slave.
func (l *Linux) DisableSlaveReceive(c api.Controller) error {
	return api.SlaveNotSupported
}

// PollSlaveMessages implements Slave.
func (l *Linux) PollSlaveMessages(c api.Controller, msgs []api.SlaveMessage) (int, error) {
	return 0, api.SlaveNotSupported
}

// SlaveStatus implements Slave.
func (l *Linux) SlaveStatus(c api.Controller) (api.SlaveStatus, error) {
	return api.SlaveStatus{}, api.SlaveNotSupported
}

// Close all adapters.
func (l *Linux) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	var ae aerr.AggregateError
	for c, b := range l.buses {
		if err := b.close(); err != nil {
			ae.Add(err)
		}
		delete(l.buses, c)
	}
	if err := l.led.Close(); err != nil {
		ae.Add(err)
	}
	return ae.AsError()
}

func (b *linuxBus) open() error {
	f, err := os.OpenFile(b.path, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return errors.Wrapf(api.BadController, "open %s failed: %v", b.path, err)
	}
	b.file = f
	b.address = -1
	if err := b.queryFunctionality(); err != nil {
		b.close()
		return errors.Wrapf(api.BadController, "%s: %v", b.path, err)
	}
	return nil
}

func (b *linuxBus) close() error {
	if b.file == nil {
		return nil
	}
	f := b.file
	b.file = nil
	return f.Close()
}

func (b *linuxBus) queryFunctionality() error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		b.file.Fd(),
		I2C_FUNCS,
		uintptr(unsafe.Pointer(&b.funcs)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *linuxBus) setAddress(address uint8) error {
	if b.address == int(address) {
		return nil
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		b.file.Fd(),
		I2C_SLAVE,
		uintptr(address),
	)
	if errno != 0 {
		return errno
	}
	b.address = int(address)
	return nil
}

// rdwr performs write and read as one combined transfer.
func (b *linuxBus) rdwr(address uint8, w, r []byte) error {
	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: uint16(address), len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: uint16(address), flags: I2C_M_RD, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))})
	}
	data := i2cRdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		b.file.Fd(),
		I2C_RDWR,
		uintptr(unsafe.Pointer(&data)),
	)
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *linuxBus) smbusAccess(readWrite byte, command byte, size uint32, data uintptr) error {
	smbus := &i2cSmbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		b.file.Fd(),
		I2C_SMBUS,
		uintptr(unsafe.Pointer(smbus)),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// classifyErrno maps a kernel error onto the response taxonomy.
func classifyErrno(err error) api.ResponseCode {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return api.BusError
	}
	switch errno {
	case unix.EBUSY:
		return api.ControllerBusy
	case unix.ETIMEDOUT, unix.EAGAIN:
		return api.BusLocked
	case unix.ENXIO, unix.EREMOTEIO:
		return api.NoDevice
	case unix.EINVAL, unix.EOPNOTSUPP:
		return api.OperationNotSupported
	default:
		return api.BusError
	}
}

// Try to recover the i2c bus from lockup by clocking SCL.
func recoverFromLockup(sclPin int) error {
	scl := NewSysfsPin(sclPin)
	scl.activeLow = true
	if err := scl.SetHigh(); err != nil {
		return err
	}
	if err := scl.ConfigureAsOutput(); err != nil {
		return errors.Wrap(err, "failed to set scl pin to output")
	}
	for i := 0; i < I2C_RECOVER_NUM_CLOCKS; i++ {
		time.Sleep(time.Microsecond * I2C_RECOVER_CLOCK_DELAY_US)
		if err := scl.SetLow(); err != nil {
			return errors.Wrap(err, "failed to lower scl during i2c recovery")
		}
		time.Sleep(time.Microsecond * I2C_RECOVER_CLOCK_DELAY_US)
		if err := scl.SetHigh(); err != nil {
			return errors.Wrap(err, "failed to raise scl during i2c recovery")
		}
	}
	// Reset pin to be input, then hand it back to the kernel
	if err := scl.Configure(PinModeAnalog); err != nil {
		return errors.Wrap(err, "failed to reset scl pin to input")
	}
	return unexportPin(sclPin)
}
