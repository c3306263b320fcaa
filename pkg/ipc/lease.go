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
	"github.com/pkg/errors"
)

var (
	// ErrCallerDied is returned by lease access after the task that
	// granted the lease has restarted.
	ErrCallerDied = errors.New("caller died")
	// ErrNoLease is returned when a lease index does not exist.
	ErrNoLease = errors.New("no such lease")
	// ErrLeaseAccess is returned when the lease does not grant the
	// requested access or the range is out of bounds.
	ErrLeaseAccess = errors.New("lease access denied")
)

// LeaseAttributes describes what the server may do with a lease.
type LeaseAttributes uint8

const (
	LeaseRead LeaseAttributes = 1 << iota
	LeaseWrite
)

// Readable returns true if the server may read the lease.
func (a LeaseAttributes) Readable() bool { return a&LeaseRead != 0 }

// Writable returns true if the server may write the lease.
func (a LeaseAttributes) Writable() bool { return a&LeaseWrite != 0 }

// LeaseInfo describes a lease.
type LeaseInfo struct {
	Len        int
	Attributes LeaseAttributes
}

// LeaseSpec is a buffer a caller grants along with a message.
type LeaseSpec struct {
	Buf        []byte
	Attributes LeaseAttributes
}

// ReadOnly grants read access to buf.
func ReadOnly(buf []byte) LeaseSpec {
	return LeaseSpec{Buf: buf, Attributes: LeaseRead}
}

// WriteOnly grants write access to buf.
func WriteOnly(buf []byte) LeaseSpec {
	return LeaseSpec{Buf: buf, Attributes: LeaseWrite}
}

// ReadWrite grants both read and write access to buf.
func ReadWrite(buf []byte) LeaseSpec {
	return LeaseSpec{Buf: buf, Attributes: LeaseRead | LeaseWrite}
}

// Lease is the server side view of a caller buffer.
// It is valid until the message is replied to.
type Lease interface {
	// Info returns length and access rights of the lease.
	Info() (LeaseInfo, error)
	// ReadRange copies len(dst) bytes starting at offset into dst.
	ReadRange(offset int, dst []byte) error
	// WriteRange copies src into the lease starting at offset.
	WriteRange(offset int, src []byte) error
}

type lease struct {
	spec       LeaseSpec
	owner      *Task
	generation uint8
}

func (l *lease) alive() error {
	if l.owner != nil && l.owner.Generation() != l.generation {
		return errors.WithStack(ErrCallerDied)
	}
	return nil
}

func (l *lease) Info() (LeaseInfo, error) {
	if err := l.alive(); err != nil {
		return LeaseInfo{}, err
	}
	return LeaseInfo{Len: len(l.spec.Buf), Attributes: l.spec.Attributes}, nil
}

func (l *lease) ReadRange(offset int, dst []byte) error {
	if err := l.alive(); err != nil {
		return err
	}
	if !l.spec.Attributes.Readable() || offset < 0 || offset+len(dst) > len(l.spec.Buf) {
		return errors.WithStack(ErrLeaseAccess)
	}
	copy(dst, l.spec.Buf[offset:])
	return nil
}

func (l *lease) WriteRange(offset int, src []byte) error {
	if err := l.alive(); err != nil {
		return err
	}
	if !l.spec.Attributes.Writable() || offset < 0 || offset+len(src) > len(l.spec.Buf) {
		return errors.WithStack(ErrLeaseAccess)
	}
	copy(l.spec.Buf[offset:], src)
	return nil
}

// IsCallerDied returns true if err reports a restarted caller.
func IsCallerDied(err error) bool {
	return errors.Cause(err) == ErrCallerDied
}
