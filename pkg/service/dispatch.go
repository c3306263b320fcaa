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

package service

import (
	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/ipc"
)

// transfer is one validated (write, read) lease pair.
type transfer struct {
	write    ipc.Lease
	read     ipc.Lease
	writeLen int
	readLen  int
}

// writeRead handles WriteRead and WriteReadBlock.
// All lease pairs are validated before the bus is touched.
// Block semantics apply to the last pair only.
func (s *service) writeRead(msg *ipc.Message, block bool) (int, error) {
	if len(msg.Payload) != api.HeaderSize {
		return 0, errors.Wrapf(api.BadArg, "header of %d bytes", len(msg.Payload))
	}
	count := msg.LeaseCount()
	if count < 2 || count%2 != 0 {
		return 0, errors.Wrapf(api.IllegalLeaseCount, "%d leases", count)
	}
	dev, err := api.UnmarshalPayload(msg.Payload)
	if err != nil {
		return 0, err
	}
	if err := api.ValidateAddress(dev.Address); err != nil {
		return 0, errors.Wrapf(err, "address 0x%02x", dev.Address)
	}

	transfers := make([]transfer, 0, count/2)
	for i := 0; i < count; i += 2 {
		t, err := validatePair(msg, i)
		if err != nil {
			return 0, err
		}
		transfers = append(transfers, t)
	}

	total := 0
	for i, t := range transfers {
		w := make([]byte, t.writeLen)
		if err := t.write.ReadRange(0, w); err != nil {
			return 0, leaseError(err)
		}
		r := make([]byte, t.readLen)
		var n int
		if block && i == len(transfers)-1 {
			n, err = s.Topology.WriteReadBlock(dev, w, r)
		} else {
			n, err = s.Topology.WriteRead(dev, w, r)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "%s", dev)
		}
		if n > 0 {
			if err := t.read.WriteRange(0, r[:n]); err != nil {
				return 0, leaseError(err)
			}
		}
		total += n
	}
	s.Logger.Debug().
		Str("device", dev.String()).
		Int("pairs", len(transfers)).
		Int("read", total).
		Bool("block", block).
		Msg("WriteRead")
	return total, nil
}

// validatePair checks the lease pair starting at given index.
func validatePair(msg *ipc.Message, index int) (transfer, error) {
	wl, err := msg.Lease(index)
	if err != nil {
		return transfer{}, leaseError(err)
	}
	rl, err := msg.Lease(index + 1)
	if err != nil {
		return transfer{}, leaseError(err)
	}
	wi, err := wl.Info()
	if err != nil {
		return transfer{}, leaseError(err)
	}
	ri, err := rl.Info()
	if err != nil {
		return transfer{}, leaseError(err)
	}
	if !wi.Attributes.Readable() || !ri.Attributes.Writable() {
		return transfer{}, errors.Wrapf(api.BadArg, "lease pair %d has wrong attributes", index/2)
	}
	if wi.Len > api.MaxLeaseLength || ri.Len > api.MaxLeaseLength {
		return transfer{}, errors.Wrapf(api.TooMuchData, "lease pair %d (%d, %d)", index/2, wi.Len, ri.Len)
	}
	if wi.Len == 0 && ri.Len == 0 {
		return transfer{}, errors.Wrapf(api.BadArg, "lease pair %d is empty", index/2)
	}
	return transfer{write: wl, read: rl, writeLen: wi.Len, readLen: ri.Len}, nil
}

// leaseError converts a lease access failure into BadArg, except for
// a dead caller which aborts the request.
func leaseError(err error) error {
	if ipc.IsCallerDied(err) {
		return err
	}
	return errors.Wrapf(api.BadArg, "lease: %v", err)
}
