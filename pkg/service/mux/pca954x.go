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

package mux

import (
	"github.com/pkg/errors"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
)

// pca954x drives the PCA954x family of switches. The chips have a
// single control register with one enable bit per channel.
type pca954x struct {
	name     string
	channels int
}

var (
	// PCA9548 is an 8 channel I2C switch.
	PCA9548 Driver = &pca954x{name: "pca9548", channels: 8}
	// PCA9545 is a 4 channel I2C switch.
	PCA9545 Driver = &pca954x{name: "pca9545", channels: 4}
)

// Name implements Driver.
func (d *pca954x) Name() string {
	return d.name
}

// Configure implements Driver.
// The pin is driven high before it becomes an output, so the mux
// does not see a reset pulse.
func (d *pca954x) Configure(cfg *Config) error {
	if cfg.ResetPin == nil {
		return nil
	}
	if err := cfg.ResetPin.SetHigh(); err != nil {
		return errors.Wrapf(err, "SetHigh[%s] failed", cfg)
	}
	if err := cfg.ResetPin.ConfigureAsOutput(); err != nil {
		return errors.Wrapf(err, "ConfigureAsOutput[%s] failed", cfg)
	}
	return nil
}

// Reset implements Driver.
func (d *pca954x) Reset(cfg *Config) error {
	if cfg.ResetPin == nil {
		return nil
	}
	if err := cfg.ResetPin.SetLow(); err != nil {
		return errors.Wrapf(err, "SetLow[%s] failed", cfg)
	}
	if err := cfg.ResetPin.SetHigh(); err != nil {
		return errors.Wrapf(err, "SetHigh[%s] failed", cfg)
	}
	return nil
}

// controlValue returns the control register value for a segment.
func (d *pca954x) controlValue(segment *api.Segment) (byte, error) {
	if segment == nil {
		return 0, nil
	}
	if !segment.Valid() || int(*segment) > d.channels {
		return 0, errors.Wrapf(api.SegmentNotFound, "%s has no segment %s", d.name, *segment)
	}
	return 1 << uint(*segment-1), nil
}

// EnableSegment implements Driver.
func (d *pca954x) EnableSegment(hw bridge.I2C, cfg *Config, segment *api.Segment) error {
	value, err := d.controlValue(segment)
	if err != nil {
		return err
	}
	if _, err := hw.WriteRead(cfg.Controller, cfg.Address, []byte{value}, nil); err != nil {
		return muxError(err)
	}
	return nil
}
