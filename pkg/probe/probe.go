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

package probe

import (
	"context"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/client"
	"github.com/binkynet/I2CServer/pkg/util"
)

const (
	defaultInterval = time.Second * 30
	requestTimeout  = time.Second * 2
)

// Config of the probe.
type Config struct {
	// Time between two rounds.
	Interval time.Duration
	// Devices to probe.
	Devices []api.Device
}

// Probe periodically checks that devices answer a single byte read,
// going through the server like any other client.
type Probe struct {
	Config
	log     zerolog.Logger
	devices []*client.Device

	mutex   sync.Mutex
	present map[string]bool
}

// New creates a probe that uses the given connection.
func New(cfg Config, log zerolog.Logger, conn *client.Conn) (*Probe, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	p := &Probe{
		Config:  cfg,
		log:     log.With().Str("component", "probe").Logger(),
		present: make(map[string]bool),
	}
	for _, dev := range cfg.Devices {
		d, err := conn.Device(dev)
		if err != nil {
			return nil, errors.Wrapf(err, "device %s", dev)
		}
		p.devices = append(p.devices, d)
	}
	return p, nil
}

// Run probes all devices until the given context is canceled.
func (p *Probe) Run(ctx context.Context) error {
	if len(p.devices) == 0 {
		<-ctx.Done()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return util.UntilCanceled(ctx, p.log, "probe", func() error {
		err := p.ProbeAll(ctx)
		if errors.Cause(err) == client.ErrServerRestarted {
			// Handles are bound to the old server, stop probing.
			p.log.Error().Msg("I2C server restarted, stopping probe")
			cancel()
			return nil
		}
		select {
		case <-time.After(p.Interval):
		case <-ctx.Done():
		}
		return err
	})
}

// ProbeAll probes every device once.
func (p *Probe) ProbeAll(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, d := range p.devices {
		if err := p.probe(ctx, d); err != nil {
			if errors.Cause(err) == client.ErrServerRestarted {
				return err
			}
			ae.Add(err)
		}
	}
	return ae.AsError()
}

func (p *Probe) probe(ctx context.Context, d *client.Device) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	name := d.String()
	buf := make([]byte, 1)
	_, err := d.ReadInto(ctx, buf)
	p.mutex.Lock()
	was, known := p.present[name]
	p.present[name] = err == nil
	p.mutex.Unlock()
	if err != nil {
		presentGauges.WithLabelValues(name).Set(0)
		failureCounters.WithLabelValues(name, api.CodeOf(err).String()).Inc()
		if !known || was {
			p.log.Warn().Err(err).Str("device", name).Msg("Device does not answer")
		}
		return errors.Wrapf(err, "probe %s", name)
	}
	presentGauges.WithLabelValues(name).Set(1)
	if known && !was {
		p.log.Info().Str("device", name).Msg("Device answers again")
	}
	return nil
}

// Present returns the result of the last probe per device.
func (p *Probe) Present() map[string]bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	result := make(map[string]bool, len(p.present))
	for k, v := range p.present {
		result[k] = v
	}
	return result
}
