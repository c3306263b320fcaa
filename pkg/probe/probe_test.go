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
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/client"
	"github.com/binkynet/I2CServer/pkg/ipc"
	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/bridge"
	"github.com/binkynet/I2CServer/pkg/service/mux"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

// startServer runs a service with I2C1 port 0 and a PCA9548 at 0x70.
func startServer(t *testing.T) (*bridge.Virtual, *ipc.Endpoint) {
	hw := bridge.NewVirtual(zerolog.Nop())
	topo, err := topology.New(zerolog.Nop(), topology.Config{
		Controllers: []topology.ControllerConfig{{Controller: api.I2C1}},
		Ports:       []topology.PortConfig{{Controller: api.I2C1, Port: 0}},
		Muxes: []topology.MuxConfig{
			{Config: mux.Config{Controller: api.I2C1, Port: 0, ID: api.M1, Address: 0x70}, Driver: mux.PCA9548},
		},
	}, hw)
	require.NoError(t, err)
	ep := ipc.NewEndpoint("i2c", 4)
	svc, err := service.NewService(service.Config{}, service.Dependencies{
		Logger:   zerolog.Nop(),
		Endpoint: ep,
		Hardware: hw,
		Topology: topo,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hw, ep
}

var (
	direct = api.Device{Controller: api.I2C1, Port: 0, Address: 0x48}
	behind = api.Device{Controller: api.I2C1, Port: 0, Address: 0x20,
		Segment: &api.MuxSegment{Mux: api.M1, Segment: api.S4}}
)

func TestProbeAll(t *testing.T) {
	hw, ep := startServer(t)
	hw.SetMissing(api.I2C1, 0x20)
	p, err := New(Config{Devices: []api.Device{direct, behind}}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	require.NoError(t, err)

	err = p.ProbeAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, map[string]bool{
		direct.String(): true,
		behind.String(): false,
	}, p.Present())
	require.Len(t, hw.CallsTo(api.I2C1, 0x20), 1)
	assert.Equal(t, 1, hw.CallsTo(api.I2C1, 0x20)[0].ReadLen)

	hw.ClearFaults()
	hw.SetResponse(api.I2C1, 0x20, []byte{0})
	require.NoError(t, p.ProbeAll(context.Background()))
	assert.True(t, p.Present()[behind.String()])
}

func TestProbeInvalidDevice(t *testing.T) {
	_, ep := startServer(t)
	_, err := New(Config{Devices: []api.Device{{Controller: api.Controller(12)}}}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	assert.Error(t, err)
}

func TestProbeRun(t *testing.T) {
	hw, ep := startServer(t)
	p, err := New(Config{Interval: time.Millisecond, Devices: []api.Device{direct}}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(hw.CallsTo(api.I2C1, 0x48)) >= 3 }, time.Second*5, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestProbeServerRestarted(t *testing.T) {
	_, ep := startServer(t)
	p, err := New(Config{Devices: []api.Device{direct}}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	require.NoError(t, err)
	ep.Task().Restart()
	err = p.ProbeAll(context.Background())
	assert.Equal(t, client.ErrServerRestarted, errors.Cause(err))
}

func TestProbeNothing(t *testing.T) {
	_, ep := startServer(t)
	p, err := New(Config{}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, p.Interval)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestProbeRunStopsOnRestart(t *testing.T) {
	_, ep := startServer(t)
	p, err := New(Config{Devices: []api.Device{direct}}, zerolog.Nop(), client.NewConn(ep, ipc.NewTask("probe")))
	require.NoError(t, err)
	ep.Task().Restart()
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 5):
		t.Fatal("Run did not stop")
	}
}
