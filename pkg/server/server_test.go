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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/I2CServer/pkg/api"
	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

type fakeStatus struct {
	status service.Status
	err    error
}

func (f fakeStatus) Status(ctx context.Context) (service.Status, error) {
	return f.status, f.err
}

type fakeRecoveries struct {
	cb func(topology.RecoveryEvent)
}

func (f *fakeRecoveries) OnRecovery(cb func(topology.RecoveryEvent)) context.CancelFunc {
	f.cb = cb
	return func() { f.cb = nil }
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s := New(Config{}, zerolog.Nop(), fakeStatus{status: service.Status{
		StartedAt:  time.Now().Add(-time.Hour),
		Requests:   12,
		Recoveries: 3,
		Ports:      map[string]uint8{"I2C1": 0},
		Muxes:      map[string]string{"I2C1:0": "enabled(M1:S2)"},
	}}, nil)

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(12), body["requests"])
	assert.Equal(t, float64(3), body["recoveries"])
	assert.Equal(t, "1 hour ago", body["started"])
	assert.Equal(t, map[string]interface{}{"I2C1:0": "enabled(M1:S2)"}, body["muxes"])
}

func TestStatusUnavailable(t *testing.T) {
	s := New(Config{}, zerolog.Nop(), fakeStatus{err: errors.New("stopped")}, nil)
	rec := get(t, s, "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	s := New(Config{}, zerolog.Nop(), fakeStatus{}, nil)
	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRecoveries(t *testing.T) {
	src := &fakeRecoveries{}
	s := New(Config{}, zerolog.Nop(), fakeStatus{}, src)
	require.NotNil(t, src.cb)

	rec := get(t, s, "/recoveries")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	for i := 0; i < maxRecoveries+3; i++ {
		src.cb(topology.RecoveryEvent{
			Bus:    topology.Bus{Controller: api.I2C1, Port: api.PortIndex(i % 2)},
			Code:   api.BusLocked,
			Reason: api.BusLocked.String(),
		})
	}
	list := s.Recoveries()
	assert.Len(t, list, maxRecoveries)
	assert.Equal(t, api.PortIndex(1), list[0].Bus.Port)

	rec = get(t, s, "/recoveries")
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, maxRecoveries)
	assert.Equal(t, "I2C1:1", body[0]["bus"])
	assert.Equal(t, "BusLocked", body[0]["reason"])
}

func TestRun(t *testing.T) {
	src := &fakeRecoveries{}
	s := New(Config{Host: "127.0.0.1", Port: 0}, zerolog.Nop(), fakeStatus{}, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 5):
		t.Fatal("Run did not stop")
	}
	assert.NotNil(t, src.cb)
	s.Close()
	assert.Nil(t, src.cb)
}
