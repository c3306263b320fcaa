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
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

const (
	// Number of recovery events kept for /recoveries.
	maxRecoveries = 32
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	Port int
}

// StatusProvider is implemented by the I2C service.
type StatusProvider interface {
	Status(ctx context.Context) (service.Status, error)
}

// RecoverySource is implemented by the topology.
type RecoverySource interface {
	OnRecovery(cb func(topology.RecoveryEvent)) context.CancelFunc
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log    zerolog.Logger
	status StatusProvider

	mutex      sync.Mutex
	recoveries []topology.RecoveryEvent
	unsub      context.CancelFunc
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, status StatusProvider, recoveries RecoverySource) *Server {
	s := &Server{
		Config: cfg,
		log:    log.With().Str("component", "server").Logger(),
		status: status,
	}
	if recoveries != nil {
		s.unsub = recoveries.OnRecovery(s.addRecovery)
	}
	return s
}

func (s *Server) addRecovery(ev topology.RecoveryEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.recoveries = append(s.recoveries, ev)
	if len(s.recoveries) > maxRecoveries {
		s.recoveries = s.recoveries[len(s.recoveries)-maxRecoveries:]
	}
}

// Recoveries returns the most recent recovery events, oldest first.
func (s *Server) Recoveries() []topology.RecoveryEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]topology.RecoveryEvent(nil), s.recoveries...)
}

// Close stops collecting recovery events.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// router builds the HTTP router.
func (s *Server) router() *echo.Echo {
	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/recoveries", s.handleRecoveries)
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	r.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	return r
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", addr)
	}
	srv := http.Server{
		Handler: s.router(),
	}

	log.Debug().Str("address", addr).Msg("Serving HTTP")
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
		log.Debug().Str("address", addr).Msg("Done Serving HTTP")
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "failed to serve HTTP server")
		}
	}

	log.Info().Msg("Closing server")
	srv.Shutdown(context.Background())
	return nil
}
