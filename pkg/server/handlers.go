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
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/binkynet/I2CServer/pkg/service"
	"github.com/binkynet/I2CServer/pkg/service/topology"
)

const (
	statusTimeout = time.Second * 2
)

type statusResponse struct {
	service.Status
	Started string `json:"started"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// handleStatus returns the state of all buses, muxes and slaves.
func (s *Server) handleStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), statusTimeout)
	defer cancel()
	st, err := s.status.Status(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("Status failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, statusResponse{
		Status:  st,
		Started: humanize.Time(st.StartedAt),
	})
}

// handleRecoveries returns the most recent bus recoveries.
func (s *Server) handleRecoveries(c echo.Context) error {
	list := s.Recoveries()
	if list == nil {
		list = []topology.RecoveryEvent{}
	}
	return c.JSON(http.StatusOK, list)
}
