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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustRegister(t *testing.T) {
	c := MustRegisterCounter("test", "counter_total", "Test counter")
	c.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(c))

	cv := MustRegisterCounterVec("test", "counter_vec_total", "Test counter vec", "code")
	cv.WithLabelValues("NoDevice").Add(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(cv.WithLabelValues("NoDevice")))

	g := MustRegisterGauge("test", "gauge", "Test gauge")
	g.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(g))

	gv := MustRegisterGaugeVec("test", "gauge_vec", "Test gauge vec", "bus")
	gv.WithLabelValues("I2C1:0").Set(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(gv.WithLabelValues("I2C1:0")))

	assert.Panics(t, func() { MustRegisterCounter("test", "counter_total", "Duplicate") })
}
