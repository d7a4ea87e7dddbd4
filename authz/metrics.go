// Copyright 2026 The OpenTrusty Authors
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

package authz

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records evaluation outcomes for operational visibility. A nil
// *Metrics is valid everywhere it's used — Service works fine without one.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics builds a Metrics and, if reg is non-nil, registers it. Passing
// the same reg across multiple Services is fine; the counter is keyed by
// outcome only, not by service instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opentrusty",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Count of permission checks by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		if err := reg.Register(m.decisions); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
			m.decisions = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return m
}

func (m *Metrics) recordDecision(allowed, legacy bool) {
	if m == nil {
		return
	}
	switch {
	case legacy:
		m.decisions.WithLabelValues("legacy").Inc()
	case allowed:
		m.decisions.WithLabelValues("allow").Inc()
	default:
		m.decisions.WithLabelValues("deny").Inc()
	}
}

func (m *Metrics) recordRejected() {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues("rejected").Inc()
}
