// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package solver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "incr"

// Metrics holds the counters of a single incrementalization session.  Each
// session registers its counters on a private registry, such that concurrent
// sessions do not interfere.
type Metrics struct {
	// Registry on which all counters are registered.
	Registry *prometheus.Registry
	// Queries counts oracle queries by kind (valid, satisfiable, satisfy).
	Queries *prometheus.CounterVec
	// CacheHits counts oracle queries answered without a search.
	CacheHits prometheus.Counter
	// Forks counts case splits introduced for undecidable conditions.
	Forks prometheus.Counter
	// Inefficient counts results rejected as too expensive to maintain.
	Inefficient prometheus.Counter
}

// NewMetrics constructs a fresh set of counters on a private registry.
func NewMetrics() *Metrics {
	var (
		registry = prometheus.NewRegistry()
		factory  = promauto.With(registry)
	)
	//
	return &Metrics{
		Registry: registry,
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "oracle_queries_total",
			Help:      "Number of oracle queries by kind.",
		}, []string{"kind"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "oracle_cache_hits_total",
			Help:      "Number of oracle queries answered from the cache.",
		}),
		Forks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fork_splits_total",
			Help:      "Number of case splits on undecided conditions.",
		}),
		Inefficient: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inefficient_total",
			Help:      "Number of results rejected as inefficient.",
		}),
	}
}
