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
	"context"
	"sync"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/consensys/go-incr/pkg/util/collection/hash"
)

// Caching wraps an oracle, remembering the models it finds and the answers it
// gives.  Previously found models are tried before searching, since formulas
// issued for the same goal tend to share counterexamples.  Answers are
// memoized up to alpha-equivalence of formulas.
type Caching struct {
	inner   Oracle
	funcs   map[string]eval.Func
	metrics *Metrics
	// Protects fields below
	mu     sync.Mutex
	models []*Model
	sat    *hash.Map[syntax.Key, bool]
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Oracle = (*Caching)(nil)

// NewCaching wraps a given oracle with a cache.
func NewCaching(inner Oracle, funcs map[string]eval.Func, metrics *Metrics) *Caching {
	return &Caching{inner: inner, funcs: funcs, metrics: metrics, sat: hash.NewMap[syntax.Key, bool](64)}
}

// Valid implementation for Oracle interface.
func (p *Caching) Valid(ctx context.Context, f syntax.Exp) (bool, error) {
	p.metrics.Queries.WithLabelValues("valid").Inc()
	//
	if sat, err := p.satisfiable(ctx, syntax.NewNot(f)); err != nil || sat {
		return false, err
	} else if c, ok := p.inner.(Covering); ok {
		if err := c.Covers(f); err != nil {
			return false, err
		}
	}
	//
	return true, nil
}

// Satisfiable implementation for Oracle interface.
func (p *Caching) Satisfiable(ctx context.Context, f syntax.Exp) (bool, error) {
	p.metrics.Queries.WithLabelValues("satisfiable").Inc()
	return p.satisfiable(ctx, f)
}

// Satisfy implementation for Oracle interface.
func (p *Caching) Satisfy(ctx context.Context, f syntax.Exp) (*Model, error) {
	p.metrics.Queries.WithLabelValues("satisfy").Inc()
	//
	if m := p.lookupModel(f); m != nil {
		return m, nil
	}
	//
	m, err := p.inner.Satisfy(ctx, f)
	if err != nil {
		return nil, err
	}
	//
	p.record(f, m)
	//
	return m, nil
}

func (p *Caching) satisfiable(ctx context.Context, f syntax.Exp) (bool, error) {
	key := syntax.KeyOf(f)
	//
	p.mu.Lock()
	sat, ok := p.sat.Get(key)
	p.mu.Unlock()
	//
	if ok {
		p.metrics.CacheHits.Inc()
		return sat, nil
	} else if m := p.lookupModel(f); m != nil {
		p.metrics.CacheHits.Inc()
		p.record(f, m)
		//
		return true, nil
	}
	//
	m, err := p.inner.Satisfy(ctx, f)
	if err != nil {
		return false, err
	}
	//
	p.record(f, m)
	//
	return m != nil, nil
}

// Check whether any previously found model satisfies a given formula.
func (p *Caching) lookupModel(f syntax.Exp) *Model {
	p.mu.Lock()
	models := p.models
	p.mu.Unlock()
	//
	for _, m := range models {
		if !m.Binds(f) {
			continue
		}
		//
		if ok, err := eval.EvalBool(f, m.Env(p.funcs)); err == nil && ok {
			return m
		}
	}
	//
	return nil
}

// Record the outcome of a query, retaining any model found.
func (p *Caching) record(f syntax.Exp, m *Model) {
	p.mu.Lock()
	defer p.mu.Unlock()
	//
	p.sat.Insert(syntax.KeyOf(f), m != nil)
	//
	if m != nil && !containsModel(p.models, m) {
		p.models = append(p.models, &Model{m.Vars, m.Store})
	}
}

func containsModel(models []*Model, m *Model) bool {
	for _, n := range models {
		if len(n.Vars) == len(m.Vars) && sameBindings(n.Vars, m.Vars) {
			return true
		}
	}
	//
	return false
}

func sameBindings(v1 map[string]eval.Value, v2 map[string]eval.Value) bool {
	for k, v := range v1 {
		if w, ok := v2[k]; !ok || !eval.Equal(v, w) {
			return false
		}
	}
	//
	return true
}
