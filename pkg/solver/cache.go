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
	"fmt"
	"sync"

	"github.com/consensys/go-incr/pkg/contexts"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Cache provides one oracle per reasoning context, keyed by the structural
// identity of contexts.  Oracles are created on first use, and shared by all
// subsequent (and concurrent) requests for the same context.
type Cache struct {
	config  Config
	metrics *Metrics
	group   singleflight.Group
	// Protects oracles
	mu      sync.RWMutex
	oracles map[string]Oracle
}

// NewCache constructs an empty cache, whose oracles search within given bounds
// and report to given metrics.
func NewCache(config Config, metrics *Metrics) *Cache {
	return &Cache{config: config, metrics: metrics, oracles: make(map[string]Oracle)}
}

// For returns the oracle for a given context, creating it if necessary.
func (p *Cache) For(ctx contexts.Context) Oracle {
	key := ctx.Key()
	//
	p.mu.RLock()
	oracle, ok := p.oracles[key]
	p.mu.RUnlock()
	//
	if ok {
		return oracle
	}
	//
	result, _, _ := p.group.Do(key, func() (any, error) {
		// Double check, since another request may have just finished.
		p.mu.RLock()
		oracle, ok := p.oracles[key]
		p.mu.RUnlock()
		//
		if ok {
			return oracle, nil
		}
		//
		log.Debug(fmt.Sprintf("creating oracle for %s", key))
		//
		oracle = NewCaching(NewBounded(p.config, ctx.Funcs()), ctx.Funcs(), p.metrics)
		//
		p.mu.Lock()
		p.oracles[key] = oracle
		p.mu.Unlock()
		//
		return oracle, nil
	})
	//
	return result.(Oracle)
}

// Len returns the number of oracles created so far.
func (p *Cache) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	//
	return len(p.oracles)
}
