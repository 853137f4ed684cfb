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
package incr

import (
	"context"
	"fmt"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Limits bounds the work an engine is prepared to do for a single result.
type Limits struct {
	// MaxDeltaSize is the largest size (in expression nodes) permitted for
	// either half of a delta.  Larger deltas are reported as inefficient.
	MaxDeltaSize uint
	// MaxForkDepth is the largest number of nested case splits permitted when
	// resolving forks along a single path.
	MaxForkDepth uint
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{MaxDeltaSize: 100, MaxForkDepth: 6}
}

// Engine owns the state of a single incrementalization session: the oracle
// cache shared by all reasoning contexts, the session counters and a logger
// whose entries are tagged with the session identifier.  An engine can be
// used from multiple goroutines.
type Engine struct {
	limits  Limits
	cache   *solver.Cache
	metrics *solver.Metrics
	log     *log.Entry
}

// NewEngine constructs a fresh session, whose oracles search within given
// bounds.
func NewEngine(config solver.Config, limits Limits) *Engine {
	metrics := solver.NewMetrics()
	//
	return &Engine{
		limits:  limits,
		cache:   solver.NewCache(config, metrics),
		metrics: metrics,
		log:     log.WithField("session", uuid.NewString()),
	}
}

// Metrics returns the counters of this session.
func (p *Engine) Metrics() *solver.Metrics {
	return p.metrics
}

// Logger returns the logger of this session.
func (p *Engine) Logger() *log.Entry {
	return p.log
}

// Oracle returns the oracle used for a given reasoning context.
func (p *Engine) Oracle(scope contexts.Context) solver.Oracle {
	return p.cache.For(scope)
}

// BagDelta computes the elements added to, and removed from, a collection
// valued expression by a statement, assuming the given assumptions hold.  That
// is, e - removed + added equals the value of e after op.  Conditions which the
// oracle cannot decide are resolved into conditional expressions.
func (p *Engine) BagDelta(ctx context.Context, e syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, joinDeltas, func(a syntax.Exp) (Delta, error) {
		return t.checkedBagDelta(e, scope, op, a)
	})
}

// BetterMutate computes the value of a materialized expression after a
// statement executes, preferring closed forms over the previous value to
// recomputation.
func (p *Engine) BetterMutate(ctx context.Context, e *syntax.StateVar, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.betterMutate(e, scope, op, a)
	})
}

// BecameBool determines the condition under which a boolean expression, which
// currently evaluates to !val, evaluates to val after a statement executes.
func (p *Engine) BecameBool(ctx context.Context, e syntax.Exp, scope contexts.Context, op syntax.Stm, val bool,
	assumptions syntax.Exp) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.becameBool(e, scope, op, val, a)
	})
}

// Changed determines the condition under which the value of an expression is
// changed by a statement.
func (p *Engine) Changed(ctx context.Context, e syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.changed(e, scope, op, a)
	})
}

// Fork selects between two expressions based on a condition, which must be
// decided by the oracle under the given assumptions.  A *PendingError is
// returned when it cannot be.
func (p *Engine) Fork(ctx context.Context, scope contexts.Context, assumptions syntax.Exp, cond syntax.Exp,
	then syntax.Exp, els syntax.Exp) (syntax.Exp, error) {
	return fork(p.task(ctx), scope, assumptions, cond, then, els)
}

// ResolveForks evaluates a function under given assumptions.  Whenever the
// function reports a pending condition, it is evaluated again under each
// outcome of that condition, and the two results are joined into a
// conditional expression.
func (p *Engine) ResolveForks(ctx context.Context, assumptions syntax.Exp,
	fn func(syntax.Exp) (syntax.Exp, error)) (syntax.Exp, error) {
	return resolveForks(p.task(ctx), assumptions, syntax.NewCond, fn)
}

// Optimize simplifies an expression under a path condition, replacing
// subexpressions whose value the oracle can determine.
func (p *Engine) Optimize(ctx context.Context, e syntax.Exp, scope contexts.Context,
	pc syntax.Exp) (syntax.Exp, error) {
	return p.task(ctx).optimize(e, scope, pc)
}

// BagSubtract constructs the difference of two collections, simplified under
// the given assumptions.
func (p *Engine) BagSubtract(ctx context.Context, scope contexts.Context, assumptions syntax.Exp, e1 syntax.Exp,
	e2 syntax.Exp) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.bagSubtract(scope, a, e1, e2)
	})
}

// BagIntersection constructs the intersection of two collections, simplified
// under the given assumptions.
func (p *Engine) BagIntersection(ctx context.Context, scope contexts.Context, assumptions syntax.Exp, e1 syntax.Exp,
	e2 syntax.Exp) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.bagIntersection(scope, a, e1, e2)
	})
}

// FlatMap applies a collection valued function to every element of a
// collection, simplified under the given assumptions.
func (p *Engine) FlatMap(ctx context.Context, scope contexts.Context, assumptions syntax.Exp, e syntax.Exp,
	f *syntax.Lambda) (syntax.Exp, error) {
	t := p.task(ctx)
	//
	return resolveForks(t, assumptions, syntax.NewCond, func(a syntax.Exp) (syntax.Exp, error) {
		return t.flatMap(scope, a, e, f)
	})
}

func (p *Engine) task(ctx context.Context) *task {
	return &task{p, ctx}
}

// A task carries the engine, along with the context of the request currently
// being served.
type task struct {
	engine *Engine
	ctx    context.Context
}

func (p *task) valid(scope contexts.Context, f syntax.Exp) (bool, error) {
	return p.engine.cache.For(scope).Valid(p.ctx, f)
}

func (p *task) debug(format string, args ...any) {
	if log.IsLevelEnabled(log.DebugLevel) {
		p.engine.log.Debug(fmt.Sprintf(format, args...))
	}
}
