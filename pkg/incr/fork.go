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
	"errors"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Decide a condition under given assumptions.  Structured conditions are
// decomposed before the oracle is consulted, and a *PendingError is returned
// for the first atomic condition which cannot be decided.
func (p *task) decide(scope contexts.Context, assumptions syntax.Exp, cond syntax.Exp) (bool, error) {
	switch c := cond.(type) {
	case *syntax.BoolLit:
		return c.Value, nil
	case *syntax.Unary:
		if c.Op == syntax.Not {
			b, err := p.decide(scope, assumptions, c.Arg)
			return !b, err
		}
	case *syntax.Binary:
		switch c.Op {
		case syntax.And:
			if b, err := p.decide(scope, assumptions, c.Lhs); err != nil || !b {
				return false, err
			}
			//
			return p.decide(scope, assumptions, c.Rhs)
		case syntax.Or:
			if b, err := p.decide(scope, assumptions, c.Lhs); err != nil || b {
				return b, err
			}
			//
			return p.decide(scope, assumptions, c.Rhs)
		}
	case *syntax.Cond:
		b, err := p.decide(scope, assumptions, c.Cond)
		if err != nil {
			return false, err
		} else if b {
			return p.decide(scope, assumptions, c.Then)
		}
		//
		return p.decide(scope, assumptions, c.Else)
	}
	//
	return p.decideAtom(scope, assumptions, cond)
}

func (p *task) decideAtom(scope contexts.Context, assumptions syntax.Exp, cond syntax.Exp) (bool, error) {
	// Conditions already split upon need no oracle
	for _, a := range conjuncts(assumptions) {
		if syntax.AlphaEquivalent(a, cond) {
			return true, nil
		} else if n, ok := a.(*syntax.Unary); ok && n.Op == syntax.Not && syntax.AlphaEquivalent(n.Arg, cond) {
			return false, nil
		}
	}
	//
	facts := syntax.All(contexts.PathCondition(scope), assumptions)
	//
	for _, outcome := range []bool{true, false} {
		goal := cond
		//
		if !outcome {
			goal = syntax.NewNot(cond)
		}
		//
		ok, err := p.valid(scope, syntax.NewImplies(facts, goal))
		//
		if errors.Is(err, solver.ErrBounds) {
			// Too large to decide, hence split on it.
			break
		} else if err != nil {
			return false, err
		} else if ok {
			return outcome, nil
		}
	}
	//
	return false, &PendingError{cond}
}

// Select between two values based on a condition.
func fork[T any](p *task, scope contexts.Context, assumptions syntax.Exp, cond syntax.Exp, then T, els T) (T, error) {
	b, err := p.decide(scope, assumptions, cond)
	//
	if err != nil {
		var zero T
		return zero, err
	} else if b {
		return then, nil
	}
	//
	return els, nil
}

// Evaluate fn under the given assumptions, splitting on any condition it
// reports as pending.  The number of nested splits along any one path is
// bounded, beyond which the result is reported as inefficient.
func resolveForks[T any](p *task, assumptions syntax.Exp, join func(syntax.Exp, T, T) T,
	fn func(syntax.Exp) (T, error)) (T, error) {
	return resolveForksAt(p, 0, assumptions, join, fn)
}

func resolveForksAt[T any](p *task, depth uint, assumptions syntax.Exp, join func(syntax.Exp, T, T) T,
	fn func(syntax.Exp) (T, error)) (T, error) {
	var (
		zero    T
		pending *PendingError
	)
	//
	result, err := fn(assumptions)
	//
	if !errors.As(err, &pending) {
		return result, err
	} else if depth >= p.engine.limits.MaxForkDepth {
		p.engine.metrics.Inefficient.Inc()
		return zero, &InefficientError{pending.Cond, "too many case splits"}
	}
	//
	p.engine.metrics.Forks.Inc()
	p.debug("forking on %s", syntax.Print(pending.Cond))
	//
	then, err := resolveForksAt(p, depth+1, syntax.All(assumptions, pending.Cond), join, fn)
	if err != nil {
		return zero, err
	}
	//
	els, err := resolveForksAt(p, depth+1, syntax.All(assumptions, syntax.NewNot(pending.Cond)), join, fn)
	if err != nil {
		return zero, err
	}
	//
	return join(pending.Cond, then, els), nil
}

// Break a formula into its top-level conjuncts.
func conjuncts(e syntax.Exp) []syntax.Exp {
	if b, ok := e.(*syntax.Binary); ok && b.Op == syntax.And {
		return append(conjuncts(b.Lhs), conjuncts(b.Rhs)...)
	} else if syntax.IsTrue(e) {
		return nil
	}
	//
	return []syntax.Exp{e}
}
