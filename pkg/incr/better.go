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

// Compute the value of a materialized expression after op, as an expression
// over the materialized state before op.
func (p *task) betterMutate(esv *syntax.StateVar, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	newE, err := Mutate(esv.Exp, op)
	if err != nil {
		return nil, err
	} else if syntax.AlphaEquivalent(esv.Exp, newE) {
		return esv, nil
	}
	//
	if syntax.IsCollection(esv.Type()) {
		d, err := p.checkedBagDelta(esv.Exp, scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		kept, err := p.bagSubtract(scope, assumptions, esv, d.Removed)
		if err != nil {
			return nil, err
		}
		//
		return BagUnion(kept, d.Added), nil
	}
	//
	switch e := esv.Exp.(type) {
	case *syntax.Unary:
		return p.betterMutateUnary(esv, e, scope, op, assumptions)
	case *syntax.Binary:
		lhs, err := p.betterMutate(stateVar(e.Lhs), scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		rhs, err := p.betterMutate(stateVar(e.Rhs), scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.Binary{Op: e.Op, Lhs: lhs, Rhs: rhs, T: e.T}, nil
	case *syntax.Call:
		args := make([]syntax.Exp, len(e.Args))
		//
		for i, arg := range e.Args {
			if args[i], err = p.betterMutate(stateVar(arg), scope, op, assumptions); err != nil {
				return nil, err
			}
		}
		//
		return &syntax.Call{Func: e.Func, Args: args, T: e.T}, nil
	case *syntax.Cond:
		return p.betterMutateCond(e, scope, op, assumptions)
	case *syntax.ArgMin:
		return p.betterMutateArgMin(esv, e, scope, op, assumptions)
	case *syntax.Var, *syntax.GetField, *syntax.TupleGet, *syntax.MapGet:
		// Nothing to reuse
		return newE, nil
	}
	//
	return nil, unsupported("incremental update of %s", syntax.Print(esv.Exp))
}

func (p *task) betterMutateUnary(esv *syntax.StateVar, e *syntax.Unary, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	switch e.Op {
	case syntax.Exists:
		d, err := p.checkedBagDelta(e.Arg, scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		size := syntax.NewBinary(syntax.Plus, syntax.NewStateVar(syntax.NewUnary(syntax.Len, e.Arg)), LenOf(d.Added))
		//
		return syntax.Simplify(syntax.NewBinary(syntax.Gt, size, LenOf(d.Removed))), nil
	case syntax.Len:
		d, err := p.checkedBagDelta(e.Arg, scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		size := syntax.NewBinary(syntax.Plus, esv, LenOf(d.Added))
		//
		return syntax.Simplify(syntax.NewBinary(syntax.Minus, size, LenOf(d.Removed))), nil
	case syntax.Not:
		arg, err := p.betterMutate(stateVar(e.Arg), scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		return syntax.NewNot(arg), nil
	case syntax.Neg, syntax.The, syntax.Sum, syntax.Empty:
		arg, err := p.betterMutate(stateVar(e.Arg), scope, op, assumptions)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.Unary{Op: e.Op, Arg: arg, T: e.T}, nil
	}
	//
	return nil, unsupported("incremental update of %s", syntax.Print(e))
}

// Each branch is only maintained along the transitions on which it is live.
func (p *task) betterMutateCond(e *syntax.Cond, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	then, err := p.betterMutate(stateVar(e.Then), scope, op, assumptions)
	if err != nil {
		return nil, err
	}
	//
	els, err := p.betterMutate(stateVar(e.Else), scope, op, assumptions)
	if err != nil {
		return nil, err
	}
	//
	becameFalse, err := p.becameBool(e.Cond, scope, op, false, assumptions)
	if err != nil {
		return nil, err
	}
	//
	becameTrue, err := p.becameBool(e.Cond, scope, op, true, assumptions)
	if err != nil {
		return nil, err
	}
	//
	cond := syntax.NewStateVar(e.Cond)
	//
	return syntax.NewCond(cond, syntax.NewCond(becameFalse, els, then), syntax.NewCond(becameTrue, then, els)), nil
}

// The new extremum is read off the materialized heap of the source when at
// most one element can be removed.
func (p *task) betterMutateArgMin(esv *syntax.StateVar, e *syntax.ArgMin, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	key := syntax.FreshenLambda(e.Key)
	//
	if body, err := Mutate(key.Body, op); err != nil {
		return nil, err
	} else if !syntax.AlphaEquivalent(body, key.Body) {
		p.engine.metrics.Inefficient.Inc()
		return nil, &InefficientError{e, "key function changed"}
	}
	//
	d, err := p.checkedBagDelta(&syntax.StateVar{Exp: e.Source}, scope, op, assumptions)
	if err != nil {
		return nil, err
	}
	//
	var (
		heap      = syntax.NewStateVar(&syntax.MakeHeap{Min: !e.Max, Source: e.Source, Key: e.Key})
		secondMin = &syntax.HeapPeek2{Heap: heap, Len: syntax.NewStateVar(syntax.NewUnary(syntax.Len, e.Source))}
	)
	//
	var minAfterDel syntax.Exp
	//
	if none, err := p.implied(scope, assumptions, isEmpty(d.Removed), syntax.NewUnary(syntax.Empty, d.Removed)); err != nil {
		return nil, err
	} else if none {
		minAfterDel = esv
	} else if one, err := p.implied(scope, assumptions, isSingleton(d.Removed),
		syntax.NewEq(syntax.NewUnary(syntax.Len, d.Removed), syntax.One)); err != nil {
		return nil, err
	} else if one {
		minAfterDel = syntax.NewCond(Equal(elemOf(d.Removed), esv), secondMin, esv)
	} else {
		p.engine.metrics.Inefficient.Inc()
		return nil, &InefficientError{e, "more than one element may be removed"}
	}
	//
	if definitely(isEmpty(d.Added)) {
		return minAfterDel, nil
	}
	// The previous extremum only competes when it survived
	remaining, err := p.bagSubtract(scope, assumptions, syntax.NewStateVar(e.Source), d.Removed)
	if err != nil {
		return nil, err
	}
	//
	t := e.Source.Type()
	survivor := syntax.NewCond(BagContains(remaining, minAfterDel), &syntax.Singleton{Elem: minAfterDel, T: t},
		syntax.NewEmpty(t))
	//
	return &syntax.ArgMin{Max: e.Max, Source: BagUnion(survivor, d.Added), Key: e.Key}, nil
}

// Check whether a fact holds under the given assumptions, consulting the
// oracle only when the structural answer is unknown.  Facts too large for the
// oracle are taken not to hold.
func (p *task) implied(scope contexts.Context, assumptions syntax.Exp, structural Maybe,
	fact syntax.Exp) (bool, error) {
	switch structural {
	case Yes:
		return true, nil
	case No:
		return false, nil
	}
	//
	ok, err := p.valid(scope, syntax.NewImplies(syntax.All(contexts.PathCondition(scope), assumptions), fact))
	//
	if errors.Is(err, solver.ErrBounds) {
		return false, nil
	}
	//
	return ok, err
}

func elemOf(e syntax.Exp) syntax.Exp {
	if s, ok := e.(*syntax.Singleton); ok {
		return s.Elem
	}
	//
	return syntax.NewUnary(syntax.The, e)
}

func stateVar(e syntax.Exp) *syntax.StateVar {
	if sv, ok := e.(*syntax.StateVar); ok {
		return sv
	}
	//
	return &syntax.StateVar{Exp: e}
}
