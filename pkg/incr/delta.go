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
	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Delta describes the change to a collection as the elements added to it and
// the elements removed from it.
type Delta struct {
	Added   syntax.Exp
	Removed syntax.Exp
}

func emptyDelta(t syntax.Type) Delta {
	return Delta{syntax.NewEmpty(t), syntax.NewEmpty(t)}
}

func joinDeltas(cond syntax.Exp, then Delta, els Delta) Delta {
	return Delta{syntax.NewCond(cond, then.Added, els.Added), syntax.NewCond(cond, then.Removed, els.Removed)}
}

// Compute the delta of a collection, and reject it if either half exceeds the
// configured size limit.
func (p *task) checkedBagDelta(e syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	d, err := p.bagDelta(e, scope, op, assumptions)
	if err != nil {
		return d, err
	}
	//
	limit := p.engine.limits.MaxDeltaSize
	//
	if syntax.Size(d.Added) > limit || syntax.Size(d.Removed) > limit {
		p.engine.metrics.Inefficient.Inc()
		return d, &InefficientError{e, "delta exceeds size limit"}
	}
	//
	p.debug("delta %s: +%s, -%s", syntax.Print(e), syntax.Print(d.Added), syntax.Print(d.Removed))
	//
	return d, nil
}

func (p *task) bagDelta(e syntax.Exp, scope contexts.Context, op syntax.Stm, assumptions syntax.Exp) (Delta, error) {
	newE, err := Mutate(e, op)
	if err != nil {
		return Delta{}, err
	} else if syntax.AlphaEquivalent(e, newE) {
		return emptyDelta(e.Type()), nil
	}
	//
	switch e := e.(type) {
	case *syntax.StateVar:
		return p.checkedBagDelta(e.Exp, scope, op, assumptions)
	case *syntax.Map:
		t := e.Type()
		f := syntax.NewLambda(e.F.Arg, &syntax.Singleton{Elem: e.F.Body, T: t})
		//
		return p.flatMapDelta(&syntax.FlatMap{Source: e.Source, F: f}, scope, op, assumptions)
	case *syntax.Filter:
		t := e.Type()
		f := syntax.NewLambda(e.P.Arg, syntax.NewCond(e.P.Body, &syntax.Singleton{Elem: e.P.Arg, T: t}, syntax.NewEmpty(t)))
		//
		return p.flatMapDelta(&syntax.FlatMap{Source: e.Source, F: f}, scope, op, assumptions)
	case *syntax.FlatMap:
		return p.flatMapDelta(e, scope, op, assumptions)
	case *syntax.Binary:
		return p.binaryDelta(e, newE, scope, op, assumptions)
	case *syntax.Unary:
		if e.Op == syntax.Distinct {
			return p.distinctDelta(e, scope, op, assumptions)
		}
	case *syntax.Singleton:
		return p.singletonDelta(e, scope, op, assumptions)
	case *syntax.EmptyBag:
		return emptyDelta(e.T), nil
	case *syntax.Cond:
		return p.condDelta(e, scope, op, assumptions)
	case *syntax.Var, *syntax.GetField, *syntax.TupleGet, *syntax.Call, *syntax.MapGet, *syntax.MapKeys:
		return p.valueDelta(e, newE, scope, assumptions)
	}
	//
	return Delta{}, unsupported("delta of %s", syntax.Print(e))
}

// The delta of flatmap(xs, f) combines the delta of xs with that of the body
// of f, for those elements of xs which survive.
func (p *task) flatMapDelta(e *syntax.FlatMap, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	var (
		arg   = syntax.Fresh(e.F.Arg.T, "v")
		body  = e.F.Apply(arg)
		xs    = e.Source
		inner = contexts.NewUnderBinder(scope, arg, xs, contexts.Runtime)
		empty = syntax.NewEmpty(e.Type())
	)
	//
	dxs, err := p.checkedBagDelta(xs, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	dys, err := resolveForks(p, assumptions, joinDeltas, func(a syntax.Exp) (Delta, error) {
		return p.checkedBagDelta(body, inner, op, a)
	})
	if err != nil {
		return Delta{}, err
	}
	//
	newBody, err := Mutate(body, op)
	if err != nil {
		return Delta{}, err
	}
	//
	survivors, err := p.bagSubtract(scope, assumptions, xs, dxs.Removed)
	if err != nil {
		return Delta{}, err
	}
	// Removed from xs under the old function, and removed by the function from
	// elements which survive.
	r1, err := p.flatMap(scope, assumptions, dxs.Removed, e.F)
	if err != nil {
		return Delta{}, err
	}
	//
	r2, err := p.flatMap(scope, assumptions, survivors, syntax.NewLambda(arg, dys.Removed))
	if err != nil {
		return Delta{}, err
	}
	// Added to xs under the new function, and added by the function to
	// elements which survive.
	a1, err := p.flatMap(scope, assumptions, dxs.Added, syntax.NewLambda(arg, newBody))
	if err != nil {
		return Delta{}, err
	}
	//
	a2, err := p.flatMap(scope, assumptions, survivors, syntax.NewLambda(arg, dys.Added))
	if err != nil {
		return Delta{}, err
	}
	//
	added, removed := BagUnion(a1, a2), BagUnion(r1, r2)
	//
	if syntax.AlphaEquivalent(added, removed) {
		return Delta{empty, empty}, nil
	}
	//
	return p.cancel(scope, assumptions, added, removed)
}

// Cancel elements which are both added and removed.
func (p *task) cancel(scope contexts.Context, assumptions syntax.Exp, added syntax.Exp,
	removed syntax.Exp) (Delta, error) {
	if syntax.IsEmptyBag(added) || syntax.IsEmptyBag(removed) {
		return Delta{added, removed}, nil
	}
	//
	i, err := p.bagIntersection(scope, assumptions, removed, added)
	if err != nil {
		return Delta{}, err
	}
	//
	if added, err = p.bagSubtract(scope, assumptions, added, i); err != nil {
		return Delta{}, err
	} else if removed, err = p.bagSubtract(scope, assumptions, removed, i); err != nil {
		return Delta{}, err
	}
	//
	return Delta{added, removed}, nil
}

func (p *task) binaryDelta(e *syntax.Binary, newE syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	if e.Op == syntax.Minus {
		return p.differenceDelta(e, newE, scope, op, assumptions)
	} else if e.Op != syntax.Plus {
		return p.valueDelta(e, newE, scope, assumptions)
	}
	//
	d1, err := p.checkedBagDelta(e.Lhs, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	d2, err := p.checkedBagDelta(e.Rhs, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	return Delta{BagUnion(d1.Added, d2.Added), BagUnion(d1.Removed, d2.Removed)}, nil
}

// Differences clamp at zero, hence the deltas of a - b only compose when b is
// contained in a both before and after op.  Otherwise the delta is read off
// the new value.
func (p *task) differenceDelta(e *syntax.Binary, newE syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	newLhs, err := Mutate(e.Lhs, op)
	if err != nil {
		return Delta{}, err
	}
	//
	newRhs, err := Mutate(e.Rhs, op)
	if err != nil {
		return Delta{}, err
	}
	//
	for _, pair := range [][2]syntax.Exp{{e.Rhs, e.Lhs}, {newRhs, newLhs}} {
		contained := syntax.NewUnary(syntax.Empty, syntax.NewBinary(syntax.Minus, pair[0], pair[1]))
		//
		if ok, err := p.implied(scope, assumptions, subsetOf(pair[0], pair[1]), contained); err != nil {
			return Delta{}, err
		} else if !ok {
			return p.valueDelta(e, newE, scope, assumptions)
		}
	}
	//
	d1, err := p.checkedBagDelta(e.Lhs, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	d2, err := p.checkedBagDelta(e.Rhs, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	// Elements leaving b rejoin the difference, those entering b leave it.
	return p.cancel(scope, assumptions, BagUnion(d1.Added, d2.Removed), BagUnion(d1.Removed, d2.Added))
}

// An element enters the distinct view when first added, and leaves it when
// its last occurrence is removed.
func (p *task) distinctDelta(e *syntax.Unary, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	d, err := p.checkedBagDelta(e.Arg, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	var (
		elem    = syntax.ElemType(e.Type())
		added   = EDistinct(d.Added)
		removed = EDistinct(d.Removed)
	)
	//
	if !syntax.IsEmptyBag(d.Added) {
		x := syntax.Fresh(elem, "x")
		added = EFilter(added, syntax.NewLambda(x, syntax.NewNot(syntax.NewBinary(syntax.In, x, e.Arg))))
	}
	//
	if !syntax.IsEmptyBag(d.Removed) {
		x := syntax.Fresh(elem, "x")
		last := syntax.NewEq(syntax.NewBinary(syntax.Count, x, e.Arg), syntax.One)
		//
		if !definitely(areUnique(e.Arg)) {
			last = syntax.NewBinary(syntax.Le, syntax.NewBinary(syntax.Count, x, e.Arg),
				syntax.NewBinary(syntax.Count, x, d.Removed))
		}
		//
		if !syntax.IsEmptyBag(d.Added) {
			last = syntax.All(last, syntax.NewNot(syntax.NewBinary(syntax.In, x, d.Added)))
		}
		//
		removed = EFilter(removed, syntax.NewLambda(x, last))
	}
	//
	return Delta{added, removed}, nil
}

func (p *task) singletonDelta(e *syntax.Singleton, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (Delta, error) {
	elem, err := p.betterMutate(stateVar(e.Elem), scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	} else if syntax.AlphaEquivalent(e.Elem, syntax.StripStateVar(elem)) {
		return emptyDelta(e.T), nil
	}
	//
	return fork(p, scope, assumptions, Equal(e.Elem, elem), emptyDelta(e.T),
		Delta{&syntax.Singleton{Elem: elem, T: e.T}, e})
}

func (p *task) condDelta(e *syntax.Cond, scope contexts.Context, op syntax.Stm, assumptions syntax.Exp) (Delta, error) {
	d1, err := p.checkedBagDelta(e.Then, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	d2, err := p.checkedBagDelta(e.Else, scope, op, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	newCond, err := Mutate(e.Cond, op)
	if err != nil {
		return Delta{}, err
	} else if syntax.AlphaEquivalent(newCond, e.Cond) {
		return joinDeltas(e.Cond, d1, d2), nil
	}
	// The condition may change, hence consider each transition separately.
	becameFalse, err := p.becameBool(e.Cond, scope, op, false, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	becameTrue, err := p.becameBool(e.Cond, scope, op, true, assumptions)
	if err != nil {
		return Delta{}, err
	}
	//
	newThen, err := Mutate(e.Then, op)
	if err != nil {
		return Delta{}, err
	}
	//
	newElse, err := Mutate(e.Else, op)
	if err != nil {
		return Delta{}, err
	}
	//
	toElse, err := p.swapDelta(scope, assumptions, e.Then, newElse)
	if err != nil {
		return Delta{}, err
	}
	//
	toThen, err := p.swapDelta(scope, assumptions, e.Else, newThen)
	if err != nil {
		return Delta{}, err
	}
	//
	return joinDeltas(e.Cond, joinDeltas(becameFalse, toElse, d1), joinDeltas(becameTrue, toThen, d2)), nil
}

// The delta from one collection to an entirely different one.
func (p *task) swapDelta(scope contexts.Context, assumptions syntax.Exp, from syntax.Exp,
	to syntax.Exp) (Delta, error) {
	added, err := p.bagSubtract(scope, assumptions, to, from)
	if err != nil {
		return Delta{}, err
	}
	//
	removed, err := p.bagSubtract(scope, assumptions, from, to)
	if err != nil {
		return Delta{}, err
	}
	//
	return Delta{added, removed}, nil
}

// The delta of an opaque collection value, read off from its new value.
func (p *task) valueDelta(e syntax.Exp, newE syntax.Exp, scope contexts.Context, assumptions syntax.Exp) (Delta, error) {
	if b, ok := newE.(*syntax.Binary); ok {
		switch {
		case b.Op == syntax.Plus && syntax.AlphaEquivalent(b.Lhs, e):
			// e + n
			return Delta{b.Rhs, syntax.NewEmpty(e.Type())}, nil
		case b.Op == syntax.Minus && syntax.AlphaEquivalent(b.Lhs, e):
			// e - d
			removed, err := p.presentIn(scope, assumptions, e, b.Rhs)
			//
			return Delta{syntax.NewEmpty(e.Type()), removed}, err
		case b.Op == syntax.Plus && isDifferenceOf(b.Lhs, e):
			// (e - d) + n
			removed, err := p.presentIn(scope, assumptions, e, b.Lhs.(*syntax.Binary).Rhs)
			//
			return Delta{b.Rhs, removed}, err
		}
	}
	//
	return p.swapDelta(scope, assumptions, e, newE)
}

// Restrict the elements removed from a collection to those actually present,
// such that removed elements are always drawn from the collection.
func (p *task) presentIn(scope contexts.Context, assumptions syntax.Exp, e syntax.Exp,
	removed syntax.Exp) (syntax.Exp, error) {
	switch r := removed.(type) {
	case *syntax.EmptyBag:
		return r, nil
	case *syntax.Singleton:
		return fork(p, scope, assumptions, BagContains(e, r.Elem), removed, syntax.Exp(syntax.NewEmpty(e.Type())))
	}
	//
	return p.bagIntersection(scope, assumptions, removed, e)
}

func isDifferenceOf(e syntax.Exp, of syntax.Exp) bool {
	b, ok := e.(*syntax.Binary)
	return ok && b.Op == syntax.Minus && syntax.AlphaEquivalent(b.Lhs, of)
}
