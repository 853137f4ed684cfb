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

// ===================================================================
// Canonicalising constructors
// ===================================================================

// BagUnion constructs the union of two collections, eliding empty operands.
func BagUnion(e1 syntax.Exp, e2 syntax.Exp) syntax.Exp {
	if syntax.IsEmptyBag(e1) {
		return e2
	} else if syntax.IsEmptyBag(e2) {
		return e1
	}
	//
	return &syntax.Binary{Op: syntax.Plus, Lhs: e1, Rhs: e2, T: e1.Type()}
}

// EMap applies a function to every element of a collection, pushing the
// function through unions, singletons, conditionals and nested maps.
func EMap(e syntax.Exp, f *syntax.Lambda) syntax.Exp {
	if f.IsIdentity() {
		return e
	}
	//
	t := syntax.BagOf(f.Body.Type())
	//
	switch e := e.(type) {
	case *syntax.EmptyBag:
		return syntax.NewEmpty(t)
	case *syntax.Singleton:
		return &syntax.Singleton{Elem: f.Apply(e.Elem), T: t}
	case *syntax.Binary:
		if e.Op == syntax.Plus {
			return BagUnion(EMap(e.Lhs, f), EMap(e.Rhs, f))
		}
	case *syntax.Map:
		return EMap(e.Source, compose(f, e.F))
	case *syntax.Cond:
		return syntax.NewCond(e.Cond, EMap(e.Then, f), EMap(e.Else, f))
	}
	//
	return &syntax.Map{Source: e, F: f}
}

// EFilter retains the elements of a collection satisfying a predicate, pushing
// the predicate through unions, singletons and maps.
func EFilter(e syntax.Exp, p *syntax.Lambda) syntax.Exp {
	if syntax.IsTrue(p.Body) {
		return e
	} else if syntax.IsFalse(p.Body) {
		return syntax.NewEmpty(e.Type())
	}
	//
	switch e := e.(type) {
	case *syntax.EmptyBag:
		return e
	case *syntax.Singleton:
		return syntax.NewCond(syntax.Simplify(p.Apply(e.Elem)), e, syntax.NewEmpty(e.Type()))
	case *syntax.Binary:
		if e.Op == syntax.Plus {
			return BagUnion(EFilter(e.Lhs, p), EFilter(e.Rhs, p))
		}
	case *syntax.Map:
		// filter(map(xs, f), p) = map(filter(xs, p . f), f)
		return EMap(EFilter(e.Source, compose(p, e.F)), e.F)
	}
	//
	return &syntax.Filter{Source: e, P: p}
}

// EDistinct removes duplicates from a collection, unless it is known to hold
// at most one element.
func EDistinct(e syntax.Exp) syntax.Exp {
	if definitely(singletonOrEmpty(e)) {
		return e
	}
	//
	return syntax.NewUnary(syntax.Distinct, e)
}

// Equal constructs an equality, comparing record constructions field by field.
func Equal(e1 syntax.Exp, e2 syntax.Exp) syntax.Exp {
	r1, ok1 := e1.(*syntax.MakeRecord)
	r2, ok2 := e2.(*syntax.MakeRecord)
	//
	if ok1 && ok2 && len(r1.Fields) == len(r2.Fields) {
		eqs := make([]syntax.Exp, len(r1.Fields))
		//
		for i, f := range r1.Fields {
			eqs[i] = syntax.Simplify(Equal(f.Value, r2.Fields[i].Value))
		}
		//
		return syntax.All(eqs...)
	}
	//
	return syntax.NewEq(e1, e2)
}

// Exists constructs a test for whether a collection is non-empty.
func Exists(e syntax.Exp) syntax.Exp {
	if definitely(isEmpty(e)) {
		return syntax.False
	} else if definitely(isSingleton(e)) {
		return syntax.True
	}
	//
	switch e := e.(type) {
	case *syntax.Binary:
		if e.Op == syntax.Plus {
			return syntax.AnyOf(Exists(e.Lhs), Exists(e.Rhs))
		}
	case *syntax.Cond:
		return syntax.NewCond(e.Cond, Exists(e.Then), Exists(e.Else))
	}
	//
	return syntax.NewUnary(syntax.Exists, e)
}

// LenOf constructs the number of elements in a collection.
func LenOf(e syntax.Exp) syntax.Exp {
	if definitely(singletonOrEmpty(e)) {
		return syntax.NewCond(Exists(e), syntax.One, syntax.Zero)
	}
	//
	switch e := e.(type) {
	case *syntax.Map:
		return LenOf(e.Source)
	case *syntax.Cond:
		return syntax.NewCond(e.Cond, LenOf(e.Then), LenOf(e.Else))
	}
	//
	return syntax.NewUnary(syntax.Len, e)
}

// BagContains constructs a test for whether x is an element of a collection.
func BagContains(bag syntax.Exp, x syntax.Exp) syntax.Exp {
	if definitely(elementOf(x, bag)) {
		return syntax.True
	}
	//
	switch bag := bag.(type) {
	case *syntax.Filter:
		return syntax.All(BagContains(bag.Source, x), bag.P.Apply(x))
	case *syntax.Singleton:
		return Equal(bag.Elem, x)
	}
	//
	return syntax.NewBinary(syntax.In, x, bag)
}

// Construct x >= y, for integer expressions.
func ge(x syntax.Exp, y syntax.Exp) syntax.Exp {
	if c, ok := x.(*syntax.Cond); ok {
		return syntax.NewCond(c.Cond, ge(c.Then, y), ge(c.Else, y))
	} else if c, ok := y.(*syntax.Cond); ok {
		return syntax.NewCond(c.Cond, ge(x, c.Then), ge(x, c.Else))
	} else if definitely(nonnegative(x)) && isZero(y) {
		return syntax.True
	} else if u, ok := y.(*syntax.Unary); ok && u.Op == syntax.Len && isZero(x) {
		return syntax.NewNot(Exists(u.Arg))
	}
	//
	return syntax.Simplify(syntax.NewBinary(syntax.Ge, x, y))
}

func isZero(e syntax.Exp) bool {
	n, ok := e.(*syntax.NumLit)
	return ok && n.Value == 0
}

// Compose two lambdas, giving x => f(g(x)).
func compose(f *syntax.Lambda, g *syntax.Lambda) *syntax.Lambda {
	return syntax.NewLambda(g.Arg, f.Apply(g.Body))
}

// ===================================================================
// Oracle guided constructors
// ===================================================================

// flatMap applies a collection valued function to every element of a
// collection.  Conditionals arising from the function are decided by the
// oracle where possible.
func (p *task) flatMap(scope contexts.Context, assumptions syntax.Exp, e syntax.Exp,
	f *syntax.Lambda) (syntax.Exp, error) {
	if s, ok := f.Body.(*syntax.Singleton); ok && syntax.AlphaEquivalent(s.Elem, f.Arg) {
		return e, nil
	} else if syntax.IsEmptyBag(e) || syntax.IsEmptyBag(f.Body) {
		return syntax.NewEmpty(f.Body.Type()), nil
	}
	//
	switch e := e.(type) {
	case *syntax.Singleton:
		res := syntax.Simplify(f.Apply(e.Elem))
		//
		if c, ok := res.(*syntax.Cond); ok {
			return fork(p, scope, assumptions, c.Cond, c.Then, c.Else)
		}
		//
		return res, nil
	case *syntax.Binary:
		if e.Op == syntax.Plus {
			lhs, err := p.flatMap(scope, assumptions, e.Lhs, f)
			if err != nil {
				return nil, err
			}
			//
			rhs, err := p.flatMap(scope, assumptions, e.Rhs, f)
			if err != nil {
				return nil, err
			}
			//
			return BagUnion(lhs, rhs), nil
		}
	case *syntax.Cond:
		if b, err := p.decide(scope, assumptions, e.Cond); err != nil {
			return nil, err
		} else if b {
			return p.flatMap(scope, assumptions, e.Then, f)
		}
		//
		return p.flatMap(scope, assumptions, e.Else, f)
	}
	//
	return &syntax.FlatMap{Source: e, F: f}, nil
}

// bagIntersection constructs the multiset intersection of two collections.
func (p *task) bagIntersection(scope contexts.Context, assumptions syntax.Exp, e1 syntax.Exp,
	e2 syntax.Exp) (syntax.Exp, error) {
	if syntax.IsEmptyBag(e1) {
		return e1, nil
	} else if syntax.IsEmptyBag(e2) {
		return e2, nil
	}
	//
	if c, ok := e1.(*syntax.Cond); ok {
		return p.branch(scope, assumptions, c.Cond, func(then bool) (syntax.Exp, error) {
			return p.bagIntersection(scope, assumptions, pick(c, then), e2)
		})
	} else if c, ok := e2.(*syntax.Cond); ok {
		return p.branch(scope, assumptions, c.Cond, func(then bool) (syntax.Exp, error) {
			return p.bagIntersection(scope, assumptions, e1, pick(c, then))
		})
	}
	//
	s1, ok1 := e1.(*syntax.Singleton)
	s2, ok2 := e2.(*syntax.Singleton)
	//
	switch {
	case ok1 && ok2:
		return fork(p, scope, assumptions, Equal(s1.Elem, s2.Elem), e1, syntax.Exp(syntax.NewEmpty(e1.Type())))
	case isFilter(e1):
		// filter(a, p) & b == filter(a & b, p)
		f := e1.(*syntax.Filter)
		//
		i, err := p.bagIntersection(scope, assumptions, f.Source, e2)
		if err != nil {
			return nil, err
		}
		//
		return EFilter(i, f.P), nil
	case isFilter(e2):
		f := e2.(*syntax.Filter)
		//
		i, err := p.bagIntersection(scope, assumptions, e1, f.Source)
		if err != nil {
			return nil, err
		}
		//
		return EFilter(i, f.P), nil
	}
	//
	return &syntax.Binary{Op: syntax.Intersect, Lhs: e1, Rhs: e2, T: e1.Type()}, nil
}

// bagSubtract constructs the multiset difference of two collections, removing
// one occurrence from e1 for each element of e2.
func (p *task) bagSubtract(scope contexts.Context, assumptions syntax.Exp, e1 syntax.Exp,
	e2 syntax.Exp) (syntax.Exp, error) {
	if syntax.IsEmptyBag(e1) || syntax.IsEmptyBag(e2) {
		return e1, nil
	} else if syntax.AlphaEquivalent(e1, e2) {
		return syntax.NewEmpty(e1.Type()), nil
	}
	//
	if c, ok := e2.(*syntax.Cond); ok {
		return p.branch(scope, assumptions, c.Cond, func(then bool) (syntax.Exp, error) {
			return p.bagSubtract(scope, assumptions, e1, pick(c, then))
		})
	} else if c, ok := e1.(*syntax.Cond); ok {
		return p.branch(scope, assumptions, c.Cond, func(then bool) (syntax.Exp, error) {
			return p.bagSubtract(scope, assumptions, pick(c, then), e2)
		})
	}
	//
	b1, _ := e1.(*syntax.Binary)
	b2, _ := e2.(*syntax.Binary)
	//
	switch {
	case b2 != nil && b2.Op == syntax.Plus:
		// e1 - (a + b) == (e1 - a) - b
		lhs, err := p.bagSubtract(scope, assumptions, e1, b2.Lhs)
		if err != nil {
			return nil, err
		}
		//
		return p.bagSubtract(scope, assumptions, lhs, b2.Rhs)
	case b1 != nil && b1.Op == syntax.Minus && syntax.AlphaEquivalent(b1.Lhs, e2):
		// (e2 - a) - e2 == {}
		return syntax.NewEmpty(e1.Type()), nil
	case b2 != nil && b2.Op == syntax.Minus && syntax.AlphaEquivalent(b2.Lhs, e1):
		// e1 - (e1 - {x}) == {x} if x in e1
		if s, ok := b2.Rhs.(*syntax.Singleton); ok {
			return fork(p, scope, assumptions, BagContains(e1, s.Elem), b2.Rhs, syntax.Exp(syntax.NewEmpty(e1.Type())))
		}
	}
	//
	s1, ok1 := e1.(*syntax.Singleton)
	s2, ok2 := e2.(*syntax.Singleton)
	//
	if ok1 && ok2 {
		return fork(p, scope, assumptions, Equal(s1.Elem, s2.Elem), syntax.Exp(syntax.NewEmpty(e1.Type())), e1)
	}
	// filter(a, p) - filter(b, p) == filter(a - b, p)
	if f1, ok := e1.(*syntax.Filter); ok {
		if f2, ok := e2.(*syntax.Filter); ok && syntax.AlphaEquivalent(&syntax.Filter{Source: f2.Source, P: f1.P}, f2) {
			d, err := p.bagSubtract(scope, assumptions, f1.Source, f2.Source)
			if err != nil {
				return nil, err
			}
			//
			return EFilter(d, f1.P), nil
		}
	}
	//
	return &syntax.Binary{Op: syntax.Minus, Lhs: e1, Rhs: e2, T: e1.Type()}, nil
}

// Decide a condition, and compute the result for whichever outcome holds.
func (p *task) branch(scope contexts.Context, assumptions syntax.Exp, cond syntax.Exp,
	fn func(bool) (syntax.Exp, error)) (syntax.Exp, error) {
	b, err := p.decide(scope, assumptions, cond)
	if err != nil {
		return nil, err
	}
	//
	return fn(b)
}

func pick(c *syntax.Cond, then bool) syntax.Exp {
	if then {
		return c.Then
	}
	//
	return c.Else
}

func isFilter(e syntax.Exp) bool {
	_, ok := e.(*syntax.Filter)
	return ok
}
