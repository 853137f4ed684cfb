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

// Simplify an expression under a path condition.  Boolean subexpressions
// which the oracle decides are replaced by constants, collections it proves
// empty by the empty collection, and the remaining structure is rewritten
// bottom up.
func (p *task) optimize(e syntax.Exp, scope contexts.Context, pc syntax.Exp) (syntax.Exp, error) {
	if _, ok := e.(*syntax.StateVar); ok {
		return e, nil
	} else if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	//
	if _, ok := e.(*syntax.BoolLit); !ok && e.Type().Equals(syntax.Bool) {
		if ok, err := p.implied(scope, pc, Unknown, e); err != nil || ok {
			return syntax.True, err
		} else if ok, err := p.implied(scope, pc, Unknown, syntax.NewNot(e)); err != nil || ok {
			return syntax.False, err
		}
	} else if syntax.IsCollection(e.Type()) && !syntax.IsEmptyBag(e) {
		if ok, err := p.implied(scope, pc, isEmpty(e), syntax.NewUnary(syntax.Empty, e)); err != nil || ok {
			return syntax.NewEmpty(e.Type()), err
		}
	}
	//
	switch e := e.(type) {
	case *syntax.Filter:
		return p.optimizeFilter(e, scope, pc)
	case *syntax.Map:
		return p.optimizeMap(e, scope, pc)
	case *syntax.FlatMap:
		src, f, err := p.optimizeBinder(e.Source, e.F, scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.FlatMap{Source: src, F: f}, nil
	case *syntax.ArgMin:
		src, f, err := p.optimizeBinder(e.Source, e.Key, scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.ArgMin{Max: e.Max, Source: src, Key: f}, nil
	case *syntax.MakeMap:
		keys, f, err := p.optimizeBinder(e.Keys, e.Value, scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.MakeMap{Keys: keys, Value: f}, nil
	case *syntax.MakeHeap:
		src, f, err := p.optimizeBinder(e.Source, e.Key, scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.MakeHeap{Min: e.Min, Source: src, Key: f}, nil
	case *syntax.Cond:
		return p.optimizeCond(e, scope, pc)
	case *syntax.Binary:
		return p.optimizeBinary(e, scope, pc)
	case *syntax.GetField:
		record, err := p.optimize(e.Record, scope, pc)
		if err != nil {
			return nil, err
		} else if r, ok := record.(*syntax.MakeRecord); ok {
			for _, f := range r.Fields {
				if f.Name == e.Field {
					return f.Value, nil
				}
			}
		}
		//
		return &syntax.GetField{Record: record, Field: e.Field, T: e.T}, nil
	}
	// No binders remain
	var err error
	//
	result := syntax.Transform(e, func(c syntax.Exp) syntax.Exp {
		if err != nil {
			return c
		}
		//
		var oc syntax.Exp
		//
		if oc, err = p.optimize(c, scope, pc); err != nil {
			return c
		}
		//
		return oc
	}, func(l *syntax.Lambda) *syntax.Lambda { return l })
	//
	return result, err
}

// Optimize the source of a binder, and the lambda under the assumption that
// its argument is drawn from the source.
func (p *task) optimizeBinder(src syntax.Exp, f *syntax.Lambda, scope contexts.Context,
	pc syntax.Exp) (syntax.Exp, *syntax.Lambda, error) {
	newSrc, err := p.optimize(src, scope, pc)
	if err != nil {
		return nil, nil, err
	}
	//
	inner := contexts.NewUnderBinder(scope, f.Arg, src, contexts.Runtime)
	//
	body, err := p.optimize(f.Body, inner, pc)
	if err != nil {
		return nil, nil, err
	}
	//
	return newSrc, syntax.NewLambda(f.Arg, body), nil
}

func (p *task) optimizeFilter(e *syntax.Filter, scope contexts.Context, pc syntax.Exp) (syntax.Exp, error) {
	src, pred, err := p.optimizeBinder(e.Source, e.P, scope, pc)
	if err != nil {
		return nil, err
	} else if syntax.IsTrue(pred.Body) {
		return src, nil
	} else if syntax.IsFalse(pred.Body) {
		return syntax.NewEmpty(e.Type()), nil
	}
	//
	switch src := src.(type) {
	case *syntax.Binary:
		if src.Op == syntax.Plus || src.Op == syntax.Minus {
			lhs := &syntax.Filter{Source: src.Lhs, P: pred}
			rhs := &syntax.Filter{Source: src.Rhs, P: pred}
			//
			return p.optimize(&syntax.Binary{Op: src.Op, Lhs: lhs, Rhs: rhs, T: src.T}, scope, pc)
		}
	case *syntax.Singleton:
		cond, err := p.optimize(pred.Apply(src.Elem), scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return syntax.NewCond(cond, src, syntax.NewEmpty(e.Type())), nil
	}
	//
	return &syntax.Filter{Source: src, P: pred}, nil
}

func (p *task) optimizeMap(e *syntax.Map, scope contexts.Context, pc syntax.Exp) (syntax.Exp, error) {
	src, f, err := p.optimizeBinder(e.Source, e.F, scope, pc)
	if err != nil {
		return nil, err
	} else if f.IsIdentity() {
		return src, nil
	}
	//
	switch src := src.(type) {
	case *syntax.Singleton:
		elem, err := p.optimize(f.Apply(src.Elem), scope, pc)
		if err != nil {
			return nil, err
		}
		//
		return &syntax.Singleton{Elem: elem, T: e.Type()}, nil
	case *syntax.Binary:
		distributes := src.Op == syntax.Plus
		// Mapping only distributes over a difference of nested collections
		if src.Op == syntax.Minus {
			subset := syntax.NewUnary(syntax.Empty, syntax.NewBinary(syntax.Minus, src.Rhs, src.Lhs))
			//
			if distributes, err = p.implied(scope, pc, subsetOf(src.Rhs, src.Lhs), subset); err != nil {
				return nil, err
			}
		}
		//
		if distributes {
			lhs := &syntax.Map{Source: src.Lhs, F: f}
			rhs := &syntax.Map{Source: src.Rhs, F: f}
			//
			return p.optimize(&syntax.Binary{Op: src.Op, Lhs: lhs, Rhs: rhs, T: e.Type()}, scope, pc)
		}
	}
	//
	return &syntax.Map{Source: src, F: f}, nil
}

func (p *task) optimizeCond(e *syntax.Cond, scope contexts.Context, pc syntax.Exp) (syntax.Exp, error) {
	cond, err := p.optimize(e.Cond, scope, pc)
	if err != nil {
		return nil, err
	}
	//
	then, err := p.optimize(e.Then, scope, syntax.All(pc, e.Cond))
	if err != nil {
		return nil, err
	}
	//
	els, err := p.optimize(e.Else, scope, syntax.All(pc, syntax.NewNot(e.Cond)))
	if err != nil {
		return nil, err
	}
	//
	return syntax.NewCond(cond, then, els), nil
}

func (p *task) optimizeBinary(e *syntax.Binary, scope contexts.Context, pc syntax.Exp) (syntax.Exp, error) {
	lhs, err := p.optimize(e.Lhs, scope, pc)
	if err != nil {
		return nil, err
	}
	// Short circuiting operators see the outcome of their left operand
	rpc := pc
	//
	switch e.Op {
	case syntax.And:
		rpc = syntax.All(pc, e.Lhs)
	case syntax.Or:
		rpc = syntax.All(pc, syntax.NewNot(e.Lhs))
	case syntax.Implies:
		rpc = syntax.All(pc, e.Lhs)
	}
	//
	rhs, err := p.optimize(e.Rhs, scope, rpc)
	if err != nil {
		return nil, err
	}
	//
	switch e.Op {
	case syntax.And:
		return syntax.All(lhs, rhs), nil
	case syntax.Or:
		return syntax.AnyOf(lhs, rhs), nil
	case syntax.Implies:
		return syntax.NewImplies(lhs, rhs), nil
	case syntax.Plus:
		if syntax.IsEmptyBag(lhs) || isZero(lhs) {
			return rhs, nil
		} else if syntax.IsEmptyBag(rhs) || isZero(rhs) {
			return lhs, nil
		}
	}
	//
	return &syntax.Binary{Op: e.Op, Lhs: lhs, Rhs: rhs, T: e.T}, nil
}
