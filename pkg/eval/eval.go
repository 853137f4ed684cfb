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
package eval

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/consensys/go-incr/pkg/syntax"
)

// ErrUnbound signals a variable or function which has no binding in the
// environment used for evaluation.
var ErrUnbound = errors.New("unbound")

// Func is the concrete implementation of a named function, such as an
// uninterpreted function of a context or a synthesized query.
type Func func(args ...Value) (Value, error)

// Env binds variables to values, handle addresses to their payloads and
// function names to their implementations.
type Env struct {
	Vars  map[string]Value
	Store map[int64]Value
	Funcs map[string]Func
}

// NewEnv constructs an environment from a given set of variable bindings.
func NewEnv(vars map[string]Value) *Env {
	return &Env{vars, make(map[int64]Value), make(map[string]Func)}
}

// Clone returns a copy of this environment, such that updates to the copy are
// not visible in the original.  Functions are shared.
func (p *Env) Clone() *Env {
	return &Env{maps.Clone(p.Vars), maps.Clone(p.Store), p.Funcs}
}

// bind a variable for the duration of a given function, restoring its
// previous binding (if any) afterwards.
func (p *Env) bind(name string, val Value, fn func() error) error {
	old, ok := p.Vars[name]
	p.Vars[name] = val
	err := fn()
	//
	if ok {
		p.Vars[name] = old
	} else {
		delete(p.Vars, name)
	}
	//
	return err
}

// Eval evaluates an expression in a given environment.
func Eval(e syntax.Exp, env *Env) (Value, error) {
	switch e := e.(type) {
	case *syntax.Var:
		if v, ok := env.Vars[e.Name]; ok {
			return v, nil
		}
		//
		return nil, fmt.Errorf("%w variable %s", ErrUnbound, e.Name)
	case *syntax.BoolLit:
		return e.Value, nil
	case *syntax.NumLit:
		return e.Value, nil
	case *syntax.StrLit:
		return e.Value, nil
	case *syntax.Unary:
		return evalUnary(e, env)
	case *syntax.Binary:
		return evalBinary(e, env)
	case *syntax.Cond:
		c, err := Eval(e.Cond, env)
		if err != nil {
			return nil, err
		} else if c.(bool) {
			return Eval(e.Then, env)
		}
		//
		return Eval(e.Else, env)
	case *syntax.Call:
		return evalCall(e, env)
	case *syntax.MakeRecord:
		r := make(Record, len(e.Fields))
		//
		for i, f := range e.Fields {
			v, err := Eval(f.Value, env)
			if err != nil {
				return nil, err
			}
			//
			r[i] = Field{f.Name, v}
		}
		//
		return r, nil
	case *syntax.GetField:
		return evalGetField(e, env)
	case *syntax.MakeTuple:
		elems, err := evalAll(e.Elems, env)
		return Tuple(elems), err
	case *syntax.TupleGet:
		t, err := Eval(e.Tuple, env)
		if err != nil {
			return nil, err
		}
		//
		return t.(Tuple)[e.Index], nil
	case *syntax.EmptyBag:
		return Bag{}, nil
	case *syntax.Singleton:
		v, err := Eval(e.Elem, env)
		return Bag{v}, err
	case *syntax.Map, *syntax.Filter, *syntax.FlatMap:
		return evalBinder(e, env)
	case *syntax.ArgMin:
		return evalArgMin(e, env)
	case *syntax.MapGet:
		return evalMapGet(e, env)
	case *syntax.MapKeys:
		m, err := Eval(e.Map, env)
		if err != nil {
			return nil, err
		}
		//
		return m.(Map).Keys(), nil
	case *syntax.MakeMap:
		return evalMakeMap(e, env)
	case *syntax.StateVar:
		return Eval(e.Exp, env)
	case *syntax.MakeHeap:
		return evalMakeHeap(e, env)
	case *syntax.HeapPeek2:
		return evalHeapPeek2(e, env)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// EvalBool evaluates a boolean expression.
func EvalBool(e syntax.Exp, env *Env) (bool, error) {
	v, err := Eval(e, env)
	if err != nil {
		return false, err
	}
	//
	return v.(bool), nil
}

func evalAll(es []syntax.Exp, env *Env) ([]Value, error) {
	vals := make([]Value, len(es))
	//
	for i, e := range es {
		v, err := Eval(e, env)
		if err != nil {
			return nil, err
		}
		//
		vals[i] = v
	}
	//
	return vals, nil
}

func evalUnary(e *syntax.Unary, env *Env) (Value, error) {
	arg, err := Eval(e.Arg, env)
	if err != nil {
		return nil, err
	}
	//
	switch e.Op {
	case syntax.Not:
		return !arg.(bool), nil
	case syntax.Neg:
		return -arg.(int64), nil
	case syntax.Exists:
		return len(arg.(Bag)) > 0, nil
	case syntax.Empty:
		return len(arg.(Bag)) == 0, nil
	case syntax.Len:
		return int64(len(arg.(Bag))), nil
	case syntax.Sum:
		var sum int64
		//
		for _, v := range arg.(Bag) {
			sum += v.(int64)
		}
		//
		return sum, nil
	case syntax.Distinct:
		return Distinct(arg.(Bag)), nil
	case syntax.The:
		if bag := arg.(Bag); len(bag) > 0 {
			return bag[0], nil
		}
		//
		return Default(e.T), nil
	default:
		panic(fmt.Sprintf("unknown unary operator %s", e.Op))
	}
}

func evalBinary(e *syntax.Binary, env *Env) (Value, error) {
	lhs, err := Eval(e.Lhs, env)
	if err != nil {
		return nil, err
	}
	// Short circuiting
	switch {
	case e.Op == syntax.And && !lhs.(bool):
		return false, nil
	case e.Op == syntax.Or && lhs.(bool):
		return true, nil
	case e.Op == syntax.Implies && !lhs.(bool):
		return true, nil
	}
	//
	rhs, err := Eval(e.Rhs, env)
	if err != nil {
		return nil, err
	}
	//
	switch e.Op {
	case syntax.Plus:
		if l, ok := lhs.(Bag); ok {
			return Union(l, rhs.(Bag)), nil
		}
		//
		return lhs.(int64) + rhs.(int64), nil
	case syntax.Minus:
		if l, ok := lhs.(Bag); ok {
			return Subtract(l, rhs.(Bag)), nil
		}
		//
		return lhs.(int64) - rhs.(int64), nil
	case syntax.Times:
		return lhs.(int64) * rhs.(int64), nil
	case syntax.Eq:
		return Equal(lhs, rhs), nil
	case syntax.Ne:
		return !Equal(lhs, rhs), nil
	case syntax.Lt:
		return Compare(lhs, rhs) < 0, nil
	case syntax.Le:
		return Compare(lhs, rhs) <= 0, nil
	case syntax.Gt:
		return Compare(lhs, rhs) > 0, nil
	case syntax.Ge:
		return Compare(lhs, rhs) >= 0, nil
	case syntax.And, syntax.Or, syntax.Implies:
		return rhs.(bool), nil
	case syntax.In:
		return Count(lhs, rhs.(Bag)) > 0, nil
	case syntax.Count:
		return Count(lhs, rhs.(Bag)), nil
	case syntax.Intersect:
		return Intersect(lhs.(Bag), rhs.(Bag)), nil
	default:
		panic(fmt.Sprintf("unknown binary operator %s", e.Op))
	}
}

func evalCall(e *syntax.Call, env *Env) (Value, error) {
	fn, ok := env.Funcs[e.Func]
	//
	if !ok {
		return nil, fmt.Errorf("%w function %s", ErrUnbound, e.Func)
	}
	//
	args, err := evalAll(e.Args, env)
	if err != nil {
		return nil, err
	}
	//
	return fn(args...)
}

func evalGetField(e *syntax.GetField, env *Env) (Value, error) {
	v, err := Eval(e.Record, env)
	if err != nil {
		return nil, err
	}
	//
	switch v := v.(type) {
	case Record:
		return v.Get(e.Field), nil
	case Handle:
		if payload, ok := env.Store[v.Addr]; ok {
			return payload, nil
		}
		//
		return Default(e.T), nil
	default:
		panic(fmt.Sprintf("field access on %v", v))
	}
}

// Evaluate a lambda for each element of a collection.
func forEach(source syntax.Exp, f *syntax.Lambda, env *Env, fn func(elem Value, result Value)) error {
	s, err := Eval(source, env)
	if err != nil {
		return err
	}
	//
	for _, elem := range s.(Bag) {
		err := env.bind(f.Arg.Name, elem, func() error {
			result, err := Eval(f.Body, env)
			if err == nil {
				fn(elem, result)
			}
			//
			return err
		})
		//
		if err != nil {
			return err
		}
	}
	//
	return nil
}

func evalBinder(e syntax.Exp, env *Env) (Value, error) {
	result := Bag{}
	//
	switch e := e.(type) {
	case *syntax.Map:
		return result, forEach(e.Source, e.F, env, func(_ Value, v Value) {
			result = append(result, v)
		})
	case *syntax.Filter:
		return result, forEach(e.Source, e.P, env, func(elem Value, v Value) {
			if v.(bool) {
				result = append(result, elem)
			}
		})
	case *syntax.FlatMap:
		return result, forEach(e.Source, e.F, env, func(_ Value, v Value) {
			result = append(result, v.(Bag)...)
		})
	default:
		panic("unreachable")
	}
}

func evalArgMin(e *syntax.ArgMin, env *Env) (Value, error) {
	var best, bestKey Value
	//
	err := forEach(e.Source, e.Key, env, func(elem Value, key Value) {
		if best == nil {
			best, bestKey = elem, key
		} else if c := Compare(key, bestKey); (!e.Max && c < 0) || (e.Max && c > 0) {
			best, bestKey = elem, key
		}
	})
	//
	if err != nil {
		return nil, err
	} else if best == nil {
		return Default(e.Type()), nil
	}
	//
	return best, nil
}

func evalMapGet(e *syntax.MapGet, env *Env) (Value, error) {
	m, err := Eval(e.Map, env)
	if err != nil {
		return nil, err
	}
	//
	k, err := Eval(e.Key, env)
	if err != nil {
		return nil, err
	}
	//
	if v, ok := m.(Map).Get(k); ok {
		return v, nil
	}
	//
	return Default(e.Type()), nil
}

func evalMakeMap(e *syntax.MakeMap, env *Env) (Value, error) {
	result := Map{}
	//
	err := forEach(e.Keys, e.Value, env, func(k Value, v Value) {
		if _, ok := result.Get(k); !ok {
			result = result.Put(k, v)
		}
	})
	//
	return result, err
}

func evalMakeHeap(e *syntax.MakeHeap, env *Env) (Value, error) {
	var (
		elems []Value
		keys  []Value
	)
	//
	err := forEach(e.Source, e.Key, env, func(elem Value, key Value) {
		elems = append(elems, elem)
		keys = append(keys, key)
	})
	//
	if err != nil {
		return nil, err
	}
	// Sort elements by key, with the extremal element first.
	order := make([]int, len(elems))
	//
	for i := range order {
		order[i] = i
	}
	//
	slices.SortStableFunc(order, func(i, j int) int {
		if e.Min {
			return Compare(keys[i], keys[j])
		}
		//
		return Compare(keys[j], keys[i])
	})
	//
	heap := Heap{Min: e.Min, Elems: make([]Value, len(order)), Keys: make([]Value, len(order))}
	//
	for i, j := range order {
		heap.Elems[i], heap.Keys[i] = elems[j], keys[j]
	}
	//
	return heap, nil
}

// The second extremal element of a heap of a given size, or the default value
// when the heap has fewer than two elements.
func evalHeapPeek2(e *syntax.HeapPeek2, env *Env) (Value, error) {
	h, err := Eval(e.Heap, env)
	if err != nil {
		return nil, err
	}
	//
	n, err := Eval(e.Len, env)
	if err != nil {
		return nil, err
	}
	//
	if heap := h.(Heap); n.(int64) >= 2 && len(heap.Elems) >= 2 {
		return heap.Elems[1], nil
	}
	//
	return Default(e.Type()), nil
}
