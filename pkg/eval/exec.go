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
	"fmt"

	"github.com/consensys/go-incr/pkg/syntax"
)

// Exec executes a statement in a given environment, returning the resulting
// environment.  The given environment is left unchanged.
func Exec(s syntax.Stm, env *Env) (*Env, error) {
	result := env.Clone()
	//
	if err := exec(s, result); err != nil {
		return nil, err
	}
	//
	return result, nil
}

func exec(s syntax.Stm, env *Env) error {
	switch s := s.(type) {
	case *syntax.NoOp:
		return nil
	case *syntax.Seq:
		if err := exec(s.First, env); err != nil {
			return err
		}
		//
		return exec(s.Second, env)
	case *syntax.If:
		c, err := EvalBool(s.Cond, env)
		if err != nil {
			return err
		} else if c {
			return exec(s.Then, env)
		}
		//
		return exec(s.Else, env)
	case *syntax.Assign:
		v, err := Eval(s.Rhs, env)
		if err != nil {
			return err
		}
		//
		return assign(s.LVal, v, env)
	case *syntax.Decl:
		v, err := Eval(s.Val, env)
		if err != nil {
			return err
		}
		//
		env.Vars[s.Var.Name] = v
		//
		return nil
	case *syntax.CallStm:
		return execCall(s, env)
	case *syntax.ForEach:
		bag, err := Eval(s.Bag, env)
		if err != nil {
			return err
		}
		//
		for _, elem := range bag.(Bag) {
			if err := env.bind(s.Var.Name, elem, func() error { return exec(s.Body, env) }); err != nil {
				return err
			}
		}
		//
		return nil
	case *syntax.MapDel:
		return updateMap(s.Map, s.Key, env, func(m Map, k Value) (Map, error) {
			return m.Delete(k), nil
		})
	case *syntax.MapUpdate:
		return updateMap(s.Map, s.Key, env, func(m Map, k Value) (Map, error) {
			var (
				val, ok = m.Get(k)
				result  Value
			)
			//
			if !ok {
				val = Default(s.Map.Type().(*syntax.MapType).Value)
			}
			//
			err := env.bind(s.Val.Name, val, func() error {
				err := exec(s.Body, env)
				result = env.Vars[s.Val.Name]
				//
				return err
			})
			//
			if err != nil {
				return m, err
			}
			//
			return m.Put(k, result), nil
		})
	default:
		panic(fmt.Sprintf("unknown statement %T", s))
	}
}

func execCall(s *syntax.CallStm, env *Env) error {
	target, err := Eval(s.Target, env)
	if err != nil {
		return err
	}
	//
	arg, err := Eval(s.Arg, env)
	if err != nil {
		return err
	}
	//
	// Heap entries are (element, key) pairs
	if heap, ok := target.(Heap); ok {
		entry := arg.(Tuple)
		//
		switch s.Func {
		case syntax.Add:
			heap = heap.Insert(entry[0], entry[1])
		case syntax.Remove:
			heap = heap.Remove(entry[0])
		default:
			return fmt.Errorf("unsupported heap operation %s", s.Func)
		}
		//
		return assign(s.Target, heap, env)
	}
	//
	bag := target.(Bag)
	//
	switch s.Func {
	case syntax.Add:
		bag = Union(bag, Bag{arg})
	case syntax.AddAll:
		bag = Union(bag, arg.(Bag))
	case syntax.Remove:
		bag = Subtract(bag, Bag{arg})
	case syntax.RemoveAll:
		bag = Subtract(bag, arg.(Bag))
	default:
		panic(fmt.Sprintf("unknown call %s", s.Func))
	}
	//
	return assign(s.Target, bag, env)
}

func updateMap(lval syntax.Exp, key syntax.Exp, env *Env, fn func(Map, Value) (Map, error)) error {
	m, err := Eval(lval, env)
	if err != nil {
		return err
	}
	//
	k, err := Eval(key, env)
	if err != nil {
		return err
	}
	//
	updated, err := fn(m.(Map), k)
	if err != nil {
		return err
	}
	//
	return assign(lval, updated, env)
}

// Assign a value to an lvalue, rebuilding any enclosing records or tuples.
func assign(lval syntax.Exp, val Value, env *Env) error {
	switch lval := lval.(type) {
	case *syntax.Var:
		env.Vars[lval.Name] = val
		return nil
	case *syntax.GetField:
		owner, err := Eval(lval.Record, env)
		if err != nil {
			return err
		}
		//
		switch owner := owner.(type) {
		case Handle:
			env.Store[owner.Addr] = val
			return nil
		case Record:
			return assign(lval.Record, owner.Set(lval.Field, val), env)
		}
		//
		panic(fmt.Sprintf("field assignment on %v", owner))
	case *syntax.TupleGet:
		owner, err := Eval(lval.Tuple, env)
		if err != nil {
			return err
		}
		//
		tuple := append(Tuple{}, owner.(Tuple)...)
		tuple[lval.Index] = val
		//
		return assign(lval.Tuple, tuple, env)
	default:
		return fmt.Errorf("invalid lvalue %s", syntax.Print(lval))
	}
}
