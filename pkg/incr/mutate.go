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
	"github.com/consensys/go-incr/pkg/syntax"
)

// Mutate returns the value a given expression has immediately after a
// statement executes, expressed over the state before it executes.  This is
// computed by structural recursion on the statement, and is a pure function of
// its inputs.
func Mutate(e syntax.Exp, op syntax.Stm) (syntax.Exp, error) {
	switch op := op.(type) {
	case *syntax.NoOp:
		return e, nil
	case *syntax.Assign:
		return assignment(op.LVal, op.Rhs, e)
	case *syntax.CallStm:
		return mutateCall(e, op)
	case *syntax.If:
		then, err := Mutate(e, op.Then)
		if err != nil {
			return nil, err
		}
		//
		els, err := Mutate(e, op.Else)
		if err != nil {
			return nil, err
		}
		//
		return syntax.NewCond(op.Cond, then, els), nil
	case *syntax.Seq:
		if first, ok := op.First.(*syntax.Seq); ok {
			return Mutate(e, &syntax.Seq{First: first.First, Second: &syntax.Seq{First: first.Second, Second: op.Second}})
		}
		// Innermost statement is applied first
		e2, err := Mutate(e, op.Second)
		if err != nil {
			return nil, err
		} else if e2, err = Mutate(e2, op.First); err != nil {
			return nil, err
		} else if decl, ok := op.First.(*syntax.Decl); ok {
			e2 = syntax.Subst(e2, map[string]syntax.Exp{decl.Var.Name: decl.Val})
		}
		//
		return e2, nil
	case *syntax.Decl:
		// Realised by the enclosing sequence
		return e, nil
	case *syntax.MapDel:
		return mutateMapDel(e, op)
	case *syntax.MapUpdate:
		return mutateMapUpdate(e, op)
	default:
		return nil, unsupported("statement %s", op.Lisp().String(false))
	}
}

// Collection updates are desugared into assignments, with single element
// forms going via singletons.
func mutateCall(e syntax.Exp, op *syntax.CallStm) (syntax.Exp, error) {
	t := op.Target.Type()
	//
	if !syntax.IsCollection(t) {
		return nil, unsupported("%s on %s", op.Func, t)
	}
	//
	switch op.Func {
	case syntax.Add:
		return mutateCall(e, &syntax.CallStm{Target: op.Target, Func: syntax.AddAll, Arg: &syntax.Singleton{Elem: op.Arg, T: t}})
	case syntax.Remove:
		return mutateCall(e, &syntax.CallStm{Target: op.Target, Func: syntax.RemoveAll, Arg: &syntax.Singleton{Elem: op.Arg, T: t}})
	case syntax.AddAll:
		return assignment(op.Target, &syntax.Binary{Op: syntax.Plus, Lhs: op.Target, Rhs: op.Arg, T: t}, e)
	case syntax.RemoveAll:
		return assignment(op.Target, &syntax.Binary{Op: syntax.Minus, Lhs: op.Target, Rhs: op.Arg, T: t}, e)
	default:
		return nil, unsupported("call %s", op.Func)
	}
}

// Deleting a key rebuilds the map over the remaining keys.
func mutateMapDel(e syntax.Exp, op *syntax.MapDel) (syntax.Exp, error) {
	var (
		t    = op.Map.Type().(*syntax.MapType)
		k    = syntax.Fresh(t.Key, "k")
		key  = &syntax.Singleton{Elem: op.Key, T: syntax.BagOf(t.Key)}
		keys = syntax.NewBinary(syntax.Minus, &syntax.MapKeys{Map: op.Map}, key)
	)
	//
	rebuilt := &syntax.MakeMap{Keys: keys, Value: syntax.NewLambda(k, &syntax.MapGet{Map: op.Map, Key: k})}
	//
	return assignment(op.Map, rebuilt, e)
}

// Updating the value at a key rebuilds the map with that key present, and its
// value as computed by the body.  The body may write only the value.
func mutateMapUpdate(e syntax.Exp, op *syntax.MapUpdate) (syntax.Exp, error) {
	if after, err := Mutate(e, op.Body); err != nil {
		return nil, err
	} else if !syntax.AlphaEquivalent(after, e) {
		return nil, unsupported("map update with side effects %s", op.Lisp().String(false))
	}
	//
	val, err := Mutate(op.Val, op.Body)
	if err != nil {
		return nil, err
	}
	//
	var (
		t       = op.Map.Type().(*syntax.MapType)
		k       = syntax.Fresh(t.Key, "k")
		current = &syntax.MapGet{Map: op.Map, Key: op.Key}
		oldKeys = &syntax.MapKeys{Map: op.Map}
		key     = &syntax.Singleton{Elem: op.Key, T: syntax.BagOf(t.Key)}
		// Keys are unique, hence the key is added only when absent.
		keys  = syntax.NewBinary(syntax.Plus, oldKeys, syntax.NewBinary(syntax.Minus, key, oldKeys))
		value = syntax.NewCond(syntax.NewEq(k, op.Key), syntax.Subst(val, map[string]syntax.Exp{op.Val.Name: current}),
			&syntax.MapGet{Map: op.Map, Key: k})
	)
	//
	return assignment(op.Map, &syntax.MakeMap{Keys: keys, Value: syntax.NewLambda(k, value)}, e)
}

// Determine the value of e after the assignment lval = val.
func assignment(lval syntax.Exp, val syntax.Exp, e syntax.Exp) (syntax.Exp, error) {
	switch lval := lval.(type) {
	case *syntax.Var:
		return syntax.Subst(e, map[string]syntax.Exp{lval.Name: val}), nil
	case *syntax.GetField:
		if _, ok := lval.Record.Type().(*syntax.HandleType); ok {
			// Any two handles might alias, hence every payload read is affected.
			return ReplaceGetValue(e, lval.Record, val), nil
		}
		//
		return assignment(lval.Record, replaceField(lval.Record, lval.Field, val), e)
	case *syntax.TupleGet:
		return assignment(lval.Tuple, replaceComponent(lval.Tuple, lval.Index, val), e)
	default:
		return nil, unsupported("lvalue %s", syntax.Print(lval))
	}
}

// ReplaceGetValue returns the value of an expression after writing a new value
// to the payload of a given handle.  Every payload read h.val of the same
// handle type is rewritten to (h == ptr) ? val : h.val.
func ReplaceGetValue(e syntax.Exp, ptr syntax.Exp, val syntax.Exp) syntax.Exp {
	var (
		t     = ptr.Type()
		avoid = make(map[string]bool)
		rec   func(syntax.Exp) syntax.Exp
		lam   func(*syntax.Lambda) *syntax.Lambda
	)
	//
	for _, v := range syntax.FreeVarsOf(ptr, val) {
		avoid[v.Name] = true
	}
	//
	rec = func(e syntax.Exp) syntax.Exp {
		r := syntax.Transform(e, rec, lam)
		//
		if g, ok := r.(*syntax.GetField); ok && g.Field == "val" && g.Record.Type().Equals(t) {
			return &syntax.Cond{Cond: syntax.NewEq(g.Record, ptr), Then: val, Else: g}
		}
		//
		return r
	}
	lam = func(l *syntax.Lambda) *syntax.Lambda {
		// Binders must not capture variables of the replacement
		if avoid[l.Arg.Name] {
			l = syntax.FreshenLambda(l)
		}
		//
		return syntax.NewLambda(l.Arg, rec(l.Body))
	}
	//
	return rec(e)
}

// Rebuild a record with one field replaced.
func replaceField(record syntax.Exp, field string, val syntax.Exp) syntax.Exp {
	t := record.Type().(*syntax.RecordType)
	fields := make([]syntax.FieldInit, len(t.Fields))
	//
	for i, f := range t.Fields {
		if f.Name == field {
			fields[i] = syntax.FieldInit{Name: f.Name, Value: val}
		} else {
			fields[i] = syntax.FieldInit{Name: f.Name, Value: &syntax.GetField{Record: record, Field: f.Name, T: f.Type}}
		}
	}
	//
	return &syntax.MakeRecord{Fields: fields}
}

// Rebuild a tuple with one component replaced.
func replaceComponent(tuple syntax.Exp, index int, val syntax.Exp) syntax.Exp {
	t := tuple.Type().(*syntax.TupleType)
	elems := make([]syntax.Exp, len(t.Elems))
	//
	for i := range t.Elems {
		if i == index {
			elems[i] = val
		} else {
			elems[i] = &syntax.TupleGet{Tuple: tuple, Index: i}
		}
	}
	//
	return &syntax.MakeTuple{Elems: elems}
}
