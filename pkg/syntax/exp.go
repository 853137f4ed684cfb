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
package syntax

import (
	"github.com/consensys/go-incr/pkg/util/source/sexp"
)

// Exp represents an immutable, typed expression.  The set of expression forms
// is closed: every form is one of the structures declared in this file, and
// functions dispatching on expressions use a type switch whose default case
// signals an unsupported construct.
type Exp interface {
	// Type returns the type of values this expression evaluates to.
	Type() Type
	// Lisp converts this expression into an S-Expression.
	Lisp() sexp.SExp
	// Marker method which seals this interface.
	exp()
}

// Var is a reference to a named variable.
type Var struct {
	Name string
	T    Type
}

// BoolLit is a boolean constant.
type BoolLit struct {
	Value bool
}

// NumLit is an integer constant.
type NumLit struct {
	Value int64
}

// StrLit is a string constant.
type StrLit struct {
	Value string
}

// Unary applies a unary operator to an argument.
type Unary struct {
	Op  UnaryOp
	Arg Exp
	T   Type
}

// Binary applies a binary operator to two arguments.
type Binary struct {
	Op  BinaryOp
	Lhs Exp
	Rhs Exp
	T   Type
}

// Cond selects between two expressions based on a boolean condition.
type Cond struct {
	Cond Exp
	Then Exp
	Else Exp
}

// Call applies a named function to zero or more arguments.  Functions are
// either uninterpreted functions of the enclosing context, or synthesized
// queries.
type Call struct {
	Func string
	Args []Exp
	T    Type
}

// FieldInit is a field of a record construction.
type FieldInit struct {
	Name  string
	Value Exp
}

// MakeRecord constructs a record from its fields.
type MakeRecord struct {
	Fields []FieldInit
}

// GetField reads a field from a record, or the payload "val" of a handle.
type GetField struct {
	Record Exp
	Field  string
	T      Type
}

// MakeTuple constructs a tuple from its components.
type MakeTuple struct {
	Elems []Exp
}

// TupleGet reads a component of a tuple.
type TupleGet struct {
	Tuple Exp
	Index int
}

// EmptyBag is an empty collection of a given collection type.
type EmptyBag struct {
	T Type
}

// Singleton is a collection holding exactly one element.
type Singleton struct {
	Elem Exp
	T    Type
}

// Map applies a function to every element of a collection.
type Map struct {
	Source Exp
	F      *Lambda
}

// Filter retains those elements of a collection satisfying a predicate.
type Filter struct {
	Source Exp
	P      *Lambda
}

// FlatMap applies a collection valued function to every element of a
// collection, and unions the results.
type FlatMap struct {
	Source Exp
	F      *Lambda
}

// ArgMin returns the first element of a collection with the smallest (or, when
// Max holds, the largest) key.  The default value of the element type is
// returned for an empty collection.
type ArgMin struct {
	Max    bool
	Source Exp
	Key    *Lambda
}

// MapGet reads the value associated with a key, or the default value when
// the key is absent.
type MapGet struct {
	Map Exp
	Key Exp
}

// MapKeys returns the keys of a map as a bag.
type MapKeys struct {
	Map Exp
}

// MakeMap constructs a map from a bag of keys, and a function computing the
// value for each key.
type MakeMap struct {
	Keys  Exp
	Value *Lambda
}

// StateVar marks an expression whose value is materialized as part of the
// abstract state, rather than recomputed on demand.
type StateVar struct {
	Exp Exp
}

// MakeHeap organises the elements of a collection into a heap ordered by key.
type MakeHeap struct {
	Min    bool
	Source Exp
	Key    *Lambda
}

// HeapPeek2 returns the second element of a heap in key order, or the default
// element when the heap holds fewer than two elements.  The length of the heap
// is carried along for implementations which need it.
type HeapPeek2 struct {
	Heap Exp
	Len  Exp
}

// Lambda is a single argument anonymous function, as used by the binding
// forms (e.g. Map and Filter).  Lambdas are not themselves expressions.
type Lambda struct {
	Arg  *Var
	Body Exp
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var (
	_ Exp = (*Var)(nil)
	_ Exp = (*BoolLit)(nil)
	_ Exp = (*NumLit)(nil)
	_ Exp = (*StrLit)(nil)
	_ Exp = (*Unary)(nil)
	_ Exp = (*Binary)(nil)
	_ Exp = (*Cond)(nil)
	_ Exp = (*Call)(nil)
	_ Exp = (*MakeRecord)(nil)
	_ Exp = (*GetField)(nil)
	_ Exp = (*MakeTuple)(nil)
	_ Exp = (*TupleGet)(nil)
	_ Exp = (*EmptyBag)(nil)
	_ Exp = (*Singleton)(nil)
	_ Exp = (*Map)(nil)
	_ Exp = (*Filter)(nil)
	_ Exp = (*FlatMap)(nil)
	_ Exp = (*ArgMin)(nil)
	_ Exp = (*MapGet)(nil)
	_ Exp = (*MapKeys)(nil)
	_ Exp = (*MakeMap)(nil)
	_ Exp = (*StateVar)(nil)
	_ Exp = (*MakeHeap)(nil)
	_ Exp = (*HeapPeek2)(nil)
)

func (e *Var) exp()        {}
func (e *BoolLit) exp()    {}
func (e *NumLit) exp()     {}
func (e *StrLit) exp()     {}
func (e *Unary) exp()      {}
func (e *Binary) exp()     {}
func (e *Cond) exp()       {}
func (e *Call) exp()       {}
func (e *MakeRecord) exp() {}
func (e *GetField) exp()   {}
func (e *MakeTuple) exp()  {}
func (e *TupleGet) exp()   {}
func (e *EmptyBag) exp()   {}
func (e *Singleton) exp()  {}
func (e *Map) exp()        {}
func (e *Filter) exp()     {}
func (e *FlatMap) exp()    {}
func (e *ArgMin) exp()     {}
func (e *MapGet) exp()     {}
func (e *MapKeys) exp()    {}
func (e *MakeMap) exp()    {}
func (e *StateVar) exp()   {}
func (e *MakeHeap) exp()   {}
func (e *HeapPeek2) exp()  {}

// Type implementation for Exp interface.
func (e *Var) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *BoolLit) Type() Type { return Bool }

// Type implementation for Exp interface.
func (e *NumLit) Type() Type { return Int }

// Type implementation for Exp interface.
func (e *StrLit) Type() Type { return String }

// Type implementation for Exp interface.
func (e *Unary) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *Binary) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *Cond) Type() Type { return e.Then.Type() }

// Type implementation for Exp interface.
func (e *Call) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *MakeRecord) Type() Type {
	fields := make([]Field, len(e.Fields))
	//
	for i, f := range e.Fields {
		fields[i] = Field{f.Name, f.Value.Type()}
	}
	//
	return &RecordType{fields}
}

// Type implementation for Exp interface.
func (e *GetField) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *MakeTuple) Type() Type {
	elems := make([]Type, len(e.Elems))
	//
	for i, x := range e.Elems {
		elems[i] = x.Type()
	}
	//
	return &TupleType{elems}
}

// Type implementation for Exp interface.
func (e *TupleGet) Type() Type {
	return e.Tuple.Type().(*TupleType).Elems[e.Index]
}

// Type implementation for Exp interface.
func (e *EmptyBag) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *Singleton) Type() Type { return e.T }

// Type implementation for Exp interface.
func (e *Map) Type() Type { return BagOf(e.F.Body.Type()) }

// Type implementation for Exp interface.
func (e *Filter) Type() Type { return e.Source.Type() }

// Type implementation for Exp interface.
func (e *FlatMap) Type() Type { return e.F.Body.Type() }

// Type implementation for Exp interface.
func (e *ArgMin) Type() Type { return ElemType(e.Source.Type()) }

// Type implementation for Exp interface.
func (e *MapGet) Type() Type { return e.Map.Type().(*MapType).Value }

// Type implementation for Exp interface.
func (e *MapKeys) Type() Type { return BagOf(e.Map.Type().(*MapType).Key) }

// Type implementation for Exp interface.
func (e *MakeMap) Type() Type {
	return &MapType{ElemType(e.Keys.Type()), e.Value.Body.Type()}
}

// Type implementation for Exp interface.
func (e *StateVar) Type() Type { return e.Exp.Type() }

// Type implementation for Exp interface.
func (e *MakeHeap) Type() Type {
	return &HeapType{e.Min, ElemType(e.Source.Type()), e.Key.Body.Type()}
}

// Type implementation for Exp interface.
func (e *HeapPeek2) Type() Type { return ElemType(e.Heap.Type()) }

// Apply substitutes a given expression for the argument of this lambda within
// its body.
func (p *Lambda) Apply(arg Exp) Exp {
	return Subst(p.Body, map[string]Exp{p.Arg.Name: arg})
}

// IsIdentity checks whether this lambda returns its argument unchanged.
func (p *Lambda) IsIdentity() bool {
	v, ok := p.Body.(*Var)
	return ok && v.Name == p.Arg.Name
}
