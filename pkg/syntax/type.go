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

// Type represents the semantic type of an expression.  Types are compared
// structurally, so two distinct instances describing the same type are
// considered equal.
type Type interface {
	// Equals checks whether this type is structurally identical to another.
	Equals(Type) bool
	// Lisp converts this type into an S-Expression.
	Lisp() sexp.SExp
	// String returns a human readable representation of this type.
	String() string
	// Marker method which seals this interface.
	typ()
}

var (
	// Int is the type of (unbounded) integers.
	Int = &IntType{}
	// Bool is the type of booleans.
	Bool = &BoolType{}
	// String is the type of strings.
	String = &StringType{}
)

// IntType represents the integers.
type IntType struct{}

// BoolType represents the booleans.
type BoolType struct{}

// StringType represents strings.
type StringType struct{}

// NativeType represents an opaque type provided by the host program.  Values of
// a native type can only be compared for equality.
type NativeType struct {
	Name string
}

// BagType represents a multiset of elements.
type BagType struct {
	Elem Type
}

// SetType represents a collection of unique elements.
type SetType struct {
	Elem Type
}

// ListType represents an ordered collection of elements.
type ListType struct {
	Elem Type
}

// MapType represents a finite map from keys to values.  Keys absent from the
// map are mapped to the default value of the value type.
type MapType struct {
	Key   Type
	Value Type
}

// Field is a named component of a record type.
type Field struct {
	Name string
	Type Type
}

// RecordType represents a record with one or more named fields.
type RecordType struct {
	Fields []Field
}

// TupleType represents a fixed length sequence of components.
type TupleType struct {
	Elems []Type
}

// HandleType represents a pointer to a mutable payload, accessed via the "val"
// field.  Two handles are equal when they point to the same location.
type HandleType struct {
	Name  string
	Value Type
}

// HeapType represents a min (or max) heap over elements ordered by a key.
type HeapType struct {
	Min  bool
	Elem Type
	Key  Type
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var (
	_ Type = (*IntType)(nil)
	_ Type = (*BoolType)(nil)
	_ Type = (*StringType)(nil)
	_ Type = (*NativeType)(nil)
	_ Type = (*BagType)(nil)
	_ Type = (*SetType)(nil)
	_ Type = (*ListType)(nil)
	_ Type = (*MapType)(nil)
	_ Type = (*RecordType)(nil)
	_ Type = (*TupleType)(nil)
	_ Type = (*HandleType)(nil)
	_ Type = (*HeapType)(nil)
)

// BagOf constructs the type of bags over a given element type.
func BagOf(elem Type) Type {
	return &BagType{elem}
}

// ElemType returns the element type of a collection (or heap), or nil for any
// other type.
func ElemType(t Type) Type {
	switch t := t.(type) {
	case *BagType:
		return t.Elem
	case *SetType:
		return t.Elem
	case *ListType:
		return t.Elem
	case *HeapType:
		return t.Elem
	default:
		return nil
	}
}

// IsCollection checks whether a given type is a bag, set or list.
func IsCollection(t Type) bool {
	switch t.(type) {
	case *BagType, *SetType, *ListType:
		return true
	default:
		return false
	}
}

// IsNumeric checks whether values of a given type support arithmetic.
func IsNumeric(t Type) bool {
	_, ok := t.(*IntType)
	return ok
}

// FieldType returns the type of a named field within a record or handle type,
// or nil if no such field exists.
func FieldType(t Type, name string) Type {
	switch t := t.(type) {
	case *RecordType:
		for _, f := range t.Fields {
			if f.Name == name {
				return f.Type
			}
		}
	case *HandleType:
		if name == "val" {
			return t.Value
		}
	}
	//
	return nil
}

func (p *IntType) typ()    {}
func (p *BoolType) typ()   {}
func (p *StringType) typ() {}
func (p *NativeType) typ() {}
func (p *BagType) typ()    {}
func (p *SetType) typ()    {}
func (p *ListType) typ()   {}
func (p *MapType) typ()    {}
func (p *RecordType) typ() {}
func (p *TupleType) typ()  {}
func (p *HandleType) typ() {}
func (p *HeapType) typ()   {}

// Equals implementation for Type interface.
func (p *IntType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *BoolType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *StringType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *NativeType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *BagType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *SetType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *ListType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *MapType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *RecordType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *TupleType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *HandleType) Equals(o Type) bool { return sameType(p, o) }

// Equals implementation for Type interface.
func (p *HeapType) Equals(o Type) bool { return sameType(p, o) }

func sameType(t1 Type, t2 Type) bool {
	return t2 != nil && t1.String() == t2.String()
}

// Lisp implementation for Type interface.
func (p *IntType) Lisp() sexp.SExp { return sexp.NewSymbol("int") }

// Lisp implementation for Type interface.
func (p *BoolType) Lisp() sexp.SExp { return sexp.NewSymbol("bool") }

// Lisp implementation for Type interface.
func (p *StringType) Lisp() sexp.SExp { return sexp.NewSymbol("string") }

// Lisp implementation for Type interface.
func (p *NativeType) Lisp() sexp.SExp {
	return sexp.NewApp("native", sexp.NewSymbol(p.Name))
}

// Lisp implementation for Type interface.
func (p *BagType) Lisp() sexp.SExp { return sexp.NewApp("bag", p.Elem.Lisp()) }

// Lisp implementation for Type interface.
func (p *SetType) Lisp() sexp.SExp { return sexp.NewApp("set", p.Elem.Lisp()) }

// Lisp implementation for Type interface.
func (p *ListType) Lisp() sexp.SExp { return sexp.NewApp("list", p.Elem.Lisp()) }

// Lisp implementation for Type interface.
func (p *MapType) Lisp() sexp.SExp {
	return sexp.NewApp("map", p.Key.Lisp(), p.Value.Lisp())
}

// Lisp implementation for Type interface.
func (p *RecordType) Lisp() sexp.SExp {
	fields := make([]sexp.SExp, len(p.Fields))
	//
	for i, f := range p.Fields {
		fields[i] = sexp.NewList([]sexp.SExp{sexp.NewSymbol(f.Name), f.Type.Lisp()})
	}
	//
	return sexp.NewApp("record", fields...)
}

// Lisp implementation for Type interface.
func (p *TupleType) Lisp() sexp.SExp {
	elems := make([]sexp.SExp, len(p.Elems))
	//
	for i, t := range p.Elems {
		elems[i] = t.Lisp()
	}
	//
	return sexp.NewApp("tuple", elems...)
}

// Lisp implementation for Type interface.
func (p *HandleType) Lisp() sexp.SExp {
	return sexp.NewApp("handle", sexp.NewSymbol(p.Name), p.Value.Lisp())
}

// Lisp implementation for Type interface.
func (p *HeapType) Lisp() sexp.SExp {
	return sexp.NewApp("heap", sexp.NewSymbol(minMax(p.Min)), p.Elem.Lisp(), p.Key.Lisp())
}

func (p *IntType) String() string    { return p.Lisp().String(true) }
func (p *BoolType) String() string   { return p.Lisp().String(true) }
func (p *StringType) String() string { return p.Lisp().String(true) }
func (p *NativeType) String() string { return p.Lisp().String(true) }
func (p *BagType) String() string    { return p.Lisp().String(true) }
func (p *SetType) String() string    { return p.Lisp().String(true) }
func (p *ListType) String() string   { return p.Lisp().String(true) }
func (p *MapType) String() string    { return p.Lisp().String(true) }
func (p *RecordType) String() string { return p.Lisp().String(true) }
func (p *TupleType) String() string  { return p.Lisp().String(true) }
func (p *HandleType) String() string { return p.Lisp().String(true) }
func (p *HeapType) String() string   { return p.Lisp().String(true) }

func minMax(min bool) string {
	if min {
		return "min"
	}
	//
	return "max"
}
