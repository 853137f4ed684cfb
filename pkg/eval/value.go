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
	"slices"
	"strings"

	"github.com/consensys/go-incr/pkg/syntax"
)

// Value is the concrete runtime value of an expression.  Scalars are
// represented directly by int64, bool and string, whilst the remaining kinds
// of value have dedicated types below.  Values are immutable: operations over
// them always construct new values.
type Value any

// Bag is an unordered collection which may contain duplicates.  Sets and lists
// are also represented as bags.
type Bag []Value

// Entry is a single key/value binding within a map.
type Entry struct {
	Key   Value
	Value Value
}

// Map is a finite map whose entries are sorted by key.
type Map []Entry

// Field is a named component of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is a value of record type, whose fields are held in declaration
// order.
type Record []Field

// Tuple is a value of tuple type.
type Tuple []Value

// Handle is a reference to a mutable payload held in an environment's store.
// Two handles are equal iff they have the same address.
type Handle struct {
	Addr int64
}

// Native is a value of an opaque native type.  Nothing is known about native
// values, except whether or not they are equal.
type Native struct {
	Type string
	ID   int64
}

// Heap is a priority queue, represented as its elements sorted by key with
// the extremal element first.
type Heap struct {
	Min   bool
	Elems []Value
	Keys  []Value
}

// Insert returns a copy of this heap with an element added at the position
// determined by its key.  Elements with equal keys retain insertion order.
func (p Heap) Insert(elem Value, key Value) Heap {
	i := 0
	//
	for i < len(p.Keys) && (p.Min && Compare(p.Keys[i], key) <= 0 || !p.Min && Compare(p.Keys[i], key) >= 0) {
		i++
	}
	//
	return Heap{p.Min, slices.Insert(slices.Clone(p.Elems), i, elem), slices.Insert(slices.Clone(p.Keys), i, key)}
}

// Remove returns a copy of this heap with the first occurrence of an element
// removed.  The heap is returned as is if it does not contain the element.
func (p Heap) Remove(elem Value) Heap {
	for i, e := range p.Elems {
		if Equal(e, elem) {
			return Heap{p.Min, slices.Delete(slices.Clone(p.Elems), i, i+1), slices.Delete(slices.Clone(p.Keys), i, i+1)}
		}
	}
	//
	return p
}

// Get returns the value associated with a given key in this map, and whether
// or not the key is present.
func (p Map) Get(key Value) (Value, bool) {
	i, found := p.find(key)
	//
	if found {
		return p[i].Value, true
	}
	//
	return nil, false
}

// Put returns a copy of this map where a given key is bound to a given value.
func (p Map) Put(key Value, val Value) Map {
	i, found := p.find(key)
	//
	if found {
		m := slices.Clone(p)
		m[i] = Entry{key, val}
		//
		return m
	}
	//
	return slices.Insert(slices.Clone(p), i, Entry{key, val})
}

// Delete returns a copy of this map with a given key removed.
func (p Map) Delete(key Value) Map {
	if i, found := p.find(key); found {
		return slices.Delete(slices.Clone(p), i, i+1)
	}
	//
	return p
}

// Keys returns the keys of this map, in order.
func (p Map) Keys() Bag {
	keys := make(Bag, len(p))
	//
	for i, e := range p {
		keys[i] = e.Key
	}
	//
	return keys
}

func (p Map) find(key Value) (int, bool) {
	return slices.BinarySearchFunc(p, key, func(e Entry, k Value) int {
		return Compare(e.Key, k)
	})
}

// Get returns the value of a named field within this record.
func (p Record) Get(name string) Value {
	for _, f := range p {
		if f.Name == name {
			return f.Value
		}
	}
	//
	panic(fmt.Sprintf("unknown field %s", name))
}

// Set returns a copy of this record with a named field updated.
func (p Record) Set(name string, val Value) Record {
	r := slices.Clone(p)
	//
	for i, f := range r {
		if f.Name == name {
			r[i].Value = val
			return r
		}
	}
	//
	panic(fmt.Sprintf("unknown field %s", name))
}

// Default returns the default value of a given type.  This is the value
// produced, for example, when looking up a key which is not in a map.
func Default(t syntax.Type) Value {
	switch t := t.(type) {
	case *syntax.IntType:
		return int64(0)
	case *syntax.BoolType:
		return false
	case *syntax.StringType:
		return ""
	case *syntax.NativeType:
		return Native{t.Name, 0}
	case *syntax.BagType, *syntax.SetType, *syntax.ListType:
		return Bag{}
	case *syntax.MapType:
		return Map{}
	case *syntax.RecordType:
		r := make(Record, len(t.Fields))
		//
		for i, f := range t.Fields {
			r[i] = Field{f.Name, Default(f.Type)}
		}
		//
		return r
	case *syntax.TupleType:
		tuple := make(Tuple, len(t.Elems))
		//
		for i, e := range t.Elems {
			tuple[i] = Default(e)
		}
		//
		return tuple
	case *syntax.HandleType:
		return Handle{0}
	case *syntax.HeapType:
		return Heap{Min: t.Min}
	default:
		panic(fmt.Sprintf("unknown type %s", t))
	}
}

// ===================================================================
// Equality & Ordering
// ===================================================================

// Equal determines whether two values are equal.  Bags are compared as
// multisets, i.e. irrespective of the order of their elements.
func Equal(v1 Value, v2 Value) bool {
	return Compare(v1, v2) == 0
}

// Compare provides a total order over values of the same type, returning a
// negative number, zero or a positive number if the first value is
// respectively less than, equal to or greater than the second.
func Compare(v1 Value, v2 Value) int {
	switch v1 := v1.(type) {
	case int64:
		return cmpOrdered(v1, v2.(int64))
	case bool:
		b2 := v2.(bool)
		//
		switch {
		case v1 == b2:
			return 0
		case b2:
			return -1
		default:
			return 1
		}
	case string:
		return strings.Compare(v1, v2.(string))
	case Native:
		return cmpOrdered(v1.ID, v2.(Native).ID)
	case Handle:
		return cmpOrdered(v1.Addr, v2.(Handle).Addr)
	case Bag:
		return compareSeq(sorted(v1), sorted(v2.(Bag)))
	case Tuple:
		return compareSeq(v1, v2.(Tuple))
	case Record:
		r2 := v2.(Record)
		//
		for i := range v1 {
			if c := Compare(v1[i].Value, r2[i].Value); c != 0 {
				return c
			}
		}
		//
		return 0
	case Map:
		m2 := v2.(Map)
		//
		for i := 0; i < len(v1) && i < len(m2); i++ {
			if c := Compare(v1[i].Key, m2[i].Key); c != 0 {
				return c
			} else if c := Compare(v1[i].Value, m2[i].Value); c != 0 {
				return c
			}
		}
		//
		return cmpOrdered(len(v1), len(m2))
	case Heap:
		return compareSeq(v1.Elems, v2.(Heap).Elems)
	default:
		panic(fmt.Sprintf("unknown value %v", v1))
	}
}

func cmpOrdered[T int | int64](a T, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareSeq(s1 []Value, s2 []Value) int {
	for i := 0; i < len(s1) && i < len(s2); i++ {
		if c := Compare(s1[i], s2[i]); c != 0 {
			return c
		}
	}
	//
	return cmpOrdered(len(s1), len(s2))
}

func sorted(bag Bag) Bag {
	s := slices.Clone(bag)
	slices.SortStableFunc(s, Compare)
	//
	return s
}

// ===================================================================
// Bag Operations
// ===================================================================

// Union returns the multiset union of two bags.
func Union(b1 Bag, b2 Bag) Bag {
	return append(slices.Clone(b1), b2...)
}

// Subtract removes one occurrence from the first bag of each element in the
// second bag.
func Subtract(b1 Bag, b2 Bag) Bag {
	result := slices.Clone(b1)
	//
	for _, v := range b2 {
		if i := slices.IndexFunc(result, func(w Value) bool { return Equal(v, w) }); i >= 0 {
			result = slices.Delete(result, i, i+1)
		}
	}
	//
	return result
}

// Intersect returns the multiset intersection of two bags, where the number of
// occurrences of each element is the minimum of its counts in either bag.
func Intersect(b1 Bag, b2 Bag) Bag {
	var (
		result    Bag
		remaining = slices.Clone(b2)
	)
	//
	for _, v := range b1 {
		if i := slices.IndexFunc(remaining, func(w Value) bool { return Equal(v, w) }); i >= 0 {
			remaining = slices.Delete(remaining, i, i+1)
			result = append(result, v)
		}
	}
	//
	return result
}

// Count returns the number of occurrences of a value within a bag.
func Count(v Value, bag Bag) int64 {
	var n int64
	//
	for _, w := range bag {
		if Equal(v, w) {
			n++
		}
	}
	//
	return n
}

// Distinct removes all but the first occurrence of each element in a bag.
func Distinct(bag Bag) Bag {
	var result Bag
	//
	for _, v := range bag {
		if Count(v, result) == 0 {
			result = append(result, v)
		}
	}
	//
	return result
}
