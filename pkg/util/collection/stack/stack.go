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
package stack

// Stack is a generic LIFO stack, searched from the top down.  Readers and
// canonicalisers use it to track the binders in scope, where the offset of an
// item from the top is the de Bruijn index of the binder it records.
type Stack[T any] struct {
	items []T
}

// NewStack constructs an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push an item onto the top of the stack.
func (p *Stack[T]) Push(item T) {
	p.items = append(p.items, item)
}

// Len returns the number of items on the stack.
func (p *Stack[T]) Len() uint {
	return uint(len(p.items))
}

// Pop removes the top item of the stack and returns it.
func (p *Stack[T]) Pop() T {
	n := len(p.items)
	//
	if n == 0 {
		panic("cannot pop from empty stack")
	}
	//
	item := p.items[n-1]
	p.items = p.items[:n-1]
	//
	return item
}

// Find returns the offset from the top of the first item satisfying a given
// predicate, such that inner binders shadow outer ones.
func (p *Stack[T]) Find(pred func(T) bool) (uint, bool) {
	for i := len(p.items) - 1; i >= 0; i-- {
		if pred(p.items[i]) {
			return uint(len(p.items) - 1 - i), true
		}
	}
	//
	return 0, false
}
