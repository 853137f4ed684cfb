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
	"fmt"

	"github.com/consensys/go-incr/pkg/util/collection/hash"
	"github.com/consensys/go-incr/pkg/util/collection/stack"
)

// Key is a canonical representation of an expression, such that two
// expressions have equal keys if and only if they are alpha-equivalent.  Keys
// are constructed by numbering bound variables by the depth of their binder
// (i.e. de Bruijn levels), and rendering the result.
type Key = hash.StringKey

// KeyOf computes the canonical key of an expression.
func KeyOf(e Exp) Key {
	canonical := canonicalise(e, stack.NewStack[string]())
	return hash.NewStringKey(canonical.Lisp().String(true))
}

// AlphaEquivalent checks whether two expressions are identical up to the
// renaming of bound variables.
func AlphaEquivalent(e1 Exp, e2 Exp) bool {
	if e1 == e2 {
		return true
	}
	//
	return KeyOf(e1).Equals(KeyOf(e2))
}

// Canonical renames the bound variables of an expression according to the
// depth of their binder.
func Canonical(e Exp) Exp {
	return canonicalise(e, stack.NewStack[string]())
}

func canonicalise(e Exp, scope *stack.Stack[string]) Exp {
	if v, ok := e.(*Var); ok {
		offset, found := scope.Find(func(name string) bool { return name == v.Name })
		//
		if found {
			level := scope.Len() - 1 - offset
			return &Var{boundName(level), v.T}
		}
		//
		return v
	}
	//
	return Transform(e, func(c Exp) Exp {
		return canonicalise(c, scope)
	}, func(l *Lambda) *Lambda {
		arg := &Var{boundName(scope.Len()), l.Arg.T}
		scope.Push(l.Arg.Name)
		body := canonicalise(l.Body, scope)
		scope.Pop()
		//
		return &Lambda{arg, body}
	})
}

func boundName(level uint) string {
	return fmt.Sprintf("#%d", level)
}
