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

// Maybe is a three valued truth value, used for structural facts which can be
// established (or refuted) syntactically in some cases, but not all.
type Maybe uint8

const (
	// No indicates the fact definitely does not hold.
	No Maybe = iota
	// Unknown indicates the fact may or may not hold.
	Unknown
	// Yes indicates the fact definitely holds.
	Yes
)

func (m Maybe) String() string {
	switch m {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "unknown"
	}
}

func maybe(b bool) Maybe {
	if b {
		return Yes
	}
	//
	return No
}

func definitely(m Maybe) bool {
	return m == Yes
}

func possibly(m Maybe) bool {
	return m != No
}

func both(x Maybe, y Maybe) Maybe {
	switch {
	case definitely(x) && definitely(y):
		return Yes
	case possibly(x) && possibly(y):
		return Unknown
	default:
		return No
	}
}

func invert(x Maybe) Maybe {
	switch x {
	case Yes:
		return No
	case No:
		return Yes
	default:
		return Unknown
	}
}

// Weaken a fact, such that only a definite refutation is retained.
func atMostUnknown(x Maybe) Maybe {
	if x == No {
		return No
	}
	//
	return Unknown
}

// Determine whether a collection holds at most one element.
func singletonOrEmpty(e syntax.Exp) Maybe {
	switch e := e.(type) {
	case *syntax.EmptyBag, *syntax.Singleton:
		return Yes
	case *syntax.StateVar:
		return singletonOrEmpty(e.Exp)
	case *syntax.Map:
		return singletonOrEmpty(e.Source)
	case *syntax.Filter:
		return singletonOrEmpty(e.Source)
	case *syntax.FlatMap:
		return both(singletonOrEmpty(e.Source), singletonOrEmpty(e.F.Body))
	case *syntax.Unary:
		if e.Op == syntax.Distinct {
			return singletonOrEmpty(e.Arg)
		}
	case *syntax.Cond:
		then, els := singletonOrEmpty(e.Then), singletonOrEmpty(e.Else)
		//
		if definitely(then) && definitely(els) {
			return Yes
		}
	}
	//
	return Unknown
}

// Determine whether a collection holds exactly one element.
func isSingleton(e syntax.Exp) Maybe {
	switch e := e.(type) {
	case *syntax.Singleton:
		return Yes
	case *syntax.EmptyBag:
		return No
	case *syntax.StateVar:
		return isSingleton(e.Exp)
	case *syntax.Map:
		return isSingleton(e.Source)
	case *syntax.Unary:
		if e.Op == syntax.Distinct {
			return isSingleton(e.Arg)
		}
	}
	//
	return Unknown
}

// Determine whether a collection holds no elements.
func isEmpty(e syntax.Exp) Maybe {
	switch e := e.(type) {
	case *syntax.EmptyBag:
		return Yes
	case *syntax.Singleton:
		return No
	case *syntax.StateVar:
		return isEmpty(e.Exp)
	case *syntax.Map:
		return isEmpty(e.Source)
	case *syntax.Filter:
		if definitely(isEmpty(e.Source)) {
			return Yes
		}
	case *syntax.Unary:
		if e.Op == syntax.Distinct {
			return isEmpty(e.Arg)
		}
	}
	//
	return Unknown
}

// Determine whether the elements of a collection are pairwise distinct.
func areUnique(e syntax.Exp) Maybe {
	switch e := e.(type) {
	case *syntax.EmptyBag, *syntax.Singleton:
		return Yes
	case *syntax.StateVar:
		return areUnique(e.Exp)
	case *syntax.Filter:
		if definitely(areUnique(e.Source)) {
			return Yes
		}
	case *syntax.Unary:
		if e.Op == syntax.Distinct {
			return Yes
		}
	}
	//
	return Unknown
}

// Determine whether x is an element of the collection xs.
func elementOf(x syntax.Exp, xs syntax.Exp) Maybe {
	if definitely(isEmpty(xs)) {
		return No
	}
	//
	switch xs := xs.(type) {
	case *syntax.Filter:
		return atMostUnknown(elementOf(x, xs.Source))
	case *syntax.Singleton:
		if syntax.AlphaEquivalent(x, xs.Elem) {
			return Yes
		}
	}
	//
	if u, ok := x.(*syntax.Unary); ok && u.Op == syntax.The {
		return both(subsetOf(u.Arg, xs), invert(isEmpty(u.Arg)))
	}
	//
	return Unknown
}

// Determine whether every element of xs is an element of ys.
func subsetOf(xs syntax.Exp, ys syntax.Exp) Maybe {
	if syntax.AlphaEquivalent(xs, ys) || definitely(isEmpty(xs)) {
		return Yes
	}
	//
	switch xs := xs.(type) {
	case *syntax.Cond:
		s1, s2 := subsetOf(xs.Then, ys), subsetOf(xs.Else, ys)
		//
		if definitely(s1) && definitely(s2) {
			return Yes
		} else if s1 == No && s2 == No {
			return No
		}
		//
		return Unknown
	case *syntax.Singleton:
		return elementOf(xs.Elem, ys)
	case *syntax.Filter:
		if definitely(subsetOf(xs.Source, ys)) {
			return Yes
		}
		//
		return Unknown
	case *syntax.Map:
		if xs.F.IsIdentity() {
			return subsetOf(xs.Source, ys)
		}
	}
	//
	if m, ok := ys.(*syntax.Map); ok && m.F.IsIdentity() {
		return subsetOf(xs, m.Source)
	}
	//
	return Unknown
}

// Determine whether an integer expression is never negative.
func nonnegative(x syntax.Exp) Maybe {
	switch x := x.(type) {
	case *syntax.NumLit:
		return maybe(x.Value >= 0)
	case *syntax.Unary:
		if x.Op == syntax.Len {
			return Yes
		}
	case *syntax.Binary:
		if x.Op == syntax.Plus {
			return both(nonnegative(x.Lhs), nonnegative(x.Rhs))
		}
	case *syntax.Cond:
		return both(nonnegative(x.Then), nonnegative(x.Else))
	}
	//
	return Unknown
}
