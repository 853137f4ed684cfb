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

var (
	// True is the boolean constant true.
	True = &BoolLit{true}
	// False is the boolean constant false.
	False = &BoolLit{false}
	// Zero is the integer constant 0.
	Zero = &NumLit{0}
	// One is the integer constant 1.
	One = &NumLit{1}
)

// NewVar constructs a variable of a given type.
func NewVar(name string, t Type) *Var {
	return &Var{name, t}
}

// NewBool constructs a boolean literal.
func NewBool(value bool) *BoolLit {
	if value {
		return True
	}
	//
	return False
}

// NewNum constructs an integer literal.
func NewNum(value int64) *NumLit {
	return &NumLit{value}
}

// NewStr constructs a string literal.
func NewStr(value string) *StrLit {
	return &StrLit{value}
}

// NewUnary constructs a unary expression, inferring its type from the operator
// and argument.
func NewUnary(op UnaryOp, arg Exp) *Unary {
	var t Type
	//
	switch op {
	case Not, Exists, Empty:
		t = Bool
	case Neg, Len, Sum:
		t = Int
	case Distinct:
		t = arg.Type()
	case The:
		t = ElemType(arg.Type())
	default:
		panic("unknown unary operator")
	}
	//
	return &Unary{op, arg, t}
}

// NewBinary constructs a binary expression, inferring its type from the
// operator and arguments.
func NewBinary(op BinaryOp, lhs Exp, rhs Exp) *Binary {
	var t Type
	//
	switch {
	case op == Plus || op == Minus || op == Times || op == Intersect:
		t = lhs.Type()
	case op == Count:
		t = Int
	default:
		t = Bool
	}
	//
	return &Binary{op, lhs, rhs, t}
}

// NewNot constructs the negation of a boolean expression, folding constants
// and double negations.
func NewNot(e Exp) Exp {
	switch e := e.(type) {
	case *BoolLit:
		return NewBool(!e.Value)
	case *Unary:
		if e.Op == Not {
			return e.Arg
		}
	}
	//
	return NewUnary(Not, e)
}

// All constructs the conjunction of zero or more boolean expressions, dropping
// trivially true conjuncts.
func All(es ...Exp) Exp {
	var result Exp
	//
	for _, e := range es {
		if b, ok := e.(*BoolLit); ok && b.Value {
			continue
		} else if ok {
			return False
		} else if result == nil {
			result = e
		} else {
			result = NewBinary(And, result, e)
		}
	}
	//
	if result == nil {
		return True
	}
	//
	return result
}

// AnyOf constructs the disjunction of zero or more boolean expressions,
// dropping trivially false disjuncts.
func AnyOf(es ...Exp) Exp {
	var result Exp
	//
	for _, e := range es {
		if b, ok := e.(*BoolLit); ok && !b.Value {
			continue
		} else if ok {
			return True
		} else if result == nil {
			result = e
		} else {
			result = NewBinary(Or, result, e)
		}
	}
	//
	if result == nil {
		return False
	}
	//
	return result
}

// NewImplies constructs an implication, folding constant operands.
func NewImplies(lhs Exp, rhs Exp) Exp {
	if b, ok := lhs.(*BoolLit); ok {
		if b.Value {
			return rhs
		}
		//
		return True
	} else if b, ok := rhs.(*BoolLit); ok {
		if b.Value {
			return True
		}
		//
		return NewNot(lhs)
	}
	//
	return NewBinary(Implies, lhs, rhs)
}

// NewEq constructs an equality between two expressions.
func NewEq(lhs Exp, rhs Exp) Exp {
	return NewBinary(Eq, lhs, rhs)
}

// NewCond constructs a conditional expression, collapsing it when the
// condition is constant or both branches are alpha-equivalent.
func NewCond(cond Exp, then Exp, els Exp) Exp {
	if b, ok := cond.(*BoolLit); ok {
		if b.Value {
			return then
		}
		//
		return els
	} else if AlphaEquivalent(then, els) {
		return then
	} else if b, ok := then.(*BoolLit); ok && b.Value {
		return AnyOf(cond, els)
	} else if ok {
		return All(NewNot(cond), els)
	} else if b, ok := els.(*BoolLit); ok && b.Value {
		return AnyOf(NewNot(cond), then)
	} else if ok {
		return All(cond, then)
	}
	//
	return &Cond{cond, then, els}
}

// NewEmpty constructs an empty collection of the given collection type.
func NewEmpty(t Type) *EmptyBag {
	return &EmptyBag{t}
}

// NewSingleton constructs a one element bag.
func NewSingleton(elem Exp) *Singleton {
	return &Singleton{elem, BagOf(elem.Type())}
}

// NewStateVar marks an expression as materialized state.  Expressions which are
// already marked are returned as is.
func NewStateVar(e Exp) Exp {
	if _, ok := e.(*StateVar); ok {
		return e
	}
	//
	return &StateVar{e}
}

// NewLambda constructs a lambda binding a given argument.
func NewLambda(arg *Var, body Exp) *Lambda {
	return &Lambda{arg, body}
}

// IsEmptyBag checks whether an expression is syntactically the empty
// collection.
func IsEmptyBag(e Exp) bool {
	_, ok := e.(*EmptyBag)
	return ok
}

// IsTrue checks whether an expression is the literal true.
func IsTrue(e Exp) bool {
	b, ok := e.(*BoolLit)
	return ok && b.Value
}

// IsFalse checks whether an expression is the literal false.
func IsFalse(e Exp) bool {
	b, ok := e.(*BoolLit)
	return ok && !b.Value
}
