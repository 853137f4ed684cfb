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

// Simplify performs cheap bottom-up simplification of an expression, such as
// constant folding and the elimination of trivial conditionals.  The result
// always evaluates to the same value as the original.
func Simplify(e Exp) Exp {
	return Rewrite(e, simplifyNode)
}

func simplifyNode(e Exp) Exp {
	switch e := e.(type) {
	case *Unary:
		return simplifyUnary(e)
	case *Binary:
		return simplifyBinary(e)
	case *Cond:
		return NewCond(e.Cond, e.Then, e.Else)
	case *GetField:
		if r, ok := e.Record.(*MakeRecord); ok {
			for _, f := range r.Fields {
				if f.Name == e.Field {
					return f.Value
				}
			}
		}
	case *TupleGet:
		if t, ok := e.Tuple.(*MakeTuple); ok {
			return t.Elems[e.Index]
		}
	case *StateVar:
		switch e.Exp.(type) {
		case *BoolLit, *NumLit, *StrLit, *EmptyBag:
			return e.Exp
		}
	case *Filter:
		if b, ok := e.P.Body.(*BoolLit); ok {
			if b.Value {
				return e.Source
			}
			//
			return NewEmpty(e.Type())
		} else if IsEmptyBag(e.Source) {
			return NewEmpty(e.Type())
		}
	case *Map:
		if IsEmptyBag(e.Source) {
			return NewEmpty(e.Type())
		}
	}
	//
	return e
}

func simplifyUnary(e *Unary) Exp {
	switch e.Op {
	case Not:
		return NewNot(e.Arg)
	case Neg:
		if n, ok := e.Arg.(*NumLit); ok {
			return NewNum(-n.Value)
		}
	case Exists, Empty:
		var exists Exp
		//
		switch e.Arg.(type) {
		case *EmptyBag:
			exists = False
		case *Singleton:
			exists = True
		default:
			return e
		}
		//
		if e.Op == Empty {
			return NewNot(exists)
		}
		//
		return exists
	case Len:
		switch e.Arg.(type) {
		case *EmptyBag:
			return Zero
		case *Singleton:
			return One
		}
	case Distinct:
		switch e.Arg.(type) {
		case *EmptyBag, *Singleton:
			return e.Arg
		}
	}
	//
	return e
}

func simplifyBinary(e *Binary) Exp {
	switch e.Op {
	case And:
		return All(e.Lhs, e.Rhs)
	case Or:
		return AnyOf(e.Lhs, e.Rhs)
	case Implies:
		return NewImplies(e.Lhs, e.Rhs)
	case Eq, Ne:
		if b, ok := equalLiterals(e.Lhs, e.Rhs); ok {
			return NewBool(b == (e.Op == Eq))
		} else if AlphaEquivalent(e.Lhs, e.Rhs) {
			return NewBool(e.Op == Eq)
		}
	case Plus, Minus, Times:
		if IsCollection(e.T) {
			return simplifyBagOp(e)
		}
		//
		return simplifyArith(e)
	case Lt, Le, Gt, Ge:
		l, ok1 := e.Lhs.(*NumLit)
		r, ok2 := e.Rhs.(*NumLit)
		//
		if ok1 && ok2 {
			return NewBool(compareInts(e.Op, l.Value, r.Value))
		}
	case In:
		if IsEmptyBag(e.Rhs) {
			return False
		} else if s, ok := e.Rhs.(*Singleton); ok {
			return simplifyBinary(&Binary{Eq, e.Lhs, s.Elem, Bool})
		}
	case Intersect:
		if IsEmptyBag(e.Lhs) {
			return e.Lhs
		} else if IsEmptyBag(e.Rhs) {
			return e.Rhs
		}
	}
	//
	return e
}

func simplifyBagOp(e *Binary) Exp {
	switch {
	case e.Op == Plus && IsEmptyBag(e.Lhs):
		return e.Rhs
	case e.Op == Plus && IsEmptyBag(e.Rhs):
		return e.Lhs
	case e.Op == Minus && (IsEmptyBag(e.Lhs) || IsEmptyBag(e.Rhs)):
		return e.Lhs
	case e.Op == Minus && AlphaEquivalent(e.Lhs, e.Rhs):
		return NewEmpty(e.T)
	}
	//
	return e
}

func simplifyArith(e *Binary) Exp {
	l, ok1 := e.Lhs.(*NumLit)
	r, ok2 := e.Rhs.(*NumLit)
	//
	switch {
	case ok1 && ok2 && e.Op == Plus:
		return NewNum(l.Value + r.Value)
	case ok1 && ok2 && e.Op == Minus:
		return NewNum(l.Value - r.Value)
	case ok1 && ok2:
		return NewNum(l.Value * r.Value)
	case ok2 && r.Value == 0 && e.Op != Times:
		return e.Lhs
	case ok1 && l.Value == 0 && e.Op == Plus:
		return e.Rhs
	}
	//
	return e
}

func compareInts(op BinaryOp, l int64, r int64) bool {
	switch op {
	case Lt:
		return l < r
	case Le:
		return l <= r
	case Gt:
		return l > r
	default:
		return l >= r
	}
}

// Determine whether two literals are equal, returning false for the second
// result if either expression is not a literal.
func equalLiterals(lhs Exp, rhs Exp) (bool, bool) {
	switch l := lhs.(type) {
	case *BoolLit:
		if r, ok := rhs.(*BoolLit); ok {
			return l.Value == r.Value, true
		}
	case *NumLit:
		if r, ok := rhs.(*NumLit); ok {
			return l.Value == r.Value, true
		}
	case *StrLit:
		if r, ok := rhs.(*StrLit); ok {
			return l.Value == r.Value, true
		}
	}
	//
	return false, false
}
