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

// UnaryOp identifies the operator of a unary expression.
type UnaryOp uint8

const (
	// Not is logical negation.
	Not UnaryOp = iota
	// Neg is arithmetic negation.
	Neg
	// Exists checks whether a collection is non-empty.
	Exists
	// Empty checks whether a collection is empty.
	Empty
	// Len returns the number of elements in a collection.
	Len
	// Sum adds together the elements of an integer collection.
	Sum
	// Distinct removes duplicate elements from a collection.
	Distinct
	// The returns the first element of a collection, or the default value of
	// its element type when the collection is empty.
	The
)

var unaryNames = [...]string{"not", "neg", "exists", "empty", "len", "sum", "distinct", "the"}

func (op UnaryOp) String() string {
	return unaryNames[op]
}

// BinaryOp identifies the operator of a binary expression.
type BinaryOp uint8

const (
	// Plus is integer addition, or bag union.
	Plus BinaryOp = iota
	// Minus is integer subtraction, or bag difference.
	Minus
	// Times is integer multiplication.
	Times
	// Eq is structural equality.
	Eq
	// Ne is structural disequality.
	Ne
	// Lt is "less than" under the total order on values.
	Lt
	// Le is "less than or equal".
	Le
	// Gt is "greater than".
	Gt
	// Ge is "greater than or equal".
	Ge
	// And is logical conjunction.
	And
	// Or is logical disjunction.
	Or
	// Implies is logical implication.
	Implies
	// In checks whether the left operand is an element of the right operand.
	In
	// Count returns the multiplicity of the left operand in the right operand.
	Count
	// Intersect is multiset intersection.
	Intersect
)

var binaryNames = [...]string{"+", "-", "*", "==", "!=", "<", "<=", ">", ">=", "and", "or", "=>", "in", "count",
	"intersect"}

func (op BinaryOp) String() string {
	return binaryNames[op]
}

// IsComparison checks whether this operator produces a boolean from two
// operands of the same type.
func (op BinaryOp) IsComparison() bool {
	return op >= Eq && op <= Ge
}

// IsLogical checks whether this operator combines two booleans.
func (op BinaryOp) IsLogical() bool {
	return op == And || op == Or || op == Implies
}

func unaryOpOf(name string) (UnaryOp, bool) {
	for i, n := range unaryNames {
		if n == name {
			return UnaryOp(i), true
		}
	}
	//
	return 0, false
}

func binaryOpOf(name string) (BinaryOp, bool) {
	for i, n := range binaryNames {
		if n == name {
			return BinaryOp(i), true
		}
	}
	//
	return 0, false
}
