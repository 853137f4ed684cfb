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
	"strconv"

	"github.com/consensys/go-incr/pkg/util/source/sexp"
)

// Lisp implementation for Exp interface.
func (e *Var) Lisp() sexp.SExp { return sexp.NewSymbol(e.Name) }

// Lisp implementation for Exp interface.
func (e *BoolLit) Lisp() sexp.SExp { return sexp.NewSymbol(strconv.FormatBool(e.Value)) }

// Lisp implementation for Exp interface.
func (e *NumLit) Lisp() sexp.SExp { return sexp.NewSymbol(strconv.FormatInt(e.Value, 10)) }

// Lisp implementation for Exp interface.
func (e *StrLit) Lisp() sexp.SExp { return sexp.NewSymbol(fmt.Sprintf("\"%s\"", e.Value)) }

// Lisp implementation for Exp interface.
func (e *Unary) Lisp() sexp.SExp {
	return sexp.NewApp(e.Op.String(), e.Arg.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Binary) Lisp() sexp.SExp {
	return sexp.NewApp(e.Op.String(), e.Lhs.Lisp(), e.Rhs.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Cond) Lisp() sexp.SExp {
	return sexp.NewApp("if", e.Cond.Lisp(), e.Then.Lisp(), e.Else.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Call) Lisp() sexp.SExp {
	args := []sexp.SExp{sexp.NewSymbol(e.Func), e.T.Lisp()}
	return sexp.NewApp("call", append(args, lispOfAll(e.Args)...)...)
}

// Lisp implementation for Exp interface.
func (e *MakeRecord) Lisp() sexp.SExp {
	fields := make([]sexp.SExp, len(e.Fields))
	//
	for i, f := range e.Fields {
		fields[i] = sexp.NewList([]sexp.SExp{sexp.NewSymbol(f.Name), f.Value.Lisp()})
	}
	//
	return sexp.NewApp("make-record", fields...)
}

// Lisp implementation for Exp interface.
func (e *GetField) Lisp() sexp.SExp {
	return sexp.NewApp("field", e.Record.Lisp(), sexp.NewSymbol(e.Field))
}

// Lisp implementation for Exp interface.
func (e *MakeTuple) Lisp() sexp.SExp {
	return sexp.NewApp("tuple", lispOfAll(e.Elems)...)
}

// Lisp implementation for Exp interface.
func (e *TupleGet) Lisp() sexp.SExp {
	return sexp.NewApp("nth", e.Tuple.Lisp(), sexp.NewSymbol(strconv.Itoa(e.Index)))
}

// Lisp implementation for Exp interface.
func (e *EmptyBag) Lisp() sexp.SExp {
	return sexp.NewApp("empty-bag", e.T.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Singleton) Lisp() sexp.SExp {
	if _, ok := e.T.(*BagType); ok {
		return sexp.NewSet([]sexp.SExp{e.Elem.Lisp()})
	}
	//
	return sexp.NewApp("singleton", e.T.Lisp(), e.Elem.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Map) Lisp() sexp.SExp {
	return sexp.NewApp("map", e.Source.Lisp(), e.F.Lisp())
}

// Lisp implementation for Exp interface.
func (e *Filter) Lisp() sexp.SExp {
	return sexp.NewApp("filter", e.Source.Lisp(), e.P.Lisp())
}

// Lisp implementation for Exp interface.
func (e *FlatMap) Lisp() sexp.SExp {
	return sexp.NewApp("flatmap", e.Source.Lisp(), e.F.Lisp())
}

// Lisp implementation for Exp interface.
func (e *ArgMin) Lisp() sexp.SExp {
	head := "argmin"
	//
	if e.Max {
		head = "argmax"
	}
	//
	return sexp.NewApp(head, e.Source.Lisp(), e.Key.Lisp())
}

// Lisp implementation for Exp interface.
func (e *MapGet) Lisp() sexp.SExp {
	return sexp.NewApp("get", e.Map.Lisp(), e.Key.Lisp())
}

// Lisp implementation for Exp interface.
func (e *MapKeys) Lisp() sexp.SExp {
	return sexp.NewApp("keys", e.Map.Lisp())
}

// Lisp implementation for Exp interface.
func (e *MakeMap) Lisp() sexp.SExp {
	return sexp.NewApp("make-map", e.Keys.Lisp(), e.Value.Lisp())
}

// Lisp implementation for Exp interface.
func (e *StateVar) Lisp() sexp.SExp {
	return sexp.NewApp("state", e.Exp.Lisp())
}

// Lisp implementation for Exp interface.
func (e *MakeHeap) Lisp() sexp.SExp {
	return sexp.NewApp("make-heap", sexp.NewSymbol(minMax(e.Min)), e.Source.Lisp(), e.Key.Lisp())
}

// Lisp implementation for Exp interface.
func (e *HeapPeek2) Lisp() sexp.SExp {
	return sexp.NewApp("heap-peek2", e.Heap.Lisp(), e.Len.Lisp())
}

// Lisp converts this lambda into an S-Expression.
func (p *Lambda) Lisp() sexp.SExp {
	return sexp.NewApp("lambda", p.Arg.Lisp(), p.Body.Lisp())
}

func lispOfAll(es []Exp) []sexp.SExp {
	items := make([]sexp.SExp, len(es))
	//
	for i, e := range es {
		items[i] = e.Lisp()
	}
	//
	return items
}

// ===================================================================
// Printing
// ===================================================================

// Print returns the single line rendering of an expression.
func Print(e Exp) string {
	return e.Lisp().String(true)
}

// Pretty renders an S-Expression across multiple lines, such that each line
// fits (where possible) within a given width.
func Pretty(s sexp.SExp, width uint) string {
	return newFormatter(width).Format(s)
}

func newFormatter(width uint) *sexp.Formatter {
	formatter := sexp.NewFormatter(width)
	// Binders keep their source inline
	formatter.Add("map", 2)
	formatter.Add("filter", 2)
	formatter.Add("flatmap", 2)
	formatter.Add("argmin", 2)
	formatter.Add("argmax", 2)
	formatter.Add("make-map", 2)
	formatter.Add("lambda", 2)
	formatter.Add("if", 2)
	formatter.Add("foreach", 3)
	formatter.Add("map-update", 4)
	formatter.Add("query", 2)
	//
	return formatter
}
