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
	"strings"

	"github.com/consensys/go-incr/pkg/util/source"
	"github.com/consensys/go-incr/pkg/util/source/sexp"
)

// ReadType reads a type from its textual S-Expression representation.
func ReadType(text string) (Type, error) {
	s, r, err := parse(text)
	if err != nil {
		return nil, err
	}
	//
	return r.readType(s)
}

// ReadExp reads an expression from its textual S-Expression representation,
// where the given variables are in scope.
func ReadExp(text string, vars ...*Var) (Exp, error) {
	s, r, err := parse(text, vars...)
	if err != nil {
		return nil, err
	}
	//
	return r.readExp(s)
}

// ReadStm reads a statement from its textual S-Expression representation,
// where the given variables are in scope.
func ReadStm(text string, vars ...*Var) (Stm, error) {
	s, r, err := parse(text, vars...)
	if err != nil {
		return nil, err
	}
	//
	return r.readStm(s)
}

func parse(text string, vars ...*Var) (sexp.SExp, *reader, error) {
	file := source.NewSourceFile("<input>", []byte(text))
	s, srcmap, err := sexp.Parse(file)
	//
	if err != nil {
		return nil, nil, err
	}
	//
	return s, newReader(srcmap, vars), nil
}

// reader translates S-Expressions into types, expressions and statements,
// reporting errors against the source map.
type reader struct {
	srcmap *source.Map[sexp.SExp]
	// Variables in scope, where later entries shadow earlier ones.
	scope []*Var
}

func newReader(srcmap *source.Map[sexp.SExp], vars []*Var) *reader {
	return &reader{srcmap, append([]*Var{}, vars...)}
}

func (r *reader) lookup(name string) *Var {
	for i := len(r.scope) - 1; i >= 0; i-- {
		if r.scope[i].Name == name {
			return r.scope[i]
		}
	}
	//
	return nil
}

func (r *reader) error(s sexp.SExp, msg string, args ...any) error {
	return r.srcmap.SyntaxError(s, fmt.Sprintf(msg, args...))
}

// ===================================================================
// Types
// ===================================================================

func (r *reader) readType(s sexp.SExp) (Type, error) {
	if sym := s.AsSymbol(); sym != nil {
		switch sym.Value {
		case "int":
			return Int, nil
		case "bool":
			return Bool, nil
		case "string":
			return String, nil
		}
		//
		return nil, r.error(s, "unknown type %s", sym.Value)
	}
	//
	list := s.AsList()
	//
	if list == nil || list.Len() == 0 {
		return nil, r.error(s, "invalid type")
	}
	//
	args, err := r.readTypes(list.Elements[1:])
	//
	switch {
	case list.MatchSymbols(2, "native"):
		return &NativeType{list.Get(1).AsSymbol().Value}, nil
	case list.MatchSymbols(3, "handle") && list.Get(1).AsSymbol() != nil:
		value, err := r.readType(list.Get(2))
		return &HandleType{list.Get(1).AsSymbol().Value, value}, err
	case list.MatchSymbols(1, "record"):
		return r.readRecordType(list)
	case list.Len() == 4 && (list.MatchSymbols(2, "heap", "min") || list.MatchSymbols(2, "heap", "max")):
		elem, err1 := r.readType(list.Get(2))
		key, err2 := r.readType(list.Get(3))
		//
		return &HeapType{list.Get(1).AsSymbol().Value == "min", elem, key}, firstError(err1, err2)
	case err != nil:
		return nil, err
	case list.MatchSymbols(1, "bag") && len(args) == 1:
		return &BagType{args[0]}, nil
	case list.MatchSymbols(1, "set") && len(args) == 1:
		return &SetType{args[0]}, nil
	case list.MatchSymbols(1, "list") && len(args) == 1:
		return &ListType{args[0]}, nil
	case list.MatchSymbols(1, "map") && len(args) == 2:
		return &MapType{args[0], args[1]}, nil
	case list.MatchSymbols(1, "tuple") && len(args) > 0:
		return &TupleType{args}, nil
	}
	//
	return nil, r.error(s, "invalid type")
}

func (r *reader) readTypes(items []sexp.SExp) ([]Type, error) {
	types := make([]Type, len(items))
	//
	for i, item := range items {
		t, err := r.readType(item)
		if err != nil {
			return nil, err
		}
		//
		types[i] = t
	}
	//
	return types, nil
}

func (r *reader) readRecordType(list *sexp.List) (Type, error) {
	var fields []Field
	//
	for _, item := range list.Elements[1:] {
		f := item.AsList()
		//
		if f == nil || f.Len() != 2 || f.Get(0).AsSymbol() == nil {
			return nil, r.error(item, "invalid record field")
		}
		//
		t, err := r.readType(f.Get(1))
		if err != nil {
			return nil, err
		}
		//
		fields = append(fields, Field{f.Get(0).AsSymbol().Value, t})
	}
	//
	return &RecordType{fields}, nil
}

// ===================================================================
// Expressions
// ===================================================================

func (r *reader) readExp(s sexp.SExp) (Exp, error) {
	switch s := s.(type) {
	case *sexp.Symbol:
		return r.readSymbol(s)
	case *sexp.Set:
		return r.readBagLiteral(s)
	case *sexp.List:
		if s.Len() == 0 || s.Get(0).AsSymbol() == nil {
			return nil, r.error(s, "invalid expression")
		}
		//
		return r.readApp(s)
	default:
		panic("unreachable")
	}
}

func (r *reader) readExps(items []sexp.SExp) ([]Exp, error) {
	exps := make([]Exp, len(items))
	//
	for i, item := range items {
		e, err := r.readExp(item)
		if err != nil {
			return nil, err
		}
		//
		exps[i] = e
	}
	//
	return exps, nil
}

func (r *reader) readSymbol(s *sexp.Symbol) (Exp, error) {
	switch {
	case s.Value == "true":
		return True, nil
	case s.Value == "false":
		return False, nil
	case s.IsQuoted():
		return NewStr(s.Value[1 : len(s.Value)-1]), nil
	}
	//
	if n, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
		return NewNum(n), nil
	} else if v := r.lookup(s.Value); v != nil {
		return v, nil
	}
	//
	return nil, r.error(s, "unknown variable %s", s.Value)
}

func (r *reader) readBagLiteral(s *sexp.Set) (Exp, error) {
	if s.Len() == 0 {
		return nil, r.error(s, "empty bag requires a type, use (empty-bag T)")
	}
	//
	elems, err := r.readExps(s.Elements)
	if err != nil {
		return nil, err
	}
	//
	var bag Exp = NewSingleton(elems[0])
	//
	for _, e := range elems[1:] {
		bag = NewBinary(Plus, bag, NewSingleton(e))
	}
	//
	return bag, nil
}

//nolint:gocyclo
func (r *reader) readApp(list *sexp.List) (Exp, error) {
	var (
		head  = list.Head()
		arity = list.Len() - 1
	)
	//
	if op, ok := unaryOpOf(head); ok && arity == 1 {
		return r.readUnary(list, op)
	} else if op, ok := binaryOpOf(head); ok && arity == 2 {
		return r.readBinary(list, op)
	} else if (head == "and" || head == "or") && arity > 2 {
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		} else if head == "and" {
			return foldBinary(And, args), nil
		}
		//
		return foldBinary(Or, args), nil
	}
	//
	switch {
	case head == "if" && arity == 3:
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		}
		//
		return &Cond{args[0], args[1], args[2]}, nil
	case head == "call" && arity >= 2 && list.Get(1).AsSymbol() != nil:
		t, err := r.readType(list.Get(2))
		if err != nil {
			return nil, err
		}
		//
		args, err := r.readExps(list.Elements[3:])
		//
		return &Call{list.Get(1).AsSymbol().Value, args, t}, err
	case head == "make-record":
		return r.readMakeRecord(list)
	case head == "field" && arity == 2 && list.Get(2).AsSymbol() != nil:
		record, err := r.readExp(list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		name := list.Get(2).AsSymbol().Value
		//
		if t := FieldType(record.Type(), name); t != nil {
			return &GetField{record, name, t}, nil
		}
		//
		return nil, r.error(list, "unknown field %s", name)
	case head == "tuple" && arity > 0:
		args, err := r.readExps(list.Elements[1:])
		return &MakeTuple{args}, err
	case head == "nth" && arity == 2:
		return r.readTupleGet(list)
	case head == "empty-bag" && arity == 1:
		t, err := r.readType(list.Get(1))
		if err != nil {
			return nil, err
		} else if !IsCollection(t) {
			return nil, r.error(list, "expected collection type")
		}
		//
		return NewEmpty(t), nil
	case head == "singleton" && arity == 2:
		t, err := r.readType(list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		elem, err := r.readExp(list.Get(2))
		//
		return &Singleton{elem, t}, err
	case head == "get" && arity == 2:
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		} else if _, ok := args[0].Type().(*MapType); !ok {
			return nil, r.error(list, "expected map")
		}
		//
		return &MapGet{args[0], args[1]}, nil
	case head == "keys" && arity == 1:
		m, err := r.readExp(list.Get(1))
		if err != nil {
			return nil, err
		} else if _, ok := m.Type().(*MapType); !ok {
			return nil, r.error(list, "expected map")
		}
		//
		return &MapKeys{m}, nil
	case head == "state" && arity == 1:
		e, err := r.readExp(list.Get(1))
		if err != nil {
			return nil, err
		}
		//
		return &StateVar{e}, nil
	case head == "heap-peek2" && arity == 2:
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		} else if _, ok := args[0].Type().(*HeapType); !ok {
			return nil, r.error(list, "expected heap")
		}
		//
		return &HeapPeek2{args[0], args[1]}, nil
	case head == "make-heap" && arity == 3:
		return r.readMakeHeap(list)
	case arity == 2:
		return r.readBinder(list)
	}
	//
	return nil, r.error(list, "unknown expression form %s", head)
}

func (r *reader) readUnary(list *sexp.List, op UnaryOp) (Exp, error) {
	arg, err := r.readExp(list.Get(1))
	if err != nil {
		return nil, err
	}
	//
	switch op {
	case Exists, Empty, Len, Sum, Distinct, The:
		if !IsCollection(arg.Type()) {
			return nil, r.error(list, "expected collection")
		}
	}
	//
	return NewUnary(op, arg), nil
}

func (r *reader) readBinary(list *sexp.List, op BinaryOp) (Exp, error) {
	args, err := r.readExps(list.Elements[1:])
	if err != nil {
		return nil, err
	}
	//
	if (op == In || op == Count) && !IsCollection(args[1].Type()) {
		return nil, r.error(list, "expected collection")
	}
	//
	return NewBinary(op, args[0], args[1]), nil
}

func (r *reader) readMakeRecord(list *sexp.List) (Exp, error) {
	var fields []FieldInit
	//
	for _, item := range list.Elements[1:] {
		f := item.AsList()
		//
		if f == nil || f.Len() != 2 || f.Get(0).AsSymbol() == nil {
			return nil, r.error(item, "invalid record field")
		}
		//
		value, err := r.readExp(f.Get(1))
		if err != nil {
			return nil, err
		}
		//
		fields = append(fields, FieldInit{f.Get(0).AsSymbol().Value, value})
	}
	//
	return &MakeRecord{fields}, nil
}

func (r *reader) readTupleGet(list *sexp.List) (Exp, error) {
	tuple, err := r.readExp(list.Get(1))
	if err != nil {
		return nil, err
	}
	//
	t, ok := tuple.Type().(*TupleType)
	if !ok {
		return nil, r.error(list, "expected tuple")
	}
	//
	index, err := strconv.Atoi(list.Get(2).String(false))
	if err != nil || index < 0 || index >= len(t.Elems) {
		return nil, r.error(list.Get(2), "invalid tuple index")
	}
	//
	return &TupleGet{tuple, index}, nil
}

func (r *reader) readMakeHeap(list *sexp.List) (Exp, error) {
	kind := list.Get(1).String(false)
	//
	if kind != "min" && kind != "max" {
		return nil, r.error(list.Get(1), "expected min or max")
	}
	//
	source, key, err := r.readSourceAndLambda(list)
	if err != nil {
		return nil, err
	}
	//
	return &MakeHeap{kind == "min", source, key}, nil
}

func (r *reader) readBinder(list *sexp.List) (Exp, error) {
	source, f, err := r.readSourceAndLambda(list)
	if err != nil {
		return nil, err
	}
	//
	switch list.Head() {
	case "map":
		return &Map{source, f}, nil
	case "filter":
		return &Filter{source, f}, nil
	case "flatmap":
		if !IsCollection(f.Body.Type()) {
			return nil, r.error(list, "expected collection valued function")
		}
		//
		return &FlatMap{source, f}, nil
	case "argmin", "argmax":
		return &ArgMin{list.Head() == "argmax", source, f}, nil
	case "make-map":
		return &MakeMap{source, f}, nil
	}
	//
	return nil, r.error(list, "unknown expression form %s", list.Head())
}

// Read the trailing source collection and lambda of a binding form.
func (r *reader) readSourceAndLambda(list *sexp.List) (Exp, *Lambda, error) {
	n := list.Len()
	//
	source, err := r.readExp(list.Get(n - 2))
	if err != nil {
		return nil, nil, err
	} else if !IsCollection(source.Type()) {
		return nil, nil, r.error(list.Get(n-2), "expected collection")
	}
	//
	lambda, err := r.readLambda(list.Get(n-1), ElemType(source.Type()))
	//
	return source, lambda, err
}

func (r *reader) readLambda(s sexp.SExp, argType Type) (*Lambda, error) {
	list := s.AsList()
	//
	if list == nil || !list.MatchSymbols(2, "lambda") || list.Len() != 3 || list.Get(1).AsSymbol() == nil {
		return nil, r.error(s, "expected (lambda x body)")
	}
	//
	name := list.Get(1).AsSymbol().Value
	//
	if err := r.checkName(list.Get(1), name); err != nil {
		return nil, err
	}
	//
	arg := NewVar(name, argType)
	r.scope = append(r.scope, arg)
	body, err := r.readExp(list.Get(2))
	r.scope = r.scope[:len(r.scope)-1]
	//
	if err != nil {
		return nil, err
	}
	//
	return &Lambda{arg, body}, nil
}

func (r *reader) checkName(s sexp.SExp, name string) error {
	if s.AsSymbol() == nil || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "\"") {
		return r.error(s, "invalid variable name %s", name)
	} else if _, err := strconv.ParseInt(name, 10, 64); err == nil || name == "true" || name == "false" {
		return r.error(s, "invalid variable name %s", name)
	}
	//
	return nil
}

func foldBinary(op BinaryOp, args []Exp) Exp {
	result := args[0]
	//
	for _, arg := range args[1:] {
		result = NewBinary(op, result, arg)
	}
	//
	return result
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	//
	return nil
}

// ===================================================================
// Statements
// ===================================================================

func (r *reader) readStm(s sexp.SExp) (Stm, error) {
	list := s.AsList()
	//
	if list == nil || list.Len() == 0 || list.Get(0).AsSymbol() == nil {
		return nil, r.error(s, "invalid statement")
	}
	//
	var (
		head  = list.Head()
		arity = list.Len() - 1
	)
	//
	switch {
	case head == "skip" && arity == 0:
		return Skip, nil
	case head == "seq":
		stms := make([]Stm, arity)
		//
		for i, item := range list.Elements[1:] {
			stm, err := r.readStm(item)
			if err != nil {
				return nil, err
			}
			//
			stms[i] = stm
		}
		//
		return SeqOf(stms...), nil
	case head == "if" && (arity == 2 || arity == 3):
		return r.readIf(list)
	case head == "assign" && arity == 2:
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		} else if RootVar(args[0]) == nil {
			return nil, r.error(list.Get(1), "expected lvalue")
		}
		//
		return &Assign{args[0], args[1]}, nil
	case head == "decl" && arity == 2 && list.Get(1).AsSymbol() != nil:
		name := list.Get(1).AsSymbol().Value
		//
		if err := r.checkName(list.Get(1), name); err != nil {
			return nil, err
		}
		//
		val, err := r.readExp(list.Get(2))
		if err != nil {
			return nil, err
		}
		// Declared variable remains in scope from here on
		v := NewVar(name, val.Type())
		r.scope = append(r.scope, v)
		//
		return &Decl{v, val}, nil
	case head == "foreach" && arity == 3:
		return r.readForEach(list)
	case head == "map-del" && arity == 2:
		args, err := r.readExps(list.Elements[1:])
		if err != nil {
			return nil, err
		}
		//
		return &MapDel{args[0], args[1]}, nil
	case head == "map-update" && arity == 4:
		return r.readMapUpdate(list)
	case arity == 2:
		for i, name := range callNames {
			if name == head {
				return r.readCall(list, CallFunc(i))
			}
		}
	}
	//
	return nil, r.error(list, "unknown statement form %s", head)
}

func (r *reader) readIf(list *sexp.List) (Stm, error) {
	cond, err := r.readExp(list.Get(1))
	if err != nil {
		return nil, err
	}
	//
	then, err := r.readStm(list.Get(2))
	if err != nil {
		return nil, err
	}
	//
	var els Stm = Skip
	//
	if list.Len() == 4 {
		if els, err = r.readStm(list.Get(3)); err != nil {
			return nil, err
		}
	}
	//
	return &If{cond, then, els}, nil
}

func (r *reader) readCall(list *sexp.List, fn CallFunc) (Stm, error) {
	args, err := r.readExps(list.Elements[1:])
	if err != nil {
		return nil, err
	}
	//
	target, arg := args[0], args[1]
	//
	if RootVar(target) == nil {
		return nil, r.error(list.Get(1), "expected lvalue")
	} else if ElemType(target.Type()) == nil {
		return nil, r.error(list.Get(1), "expected collection")
	} else if (fn == AddAll || fn == RemoveAll) && !IsCollection(arg.Type()) {
		return nil, r.error(list.Get(2), "expected collection")
	}
	//
	return &CallStm{target, fn, arg}, nil
}

func (r *reader) readForEach(list *sexp.List) (Stm, error) {
	name := list.Get(1).String(false)
	//
	if err := r.checkName(list.Get(1), name); err != nil {
		return nil, err
	}
	//
	bag, err := r.readExp(list.Get(2))
	if err != nil {
		return nil, err
	} else if !IsCollection(bag.Type()) {
		return nil, r.error(list.Get(2), "expected collection")
	}
	//
	v := NewVar(name, ElemType(bag.Type()))
	r.scope = append(r.scope, v)
	body, err := r.readStm(list.Get(3))
	r.scope = r.scope[:len(r.scope)-1]
	//
	if err != nil {
		return nil, err
	}
	//
	return &ForEach{v, bag, body}, nil
}

func (r *reader) readMapUpdate(list *sexp.List) (Stm, error) {
	args, err := r.readExps(list.Elements[1:3])
	if err != nil {
		return nil, err
	}
	//
	mt, ok := args[0].Type().(*MapType)
	if !ok {
		return nil, r.error(list.Get(1), "expected map")
	}
	//
	name := list.Get(3).String(false)
	//
	if err := r.checkName(list.Get(3), name); err != nil {
		return nil, err
	}
	//
	v := NewVar(name, mt.Value)
	r.scope = append(r.scope, v)
	body, err := r.readStm(list.Get(4))
	r.scope = r.scope[:len(r.scope)-1]
	//
	if err != nil {
		return nil, err
	}
	//
	return &MapUpdate{args[0], args[1], v, body}, nil
}
