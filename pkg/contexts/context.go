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
package contexts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Pool identifies whether a variable denotes persistent abstract state, or a
// value which exists only at runtime (e.g. a statement argument).
type Pool uint8

const (
	// State variables are materialized, and persist across operations.
	State Pool = iota
	// Runtime variables are local to a single operation.
	Runtime
)

func (p Pool) String() string {
	if p == State {
		return "state"
	}
	//
	return "runtime"
}

// VarPool pairs a variable with the pool it belongs to.
type VarPool struct {
	Var  *syntax.Var
	Pool Pool
}

// Context is a reasoning scope, determining which variables are available and
// whether they are abstract state or arguments.  Contexts are immutable and
// nest when reasoning proceeds under a binder.
type Context interface {
	// Vars returns every variable in scope, outermost first.
	Vars() []VarPool
	// Funcs returns the uninterpreted functions available in this context.
	Funcs() map[string]eval.Func
	// Parent returns the enclosing context, or nil for a root context.
	Parent() Context
	// Key returns a structural identity for this context, such that two
	// contexts with equal keys admit exactly the same reasoning.
	Key() string
}

// Root is the outermost context of a synthesis goal.
type Root struct {
	state []*syntax.Var
	args  []*syntax.Var
	funcs map[string]eval.Func
}

// UnderBinder is a context for reasoning about the body of a lambda, whose
// argument ranges over the elements of a given collection.
type UnderBinder struct {
	parent Context
	arg    *syntax.Var
	bag    syntax.Exp
	pool   Pool
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var (
	_ Context = (*Root)(nil)
	_ Context = (*UnderBinder)(nil)
)

// NewRoot constructs a root context over given state variables, arguments and
// uninterpreted functions.
func NewRoot(state []*syntax.Var, args []*syntax.Var, funcs map[string]eval.Func) *Root {
	if funcs == nil {
		funcs = make(map[string]eval.Func)
	}
	//
	return &Root{state, args, funcs}
}

// NewUnderBinder constructs a context for reasoning under a binder whose
// argument ranges over a given collection.
func NewUnderBinder(parent Context, arg *syntax.Var, bag syntax.Exp, pool Pool) *UnderBinder {
	return &UnderBinder{parent, arg, bag, pool}
}

// Vars implementation for Context interface.
func (p *Root) Vars() []VarPool {
	vars := make([]VarPool, 0, len(p.state)+len(p.args))
	//
	for _, v := range p.state {
		vars = append(vars, VarPool{v, State})
	}
	//
	for _, v := range p.args {
		vars = append(vars, VarPool{v, Runtime})
	}
	//
	return vars
}

// Funcs implementation for Context interface.
func (p *Root) Funcs() map[string]eval.Func { return p.funcs }

// Parent implementation for Context interface.
func (p *Root) Parent() Context { return nil }

// Key implementation for Context interface.
func (p *Root) Key() string {
	var builder strings.Builder
	//
	builder.WriteString("(root")
	//
	for _, vp := range p.Vars() {
		fmt.Fprintf(&builder, " (%s %s %s)", vp.Pool, vp.Var.Name, vp.Var.T)
	}
	//
	names := make([]string, 0, len(p.funcs))
	//
	for name := range p.funcs {
		names = append(names, name)
	}
	//
	slices.Sort(names)
	fmt.Fprintf(&builder, " (funcs %s)", strings.Join(names, " "))
	// Functions cannot be compared, hence equal names only denote the same
	// functions when drawn from the same table.
	if len(names) > 0 {
		fmt.Fprintf(&builder, " (table %p)", p.funcs)
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// Arg returns the variable bound by this context.
func (p *UnderBinder) Arg() *syntax.Var { return p.arg }

// Bag returns the collection over which the bound variable ranges.
func (p *UnderBinder) Bag() syntax.Exp { return p.bag }

// Vars implementation for Context interface.  The bound variable shadows any
// variable of the same name in the enclosing context.
func (p *UnderBinder) Vars() []VarPool {
	vars := slices.DeleteFunc(p.parent.Vars(), func(vp VarPool) bool {
		return vp.Var.Name == p.arg.Name
	})
	//
	return append(vars, VarPool{p.arg, p.pool})
}

// Funcs implementation for Context interface.
func (p *UnderBinder) Funcs() map[string]eval.Func { return p.parent.Funcs() }

// Parent implementation for Context interface.
func (p *UnderBinder) Parent() Context { return p.parent }

// Key implementation for Context interface.
func (p *UnderBinder) Key() string {
	return fmt.Sprintf("(under %s (%s %s %s) %s)", p.parent.Key(), p.pool, p.arg.Name, p.arg.T,
		syntax.Print(p.bag))
}

// ===================================================================
// Helpers
// ===================================================================

// StateVars returns the abstract state variables of a context.
func StateVars(ctx Context) []*syntax.Var {
	var vars []*syntax.Var
	//
	for _, vp := range ctx.Vars() {
		if vp.Pool == State {
			vars = append(vars, vp.Var)
		}
	}
	//
	return vars
}

// PathCondition returns the facts implied by the binders of a context, namely
// that each bound variable is an element of the collection it ranges over.
func PathCondition(ctx Context) syntax.Exp {
	var conds []syntax.Exp
	//
	for c := ctx; c != nil; c = c.Parent() {
		if ub, ok := c.(*UnderBinder); ok {
			conds = append(conds, syntax.NewBinary(syntax.In, ub.arg, ub.bag))
		}
	}
	//
	slices.Reverse(conds)
	//
	return syntax.All(conds...)
}

// Legal checks whether every free variable of an expression is in scope, with
// the type it was declared with.
func Legal(ctx Context, e syntax.Exp) bool {
	vars := ctx.Vars()
	//
	for _, v := range syntax.FreeVars(e) {
		if !slices.ContainsFunc(vars, func(vp VarPool) bool {
			return vp.Var.Name == v.Name && vp.Var.T.Equals(v.T)
		}) {
			return false
		}
	}
	//
	return true
}

// Lookup returns the variable of a given name in scope, or nil if there is no
// such variable.
func Lookup(ctx Context, name string) *syntax.Var {
	for _, vp := range ctx.Vars() {
		if vp.Var.Name == name {
			return vp.Var
		}
	}
	//
	return nil
}
