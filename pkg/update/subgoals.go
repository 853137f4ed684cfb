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
package update

import (
	"fmt"

	"github.com/consensys/go-incr/pkg/syntax"
)

// Subgoals collects the queries issued whilst synthesizing update code.  Each
// query carries the assumptions in force at the point it was issued.
type Subgoals struct {
	updater     *Updater
	state       []*syntax.Var
	assumptions []syntax.Exp
	// Shared between a collection and its extensions.
	queries *[]*syntax.Query
}

func (p *Updater) newSubgoals(state []*syntax.Var, assumptions []syntax.Exp) *Subgoals {
	return &Subgoals{p, state, assumptions, new([]*syntax.Query)}
}

// Make issues a query computing a given expression, returning its invocation.
// Expressions which do not mention the abstract state are returned as is when
// stateless synthesis is skipped.
func (p *Subgoals) Make(e syntax.Exp, doc string) syntax.Exp {
	if p.updater.options.SkipStatelessSynthesis && !p.mentionsState(e) {
		return e
	}
	//
	name := fmt.Sprintf("query%d", p.updater.queries.Add(1))
	query := syntax.NewQuery(name, p.state, p.assumptions, e, doc)
	*p.queries = append(*p.queries, query)
	//
	return query.Invocation()
}

// Extend returns a view of these subgoals whose queries carry additional
// assumptions.  Queries issued through the view are collected here as well.
func (p *Subgoals) Extend(assumptions ...syntax.Exp) *Subgoals {
	all := append(append([]syntax.Exp{}, p.assumptions...), assumptions...)
	//
	return &Subgoals{p.updater, p.state, all, p.queries}
}

// Queries returns the queries issued so far.
func (p *Subgoals) Queries() []*syntax.Query {
	return *p.queries
}

func (p *Subgoals) mentionsState(e syntax.Exp) bool {
	for _, v := range syntax.FreeVars(e) {
		if isStateVar(p.state, v) {
			return true
		}
	}
	//
	return false
}
