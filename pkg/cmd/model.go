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
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model [flags] goal_file(s)",
	Short: "Find a smallest state satisfying each goal's assumptions.",
	Long: `Find a smallest state (and arguments) satisfying each goal's assumptions and
	invariants.  Optionally, the goal's op must also change the value of its expression.
	This is useful for checking goals are not vacuous.`,
	Run: func(cmd *cobra.Command, args []string) {
		changes := GetFlag(cmd, "changes")
		//
		runGoals(cmd, args, modelGoal(changes))
	},
}

// Print a smallest model of a goal's assumptions.
func modelGoal(changes bool) goalFn {
	return func(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
		var (
			scope = s.scope(goal)
			facts = append(append([]syntax.Exp{}, goal.Assumptions...), goal.Invariants...)
		)
		//
		if changes {
			changed, err := s.engine.Changed(ctx, goal.Exp, scope, goal.Op, syntax.All(facts...))
			if err != nil {
				return err
			}
			//
			facts = append(facts, changed)
		}
		//
		oracle := s.engine.Oracle(scope)
		//
		m, err := solver.MinimalModel(ctx, oracle, syntax.All(facts...), s.config.Oracle.CollectionDepth)
		if err != nil {
			return err
		} else if m == nil {
			fmt.Fprintln(out, ";; no model")
		} else {
			fmt.Fprint(out, solver.FormatModel(m))
		}
		//
		return nil
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.Flags().Bool("changes", false, "require the op to change the expression")
}
