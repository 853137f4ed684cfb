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
	"io"

	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/spf13/cobra"
)

var mutateCmd = &cobra.Command{
	Use:   "mutate [flags] goal_file(s)",
	Short: "Determine the value of each goal's expression after its op.",
	Long: `Determine the value of each goal's expression after its op executes, expressed
	over the state before it executes.  Optionally, the result is simplified under the
	goal's assumptions.`,
	Run: func(cmd *cobra.Command, args []string) {
		optimise := GetFlag(cmd, "optimise")
		//
		runGoals(cmd, args, mutateGoal(optimise))
	},
}

// Print the value of a goal's expression after its op.
func mutateGoal(optimise bool) goalFn {
	return func(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
		after, err := incr.Mutate(goal.Exp, goal.Op)
		if err != nil {
			return err
		} else if optimise {
			pc := syntax.All(goal.Assumptions...)
			//
			if after, err = s.engine.Optimize(ctx, after, s.scope(goal), pc); err != nil {
				return err
			}
		}
		//
		s.print(out, after.Lisp())
		//
		return nil
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(mutateCmd)
	mutateCmd.Flags().BoolP("optimise", "O", false, "simplify results under the goal's assumptions")
}
