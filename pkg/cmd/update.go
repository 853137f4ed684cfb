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

	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/consensys/go-incr/pkg/update"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [flags] goal_file(s)",
	Short: "Synthesize code which maintains each goal's expression across its op.",
	Long: `Synthesize a statement which, given a variable holding the value of a goal's
	expression, updates it to hold the value after the goal's op.  Values the statement
	needs but cannot compute directly are issued as queries over the abstract state.`,
	Run: func(cmd *cobra.Command, args []string) {
		deltas := GetFlag(cmd, "deltas")
		noInline := GetFlag(cmd, "no-inline")
		//
		runGoals(cmd, args, updateGoal(deltas, noInline))
	},
}

// Print the update statement for a goal, along with the queries it needs.
func updateGoal(deltas bool, noInline bool) goalFn {
	return func(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
		options := s.config.UpdateOptions()
		options.UpdateNumbersWithDeltas = options.UpdateNumbersWithDeltas || deltas
		options.SkipStatelessSynthesis = options.SkipStatelessSynthesis && !noInline
		//
		updater := update.NewUpdater(s.engine, options, nil)
		updater.Register(update.HeapHandler{})
		//
		stm, queries, err := updater.MutateInPlace(ctx, update.Request{
			LVal:        syntax.NewVar(goal.Name, goal.Exp.Type()),
			Exp:         goal.Exp,
			Op:          goal.Op,
			State:       goal.State,
			Assumptions: goal.Assumptions,
			Invariants:  goal.Invariants,
		})
		//
		if err != nil {
			return err
		}
		//
		s.print(out, stm.Lisp())
		//
		for _, query := range queries {
			s.print(out, query.Lisp())
		}
		//
		return nil
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().Bool("deltas", false, "update numbers by adding their change")
	updateCmd.Flags().Bool("no-inline", false, "issue queries even for values not depending on the state")
}
