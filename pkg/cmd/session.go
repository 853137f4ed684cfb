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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/consensys/go-incr/pkg/config"
	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/consensys/go-incr/pkg/util/source"
	"github.com/consensys/go-incr/pkg/util/source/sexp"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// A session bundles the engine shared by all goals processed by a single
// command, along with its configuration.
type session struct {
	config *config.Config
	engine *incr.Engine
	// Line width for printing, where zero means print on one line.
	width uint
}

// A goalFn processes a single goal, writing its results to a given output.
type goalFn func(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error

// Construct a session from the configuration file and flags of a command.
func newSession(cmd *cobra.Command) *session {
	cfg, err := config.Load(GetString(cmd, "config"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	// Configure log level
	log.SetLevel(cfg.Level())
	//
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	//
	width := GetUint(cmd, "width")
	//
	if GetFlag(cmd, "raw") {
		width = 0
	} else if width == 0 {
		width = terminalWidth()
	}
	//
	return &session{cfg, cfg.NewEngine(), width}
}

// Determine the width of the terminal attached to stdout, or zero if stdout is
// not a terminal.
func terminalWidth() uint {
	fd := int(os.Stdout.Fd())
	//
	if term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			return uint(width)
		}
	}
	//
	return 0
}

// Process every goal in a given set of files.  Files are processed
// concurrently, but their output is reported in the order given.  Goals which
// cannot be incrementalized are reported and skipped, whilst any other failure
// terminates the command.
func runGoals(cmd *cobra.Command, filenames []string, fn goalFn) {
	var (
		s       = newSession(cmd)
		outputs = make([]bytes.Buffer, len(filenames))
		g, ctx  = errgroup.WithContext(context.Background())
	)
	//
	if len(filenames) == 0 {
		fmt.Println(cmd.UsageString())
		os.Exit(1)
	}
	//
	g.SetLimit(max(1, int(GetUint(cmd, "threads"))))
	//
	for i, filename := range filenames {
		g.Go(func() error {
			return s.runFile(ctx, filename, fn, &outputs[i])
		})
	}
	//
	err := g.Wait()
	//
	for _, out := range outputs {
		fmt.Print(out.String())
	}
	//
	if err != nil {
		var syntaxErr *source.SyntaxError
		//
		if errors.As(err, &syntaxErr) {
			printSyntaxError(syntaxErr)
		} else {
			fmt.Println(err)
		}
		//
		os.Exit(2)
	}
	//
	if GetFlag(cmd, "stats") {
		if err := s.printStats(os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
}

func (s *session) runFile(ctx context.Context, filename string, fn goalFn, out io.Writer) error {
	goals, err := readGoalFile(filename)
	if err != nil {
		return err
	}
	//
	log.Debug(fmt.Sprintf("read %d goal(s) from %s", len(goals), filename))
	//
	for _, goal := range goals {
		var (
			unsupported *incr.UnsupportedError
			inefficient *incr.InefficientError
		)
		//
		fmt.Fprintf(out, ";; %s\n", goal.Name)
		//
		if err := fn(ctx, s, goal, out); errors.As(err, &unsupported) || errors.As(err, &inefficient) {
			fmt.Fprintf(out, ";; skipped: %s\n", err)
		} else if err != nil {
			return fmt.Errorf("%s: goal %s: %w", filename, goal.Name, err)
		}
	}
	//
	return nil
}

// Root reasoning context of a goal.
func (s *session) scope(goal *syntax.Goal) contexts.Context {
	return contexts.NewRoot(goal.State, goal.Args, nil)
}

// Print an S-Expression, pretty printed if a width is configured.
func (s *session) print(out io.Writer, item sexp.SExp) {
	if s.width == 0 {
		fmt.Fprintln(out, item.String(true))
	} else {
		fmt.Fprintln(out, strings.TrimRight(syntax.Pretty(item, s.width), "\n"))
	}
}

// Print a labelled S-Expression.
func (s *session) printLabelled(out io.Writer, label string, item sexp.SExp) {
	s.print(out, sexp.NewApp(label, item))
}

// Print the counters of this session in the Prometheus text exposition
// format.
func (s *session) printStats(out io.Writer) error {
	families, err := s.engine.Metrics().Registry.Gather()
	if err != nil {
		return err
	}
	//
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	//
	return nil
}
