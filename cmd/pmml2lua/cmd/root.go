// Copyright 2024 The pmml2lua Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements the pmml2lua command line tool, grounded on
// cmd/cue/cmd's shape: a Command wrapper around *cobra.Command, one file
// per sub-command, and a package-level Main that both `main.go` and
// tests can call.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lnrisk/pmml2lua/internal/diag"
)

// Command wraps the cobra command tree with the shared trace printer
// every sub-command's RunE can reach.
type Command struct {
	*cobra.Command

	trace  bool
	printer *diag.Printer
}

func (c *Command) Tracef(format string, args ...any) {
	if !c.trace {
		return
	}
	c.printer.Tracef(c.OutOrStderr(), format, args...)
}

// New builds the root command and wires every sub-command factory onto
// it. The returned error is always nil; it mirrors cmd/cue/cmd's New for
// API symmetry.
func New(args []string) (*Command, error) {
	root := &cobra.Command{
		Use:   "pmml2lua",
		Short: "compile a PMML scoring model into a self-contained Lua program",

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	c := &Command{Command: root, printer: diag.NewPrinter()}
	root.PersistentFlags().BoolVarP(&c.trace, "trace", "v", false, "print compiler trace output to stderr")

	for _, sub := range []*cobra.Command{
		newCompileCmd(c),
		newFieldsCmd(c),
		newRunCmd(c),
	} {
		root.AddCommand(sub)
	}

	root.SetArgs(args)
	return c, nil
}

// Main runs the tool and returns a process exit code, the way
// cmd/cue/cmd.Main does.
func Main() int {
	c, _ := New(os.Args[1:])
	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
