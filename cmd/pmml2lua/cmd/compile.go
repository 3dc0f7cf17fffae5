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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lnrisk/pmml2lua"
)

func newCompileCmd(c *Command) *cobra.Command {
	var (
		outPath      string
		lowercase    bool
		inputTable   bool
		outputTable  bool
		funcName     string
	)

	cmd := &cobra.Command{
		Use:   "compile <model.pmml>",
		Short: "compile a PMML document into a Lua scoring function",
		Long: `compile reads a PMML document and emits the Lua source of a
self-contained function implementing its scoring logic.

Examples:

	pmml2lua compile tree.pmml
	pmml2lua compile --out score.lua --lowercase scorecard.pmml
`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := pmml2lua.Options{
				Lowercase: lowercase,
				FuncName:  funcName,
			}
			if inputTable {
				opts.InputFormat = pmml2lua.InputTable
			}
			if outputTable {
				opts.OutputFormat = pmml2lua.OutputTable
			}

			c.Tracef("compiling %s", args[0])
			result, err := pmml2lua.Compile(f, opts)
			if err != nil {
				return err
			}
			c.Tracef("compiled %d input field(s), %d output field(s)", len(result.Inputs), len(result.Outputs))

			if outPath == "" {
				fmt.Fprint(c.OutOrStdout(), result.Source)
				return nil
			}
			return os.WriteFile(outPath, []byte(result.Source), 0o644)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write Lua source to this file instead of stdout")
	cmd.Flags().BoolVar(&lowercase, "lowercase", false, "lowercase string literals and input/output table keys (identifiers keep their case)")
	cmd.Flags().BoolVar(&inputTable, "input-table", false, "accept a single table argument instead of multiple arguments")
	cmd.Flags().BoolVar(&outputTable, "output-table", false, "return a single table instead of multiple values")
	cmd.Flags().StringVar(&funcName, "func-name", "", "name of the emitted Lua function (default \"func\")")

	return cmd
}
