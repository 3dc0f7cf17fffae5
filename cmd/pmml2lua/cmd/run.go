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
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lnrisk/pmml2lua"
)

// newRunCmd scores every row of a CSV of feature vectors against a
// compiled model by shelling out to a user-supplied lua interpreter
// (SPEC_FULL.md §4's Non-goals explicitly exclude embedding one). This is
// deliberately thin: a header-matched CSV reader and a print-and-parse
// round trip through the external interpreter, not a CSV/Lua framework.
func newRunCmd(c *Command) *cobra.Command {
	var luaBin string

	cmd := &cobra.Command{
		Use:   "run <model.pmml> <data.csv>",
		Short: "score each row of a CSV file against a compiled model",
		Long: `run compiles model.pmml and, for every row of data.csv (whose header
must name a subset of the model's input fields), invokes the compiled
function through an external lua interpreter and prints its results as
CSV, one line per input row.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			modelFile, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer modelFile.Close()

			result, err := pmml2lua.Compile(modelFile, pmml2lua.Options{FuncName: "score"})
			if err != nil {
				return err
			}

			dataFile, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer dataFile.Close()

			reader := csv.NewReader(dataFile)
			header, err := reader.Read()
			if err != nil {
				return fmt.Errorf("reading CSV header: %w", err)
			}
			columnOf := make(map[string]int, len(header))
			for i, name := range header {
				columnOf[name] = i
			}

			w := c.OutOrStdout()
			fmt.Fprintln(w, strings.Join(result.Outputs, ","))

			for {
				row, err := reader.Read()
				if err != nil {
					break
				}
				args := make([]string, len(result.Inputs))
				for i, name := range result.Inputs {
					if col, ok := columnOf[name]; ok && col < len(row) {
						args[i] = luaLiteral(row[col])
					} else {
						args[i] = "nil"
					}
				}
				out, err := runOneRow(luaBin, result.Source, args, len(result.Outputs))
				if err != nil {
					return err
				}
				fmt.Fprintln(w, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&luaBin, "lua", "lua", "path to the lua interpreter to shell out to")
	return cmd
}

// runOneRow invokes the compiled function once via the external
// interpreter and captures its return values as a comma-joined line.
func runOneRow(luaBin, source string, args []string, numOutputs int) (string, error) {
	var script bytes.Buffer
	script.WriteString(source)
	script.WriteString("\nlocal results = {score(")
	script.WriteString(strings.Join(args, ", "))
	script.WriteString(")}\n")
	script.WriteString("print(table.concat(results, \",\"))\n")

	run := exec.Command(luaBin, "-")
	run.Stdin = &script
	var stdout, stderr bytes.Buffer
	run.Stdout = &stdout
	run.Stderr = &stderr
	if err := run.Run(); err != nil {
		return "", fmt.Errorf("running lua: %w: %s", err, stderr.String())
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// luaLiteral renders a CSV cell as a Lua literal: a bare number if it
// parses as one, a quoted string otherwise.
func luaLiteral(cell string) string {
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return cell
	}
	return strconv.Quote(cell)
}
