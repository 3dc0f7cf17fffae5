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

// newFieldsCmd lists a document's bindable inputs and outputs, the
// pmml2lua equivalent of the original app/modeloutput.cpp's
// printPossibleOutputs helper (SPEC_FULL.md §3).
func newFieldsCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields <model.pmml>",
		Short: "list the document's bindable input and output field names",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := pmml2lua.Compile(f, pmml2lua.Options{})
			if err != nil {
				return err
			}

			w := c.OutOrStdout()
			fmt.Fprintln(w, "inputs:")
			for _, name := range result.Inputs {
				fmt.Fprintf(w, "  %s\n", name)
			}
			fmt.Fprintln(w, "outputs:")
			for _, name := range result.Outputs {
				fmt.Fprintf(w, "  %s\n", name)
			}
			return nil
		},
	}
	return cmd
}
