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
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestScript runs every testdata/script/*.txtar file as an end-to-end
// invocation of the pmml2lua binary, grounded on cmd/cue/cmd's
// testscript-based TestScript, scaled down: no module proxy or
// registry setup since this tool has no analogous surface to those.
func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}

// TestMain registers the pmml2lua binary as a testscript command so
// txtar scripts can invoke it directly without a real build, the way
// cmd/cue/cmd.TestMain does for the cue binary.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"pmml2lua": Main,
	}))
}
