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

package pmml

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version   string
		wantError string
	}{
		{version: "4.4"},
		{version: "4.3"},
		{version: "3.2"},
		{version: "4.0"},
		{version: "", wantError: "no version attribute"},
		{version: "5.0", wantError: "unsupported PMML version"},
		{version: "3.0", wantError: "unsupported PMML version"},
		{version: "not-a-version", wantError: "malformed PMML version"},
	}
	for _, test := range tests {
		t.Run(test.version, func(t *testing.T) {
			err := ValidateVersion(test.version)
			if test.wantError == "" {
				qt.Assert(t, qt.IsNil(err))
				return
			}
			qt.Assert(t, qt.ErrorMatches(err, ".*"+test.wantError+".*"))
		})
	}
}
