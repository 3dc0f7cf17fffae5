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
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// MinVersion and MaxVersion bound the PMML document versions this
// compiler recognises, the same closed range spec.md §1 assumes.
const (
	MinVersion = "3.2"
	MaxVersion = "4.4"
)

// ValidateVersion checks a document's declared PMML version attribute,
// using semver.Compare the way the teacher's mod/modfile validates a CUE
// module's language version, after normalising "4.4" into the "vX.Y.0"
// shape semver requires.
func ValidateVersion(v string) error {
	if v == "" {
		return fmt.Errorf("document has no version attribute")
	}
	canon := canonicalize(v)
	if !semver.IsValid(canon) {
		return fmt.Errorf("malformed PMML version %q", v)
	}
	if semver.Compare(canon, canonicalize(MinVersion)) < 0 || semver.Compare(canon, canonicalize(MaxVersion)) > 0 {
		return fmt.Errorf("unsupported PMML version %q (supported range %s-%s)", v, MinVersion, MaxVersion)
	}
	return nil
}

func canonicalize(v string) string {
	v = strings.TrimPrefix(v, "v")
	parts := strings.Split(v, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts[:3], ".")
}
