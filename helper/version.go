// Copyright 2021 Artificial Intelligence Redefined <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package helper

import (
	"fmt"
	"regexp"
	"strings"
)

// EngineTarget is a browser engine and the minimum version the output must run on.
type EngineTarget struct {
	Engine  string
	Version string
}

func (t EngineTarget) String() string {
	return t.Engine + t.Version
}

var versionRegex *regexp.Regexp = regexp.MustCompile(`v?([0-9]+(?:\.[0-9]+(?:\.[0-9]+(?:-[a-zA-Z0-9]+)?)?)?)`)
var engineTargetRegex *regexp.Regexp = regexp.MustCompile(`^([a-z]+)\s*v?([0-9].*)$`)

// SanitizeVersion check and sanitize a given version string.
//
// In particular it removes any "v" prefix
func SanitizeVersion(versionString string) (string, error) {
	matches := versionRegex.FindStringSubmatch(versionString)
	if matches == nil {
		return "", fmt.Errorf("Unable to sanitize version string %q is an invalid version", versionString)
	}
	return matches[1], nil
}

// ParseEngineTarget parses a target such as "safari11", "chrome 58" or "ios v12.2".
func ParseEngineTarget(target string) (EngineTarget, error) {
	matches := engineTargetRegex.FindStringSubmatch(strings.ToLower(strings.TrimSpace(target)))
	if matches == nil {
		return EngineTarget{}, fmt.Errorf("Unable to parse engine target %q, expected <engine><version>", target)
	}
	version, err := SanitizeVersion(matches[2])
	if err != nil {
		return EngineTarget{}, err
	}
	return EngineTarget{Engine: matches[1], Version: version}, nil
}
