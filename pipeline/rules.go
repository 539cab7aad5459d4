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

package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	ignore "github.com/codeskyblue/dockerignore"

	"github.com/cogment/cogment-pack/helper"
)

// Rule maps the module paths matching Test, and none of the Exclude patterns, to a transform chain.
type Rule struct {
	Name    string
	Test    *regexp.Regexp
	Exclude []string
	Chain   []Transform
}

// NewRule compiles a rule, test is a regular expression over the module path and its query.
func NewRule(name string, test string, exclude []string, chain ...Transform) (*Rule, error) {
	re, err := regexp.Compile(test)
	if err != nil {
		return nil, fmt.Errorf("invalid test for rule %q: %w", name, err)
	}
	return &Rule{Name: name, Test: re, Exclude: exclude, Chain: chain}, nil
}

// Matches tells if the rule applies to the module path.
func (r *Rule) Matches(modulePath string) (bool, error) {
	if !r.Test.MatchString(modulePath) {
		return false, nil
	}
	excluded, err := r.excludes(modulePath)
	if err != nil {
		return false, err
	}
	return !excluded, nil
}

// excludes matches the patterns against every suffix of the path so "node_modules" excludes
// nested package directories as well as the top level one.
func (r *Rule) excludes(modulePath string) (bool, error) {
	if len(r.Exclude) == 0 {
		return false, nil
	}
	filePath, _ := helper.SplitQuery(modulePath)
	segments := strings.Split(filePath, "/")
	for idx := range segments {
		matched, err := ignore.Matches(strings.Join(segments[idx:], "/"), r.Exclude)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern in rule %q: %w", r.Name, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// ChainNames lists the stage names of the rule's chain.
func (r *Rule) ChainNames() []string {
	names := make([]string, 0, len(r.Chain))
	for _, stage := range r.Chain {
		names = append(names, stage.Name())
	}
	return names
}

// RuleSet is an ordered list of rules, the first matching rule is authoritative.
type RuleSet []*Rule

// Classify returns the first rule matching the module path.
func (rs RuleSet) Classify(modulePath string) (*Rule, error) {
	for _, rule := range rs {
		matched, err := rule.Matches(modulePath)
		if err != nil {
			return nil, err
		}
		if matched {
			return rule, nil
		}
	}
	return nil, &UnclassifiedAssetError{Path: modulePath}
}
