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

// Package transforms holds the stages rules chain together. Each stage is registered under the
// loader name used in `pack.yaml`.
package transforms

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

// Options are the build wide settings every stage is created with.
type Options struct {
	Fs afero.Fs
	// Root is the project root on Fs.
	Root string
	// Dir is the project root on the os filesystem, the working directory of external tools.
	Dir        string
	Defines    map[string]string
	Targets    []helper.EngineTarget
	Production bool
}

// LoaderOptions are the per rule options of a loader.
type LoaderOptions map[string]interface{}

// String returns a string option or the fallback.
func (o LoaderOptions) String(key string, fallback string) string {
	if value, ok := o[key].(string); ok {
		return value
	}
	return fallback
}

// Strings returns a list option.
func (o LoaderOptions) Strings(key string) []string {
	values := []string{}
	switch value := o[key].(type) {
	case string:
		values = append(values, value)
	case []interface{}:
		for _, item := range value {
			values = append(values, fmt.Sprint(item))
		}
	case []string:
		values = append(values, value...)
	}
	return values
}

// Bool returns a boolean option or the fallback.
func (o LoaderOptions) Bool(key string, fallback bool) bool {
	if value, ok := o[key].(bool); ok {
		return value
	}
	return fallback
}

// Factory creates a stage from its loader options.
type Factory func(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error)

var (
	registryMutex sync.RWMutex
	registry      = map[string]Factory{}
)

// Register makes a loader available to rules, it panics when the name is taken.
func Register(name string, factory Factory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	if _, taken := registry[name]; taken {
		panic(fmt.Sprintf("transforms: loader %q registered twice", name))
	}
	registry[name] = factory
}

// Loaders lists the registered loader names.
func Loaders() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a registered loader.
func Create(name string, loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	registryMutex.RLock()
	factory, found := registry[name]
	registryMutex.RUnlock()
	if !found {
		return nil, fmt.Errorf("unknown loader %q, available loaders are %v", name, Loaders())
	}
	return factory(loaderOptions, options)
}

// NewRuleSet instantiates the configured rules in declaration order.
func NewRuleSet(rules []*api.RuleConfig, options Options) (pipeline.RuleSet, error) {
	ruleSet := pipeline.RuleSet{}
	for _, ruleConfig := range rules {
		chain := make([]pipeline.Transform, 0, len(ruleConfig.Use))
		for _, loader := range ruleConfig.Use {
			stage, err := Create(loader.Loader, LoaderOptions(loader.Options), options)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", ruleConfig.Name, err)
			}
			chain = append(chain, stage)
		}
		rule, err := pipeline.NewRule(ruleConfig.Name, ruleConfig.Test, ruleConfig.Exclude, chain...)
		if err != nil {
			return nil, err
		}
		ruleSet = append(ruleSet, rule)
	}
	return ruleSet, nil
}
