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
	"context"
)

// Resolve threads the source through the rule's chain, the output of stage n being the input of
// stage n+1. A failing stage aborts the chain, no partial output is returned.
func Resolve(ctx context.Context, rule *Rule, source Source) (Source, error) {
	current := source
	for idx, stage := range rule.Chain {
		if err := ctx.Err(); err != nil {
			return Source{}, err
		}
		next, err := stage.Apply(ctx, current)
		if err != nil {
			return Source{}, &TransformError{Path: source.Path, Rule: rule.Name, Stage: stage.Name(), Index: idx, Cause: err}
		}
		current = next
	}
	return current, nil
}
