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

package transforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cogment/cogment-pack/pipeline"
)

type jsonTransform struct{}

func (t *jsonTransform) Name() string { return "json" }

func (t *jsonTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, source.Bytes); err != nil {
		return pipeline.Source{}, fmt.Errorf("invalid json: %w", err)
	}
	output := source
	output.Kind = pipeline.KindScript
	output.Bytes = []byte(fmt.Sprintf("module.exports = %s;\n", compacted.String()))
	return output, nil
}

func newJSON(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &jsonTransform{}, nil
}

func init() {
	Register("json", newJSON)
}
