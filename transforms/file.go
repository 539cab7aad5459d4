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
	"context"
	"path"

	"github.com/cogment/cogment-pack/pipeline"
)

// fileTransform emits the module bytes as an asset, the module itself exports its public url.
type fileTransform struct {
	name       string
	outputPath string
}

func (t *fileTransform) Name() string { return "file" }

func (t *fileTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	output := source
	output.Kind = pipeline.KindAsset
	output.Dependencies = nil
	switch {
	case t.name != "":
		output.AssetName = path.Join(t.outputPath, t.name)
	case t.outputPath != "":
		// The naming policy completes directory patterns with its default asset pattern.
		output.AssetName = path.Clean(t.outputPath) + "/"
	}
	return output, nil
}

func newFile(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &fileTransform{
		name:       loaderOptions.String("name", ""),
		outputPath: loaderOptions.String("output_path", ""),
	}, nil
}

func init() {
	Register("file", newFile)
}
