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

	"github.com/evanw/esbuild/pkg/api"

	"github.com/cogment/cogment-pack/pipeline"
)

// postcssTransform adds the vendor prefixes the engine targets need, autoprefixer's job in a
// postcss setup.
type postcssTransform struct {
	options api.TransformOptions
}

func (t *postcssTransform) Name() string { return "postcss" }

func (t *postcssTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	options := t.options
	options.Sourcefile = source.Path
	result := api.Transform(string(source.Bytes), options)
	if len(result.Errors) > 0 {
		return pipeline.Source{}, formatMessages(result.Errors)
	}
	output := source
	output.Bytes = result.Code
	return output, nil
}

func newPostcss(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	targetEngines, err := engines(options.Targets)
	if err != nil {
		return nil, err
	}
	minify := loaderOptions.Bool("minify", false)
	return &postcssTransform{
		options: api.TransformOptions{
			Loader:           api.LoaderCSS,
			Engines:          targetEngines,
			MinifyWhitespace: minify,
			MinifySyntax:     minify,
			LogLevel:         api.LogLevelSilent,
		},
	}, nil
}

func init() {
	Register("postcss", newPostcss)
}
