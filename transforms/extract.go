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
	"fmt"

	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/templates"
)

func requireStyle(stage string, source pipeline.Source) error {
	if source.Kind != pipeline.KindStyle {
		return fmt.Errorf("%s expects a style module, got a %s module (is the css loader missing before it?)", stage, source.Kind)
	}
	return nil
}

// extractTransform is the last stage of style chains, the stylesheet goes to its chunk's css file.
type extractTransform struct{}

func (t *extractTransform) Name() string { return "extract" }

func (t *extractTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	if err := requireStyle(t.Name(), source); err != nil {
		return pipeline.Source{}, err
	}
	output := source
	trimmed := bytes.TrimSpace(source.Bytes)
	output.Bytes = nil
	if len(trimmed) > 0 {
		output.Bytes = make([]byte, 0, len(trimmed)+1)
		output.Bytes = append(append(output.Bytes, trimmed...), '\n')
	}
	return output, nil
}

// styleTransform injects the stylesheet in the document when the module is evaluated, instead
// of extracting it.
type styleTransform struct{}

func (t *styleTransform) Name() string { return "style" }

func (t *styleTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	if err := requireStyle(t.Name(), source); err != nil {
		return pipeline.Source{}, err
	}
	script, err := templates.StyleInjectScript(source.Path, source.Bytes)
	if err != nil {
		return pipeline.Source{}, err
	}

	// Imported stylesheets are evaluated first, url() references are substituted in place.
	var requires bytes.Buffer
	for _, dependency := range source.Dependencies {
		if !bytes.Contains(source.Bytes, []byte(pipeline.URLPlaceholder(dependency))) {
			fmt.Fprintf(&requires, "require(%q);\n", dependency)
		}
	}

	output := source
	output.Kind = pipeline.KindScript
	output.Bytes = append(requires.Bytes(), script...)
	return output, nil
}

func newExtract(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &extractTransform{}, nil
}

func newStyle(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &styleTransform{}, nil
}

func init() {
	Register("extract", newExtract)
	Register("style", newStyle)
}
