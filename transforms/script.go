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
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

var requireRegex = regexp.MustCompile(`\brequire\("((?:[^"\\]|\\.)*)"\)`)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

func engines(targets []helper.EngineTarget) ([]api.Engine, error) {
	result := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		name, known := engineNames[target.Engine]
		if !known {
			return nil, fmt.Errorf("unsupported engine target %q", target)
		}
		result = append(result, api.Engine{Name: name, Version: target.Version})
	}
	return result, nil
}

func formatMessages(messages []api.Message) error {
	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		if message.Location != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", message.Location.File, message.Location.Line, message.Location.Column, message.Text))
		} else {
			lines = append(lines, message.Text)
		}
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

// scriptTransform compiles a script to a CommonJS module and reports its require() calls.
type scriptTransform struct {
	name    string
	options api.TransformOptions
}

func (t *scriptTransform) Name() string { return t.name }

func (t *scriptTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	options := t.options
	options.Sourcefile = source.Path
	options.Loader = scriptLoader(source.Path)

	result := api.Transform(string(source.Bytes), options)
	if len(result.Errors) > 0 {
		return pipeline.Source{}, formatMessages(result.Errors)
	}

	output := source
	output.Bytes = result.Code
	output.Kind = pipeline.KindScript
	output.Dependencies = append([]string{}, source.Dependencies...)
	for _, match := range requireRegex.FindAllSubmatch(result.Code, -1) {
		output.AddDependency(unescape(string(match[1])))
	}
	return output, nil
}

func scriptLoader(modulePath string) api.Loader {
	filePath, _ := helper.SplitQuery(modulePath)
	switch path.Ext(filePath) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	}
	return api.LoaderJS
}

func unescape(specifier string) string {
	if !strings.Contains(specifier, "\\") {
		return specifier
	}
	return strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\/`, `/`).Replace(specifier)
}

// newBabel lowers application scripts to the engine targets, "babel" is the loader name of the
// configuration this tool replaces.
func newBabel(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	targetEngines, err := engines(options.Targets)
	if err != nil {
		return nil, err
	}
	return &scriptTransform{
		name: "babel",
		options: api.TransformOptions{
			Format:       api.FormatCommonJS,
			Target:       api.ES2015,
			Engines:      targetEngines,
			Define:       options.Defines,
			MinifySyntax: loaderOptions.Bool("minify", options.Production),
			LogLevel:     api.LogLevelSilent,
		},
	}, nil
}

// newModule only converts third-party modules to CommonJS and applies the defines.
func newModule(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	return &scriptTransform{
		name: "module",
		options: api.TransformOptions{
			Format:       api.FormatCommonJS,
			Define:       options.Defines,
			MinifySyntax: loaderOptions.Bool("minify", options.Production),
			LogLevel:     api.LogLevelSilent,
		},
	}, nil
}

func init() {
	Register("babel", newBabel)
	Register("module", newModule)
}
