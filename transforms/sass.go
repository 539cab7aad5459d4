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
	"os/exec"
	"path"
	"regexp"
	"strings"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

// Package imports are written "~package/file" for webpack, sass finds them through the load path.
var tildeImportRegex = regexp.MustCompile(`(@(?:import|use|forward)\s+["'])~`)

// sassTransform compiles scss and sass sources with the sass executable.
type sassTransform struct {
	executable string
	loadPaths  []string
	dir        string
}

func (t *sassTransform) Name() string { return "sass" }

func (t *sassTransform) Apply(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	filePath, _ := helper.SplitQuery(source.Path)
	args := []string{"--stdin", "--no-source-map", "--load-path", path.Dir(filePath)}
	for _, loadPath := range t.loadPaths {
		args = append(args, "--load-path", loadPath)
	}
	if path.Ext(filePath) == ".sass" {
		args = append(args, "--indented")
	}

	cmd := exec.CommandContext(ctx, t.executable, args...)
	cmd.Dir = t.dir
	cmd.Stdin = bytes.NewReader(tildeImportRegex.ReplaceAll(source.Bytes, []byte("$1")))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if message := strings.TrimSpace(stderr.String()); message != "" {
			return pipeline.Source{}, fmt.Errorf("%s", message)
		}
		return pipeline.Source{}, fmt.Errorf("unable to run %q: %w", t.executable, err)
	}

	output := source
	output.Bytes = stdout.Bytes()
	return output, nil
}

func newSass(loaderOptions LoaderOptions, options Options) (pipeline.Transform, error) {
	executable := loaderOptions.String("executable", "sass")
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return nil, fmt.Errorf("the sass loader requires the %q executable: %w", executable, err)
	}
	loadPaths := loaderOptions.Strings("load_paths")
	if len(loadPaths) == 0 {
		loadPaths = []string{"node_modules"}
	}
	return &sassTransform{executable: resolved, loadPaths: loadPaths, dir: options.Dir}, nil
}

func init() {
	Register("sass", newSass)
}
