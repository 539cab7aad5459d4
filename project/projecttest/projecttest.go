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

// Package projecttest provides fixtures to build projects in memory.
package projecttest

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
	"github.com/cogment/cogment-pack/transforms"
)

// PNG is a tiny image, well under the inlining limits of other bundlers.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0xf8, 0xcf, 0xc0, 0xf0,
	0x1f, 0x00, 0x05, 0x00, 0x01, 0xff, 0x89, 0x99, 0x3d, 0x1d, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45,
	0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// ComponentProject is an entry importing a component which imports a stylesheet.
var ComponentProject = map[string]string{
	"public/index.html": `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Demo</title>
</head>
<body>
<div id="app"></div>
</body>
</html>
`,
	"public/favicon.ico": "\x00\x00\x01\x00",
	"src/main.js": `import App from "./App.vue";

const root = document.getElementById("app");
root.textContent = App.name;
`,
	"src/App.vue": `<template>
  <div class="app">
    <h1>{{ title }}</h1>
  </div>
</template>

<script>
import "./style.scss";

export default {
  data: () => ({ title: "Hello from App" }),
};
</script>
`,
	"src/style.scss": `.app {
  display: flex;
  user-select: none;
}
`,
}

// WriteProject writes the files of a project under root in a memory filesystem.
func WriteProject(t *testing.T, root string, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for filename, content := range files {
		require.NoError(t, afero.WriteFile(fs, root+"/"+filename, []byte(content), 0644))
	}
	return fs
}

// Merge returns the union of the file sets, later sets overriding the former.
func Merge(fileSets ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, files := range fileSets {
		for filename, content := range files {
			merged[filename] = content
		}
	}
	return merged
}

// Passthrough is a stage returning its input untouched, it stands for external tools.
func Passthrough(name string) pipeline.Transform {
	return pipeline.TransformFunc{
		Label: name,
		Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
			return source, nil
		},
	}
}

// Rules instantiates the configured rules of a project, the sass stages are passthroughs since
// the fixtures only use plain css syntax.
func Rules(t *testing.T, p *project.Project) pipeline.RuleSet {
	options, err := p.TransformOptions()
	require.NoError(t, err)
	rules := pipeline.RuleSet{}
	for _, ruleConfig := range p.Config.Rules {
		chain := []pipeline.Transform{}
		for _, loader := range ruleConfig.Use {
			if loader.Loader == "sass" {
				chain = append(chain, Passthrough("sass"))
				continue
			}
			stage, err := transforms.Create(loader.Loader, transforms.LoaderOptions(loader.Options), options)
			require.NoError(t, err)
			chain = append(chain, stage)
		}
		rule, err := pipeline.NewRule(ruleConfig.Name, ruleConfig.Test, ruleConfig.Exclude, chain...)
		require.NoError(t, err)
		rules = append(rules, rule)
	}
	return rules
}

// Orchestrator loads the project at root and creates its orchestrator.
func Orchestrator(t *testing.T, fs afero.Fs, root string, cache *pipeline.TransformCache) *pipeline.Orchestrator {
	p, err := project.Load(fs, root, "")
	require.NoError(t, err)
	return p.NewOrchestratorWithRules(Rules(t, p), cache)
}
