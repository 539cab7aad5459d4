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

// Package project loads a front-end project and assembles the orchestrator building it.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/resolver"
	"github.com/cogment/cogment-pack/transforms"
)

// Project is a loaded project: its configuration and build environment.
type Project struct {
	Fs     afero.Fs
	Root   string
	Config *api.PipelineConfig
	Env    api.BuildEnv
}

// Load reads `pack.yaml` and the environment files of the project at root, a non empty mode
// overrides the configured one.
func Load(fs afero.Fs, root string, mode string) (*Project, error) {
	config, err := api.LoadPipelineConfig(fs, root)
	if err != nil {
		return nil, err
	}
	if mode != "" {
		config.Mode = mode
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}
	env, err := api.LoadBuildEnv(fs, root, config)
	if err != nil {
		return nil, fmt.Errorf("unable to load the environment files: %w", err)
	}
	return &Project{Fs: fs, Root: root, Config: config, Env: env}, nil
}

// OutputDir is the output directory on the project filesystem.
func (p *Project) OutputDir() string {
	return filepath.ToSlash(filepath.Join(p.Root, p.Config.Output.Path))
}

// CheckOutputDir rejects an output directory, on the project filesystem, whose cleaning would
// remove the project or one of its sources.
func (p *Project) CheckOutputDir(outputDir string) error {
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	if out == root || isWithin(out, root) {
		return fmt.Errorf("output directory %q contains the project root %q", outputDir, p.Root)
	}
	if !isWithin(root, out) {
		return nil
	}
	relative, err := filepath.Rel(root, out)
	if err != nil {
		return err
	}
	return p.Config.ValidateOutputPath(filepath.ToSlash(relative))
}

// isWithin reports whether target is strictly under dir, both being absolute and clean.
func isWithin(dir string, target string) bool {
	relative, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return relative != "." && relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}

// TransformOptions are the build wide options of the configured loaders.
func (p *Project) TransformOptions() (transforms.Options, error) {
	targets := make([]helper.EngineTarget, 0, len(p.Config.Targets))
	for _, target := range p.Config.Targets {
		parsed, err := helper.ParseEngineTarget(target)
		if err != nil {
			return transforms.Options{}, err
		}
		targets = append(targets, parsed)
	}
	dir, err := filepath.Abs(p.Root)
	if err != nil {
		return transforms.Options{}, err
	}
	return transforms.Options{
		Fs:         p.Fs,
		Root:       p.Root,
		Dir:        dir,
		Defines:    p.Env.Defines(),
		Targets:    targets,
		Production: p.Config.IsProduction(),
	}, nil
}

// NewOrchestrator creates the orchestrator of the project with the registered loaders.
func (p *Project) NewOrchestrator(cache *pipeline.TransformCache) (*pipeline.Orchestrator, error) {
	options, err := p.TransformOptions()
	if err != nil {
		return nil, err
	}
	rules, err := transforms.NewRuleSet(p.Config.Rules, options)
	if err != nil {
		return nil, err
	}
	return p.NewOrchestratorWithRules(rules, cache), nil
}

// NewOrchestratorWithRules creates the orchestrator of the project with the given rules.
func (p *Project) NewOrchestratorWithRules(rules pipeline.RuleSet, cache *pipeline.TransformCache) *pipeline.Orchestrator {
	config := p.Config
	entries := make([]pipeline.EntryPoint, 0, len(config.Entries))
	for _, entry := range config.Entries {
		entries = append(entries, pipeline.EntryPoint{Name: entry.Name, Path: entry.Path})
	}
	title := config.Html.Title
	if title == "" {
		title = config.ProjectName
	}
	return &pipeline.Orchestrator{
		Fs:       p.Fs,
		Root:     p.Root,
		Entries:  entries,
		Rules:    rules,
		Resolver: resolver.New(p.Fs, p.Root, config.Resolve.Modules, config.Resolve.Extensions, config.Resolve.Alias),
		Chunks: pipeline.ChunkPolicy{
			VendorRoot: config.Optimization.VendorRoot,
			Vendor:     config.Optimization.VendorName,
			Runtime:    config.Optimization.RuntimeChunk,
		},
		Naming: pipeline.NamingPolicy{
			Script: config.Output.Filename,
			Style:  config.Output.CssFilename,
			Asset:  config.Output.AssetFilename,
		},
		PublicPath: config.Output.PublicPath,
		Html: pipeline.HtmlOptions{
			Filename: config.Html.Filename,
			Template: config.Html.Template,
			Favicon:  config.Html.Favicon,
			Title:    title,
		},
		Cache:       cache,
		Concurrency: config.Concurrency,
	}
}
