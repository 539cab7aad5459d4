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
	"fmt"
	"os"
	"path"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/templates"
)

const (
	defineFn = templates.DefineFn
	startFn  = templates.StartFn
)

// HtmlOptions configures the generated html document.
type HtmlOptions struct {
	Filename string
	Template string
	Favicon  string
	Title    string
	// InlineScripts are injected after the chunk scripts.
	InlineScripts []string
}

// Orchestrator owns the rule list and the chunk policy, it runs builds over a source tree.
type Orchestrator struct {
	Fs         afero.Fs
	Root       string
	Entries    []EntryPoint
	Rules      RuleSet
	Chunks     ChunkPolicy
	Naming     NamingPolicy
	Resolver   Resolver
	PublicPath string
	Html       HtmlOptions
	// Cache is optional, it keeps chain outputs across builds.
	Cache       *TransformCache
	Concurrency int

	logger *zap.SugaredLogger
}

// Build is the complete result of a successful build.
type Build struct {
	Modules map[string]*Module
	// Order lists the module paths in link order.
	Order     []string
	Chunks    []*Chunk
	Artifacts []*Artifact
	Duration  time.Duration
}

// Artifact retrieves an artifact by output path.
func (b *Build) Artifact(artifactPath string) (*Artifact, bool) {
	for _, artifact := range b.Artifacts {
		if artifact.Path == artifactPath {
			return artifact, true
		}
	}
	return nil, false
}

// Chunk retrieves a chunk by name.
func (b *Build) Chunk(name string) (*Chunk, bool) {
	for _, chunk := range b.Chunks {
		if chunk.Name == name {
			return chunk, true
		}
	}
	return nil, false
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.NumCPU()
}

func (o *Orchestrator) runtimeScript() ([]byte, error) {
	return templates.RuntimeScript()
}

// Build walks the module graph from the entries, links the chunk groups and renders the html
// document. Nothing is returned unless every step succeeds.
func (o *Orchestrator) Build(ctx context.Context) (*Build, error) {
	if o.logger == nil {
		o.logger = helper.GetSugarLogger([]string{"pipeline"})
	}
	start := time.Now()

	entryPaths := make([]string, 0, len(o.Entries))
	for _, entry := range o.Entries {
		resolved, err := o.Resolver.Resolve("./"+entry.Path, "")
		if err != nil {
			return nil, &UnresolvedImportError{Specifier: entry.Path, Importer: "entry " + entry.Name, Cause: err}
		}
		entryPaths = append(entryPaths, resolved)
	}

	modules, err := o.walk(ctx, entryPaths)
	if err != nil {
		return nil, err
	}
	o.logger.Debugf("%d modules reachable from %d entries", len(modules), len(entryPaths))

	chunks, artifacts, order, err := o.link(modules, entryPaths)
	if err != nil {
		return nil, err
	}

	documentArtifacts, err := o.document(chunks)
	if err != nil {
		return nil, err
	}
	set := &artifactSet{byPath: map[string]*Artifact{}, list: nil}
	for _, artifact := range append(artifacts, documentArtifacts...) {
		if err := set.add(artifact); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(set.list, func(i, j int) bool { return set.list[i].Path < set.list[j].Path })

	return &Build{
		Modules:   modules,
		Order:     order,
		Chunks:    chunks,
		Artifacts: set.list,
		Duration:  time.Since(start),
	}, nil
}

// document renders the html document referencing the hashed chunk files, runtime first, then
// vendors and the entries in declaration order.
func (o *Orchestrator) document(chunks []*Chunk) ([]*Artifact, error) {
	artifacts := []*Artifact{}
	doc := templates.Document{Title: o.Html.Title, InlineScripts: o.Html.InlineScripts}

	if o.Html.Favicon != "" {
		favicon, err := afero.ReadFile(o.Fs, path.Join(o.Root, o.Html.Favicon))
		switch {
		case err == nil:
			name := path.Base(o.Html.Favicon)
			artifacts = append(artifacts, &Artifact{Path: name, Content: favicon, Kind: ArtifactStatic, Source: o.Html.Favicon})
			doc.Favicon = o.PublicPath + name
		case os.IsNotExist(err):
			o.logger.Warnf("favicon %q not found, skipping it", o.Html.Favicon)
		default:
			return nil, err
		}
	}

	for _, chunk := range chunks {
		if chunk.Style != "" {
			doc.Stylesheets = append(doc.Stylesheets, o.PublicPath+chunk.Style)
		}
		if chunk.Script != "" {
			doc.Scripts = append(doc.Scripts, o.PublicPath+chunk.Script)
		}
	}

	tmpl, err := o.documentTemplate()
	if err != nil {
		return nil, err
	}
	content, err := templates.InjectDocument(tmpl, doc)
	if err != nil {
		return nil, fmt.Errorf("unable to render %q: %w", o.Html.Filename, err)
	}
	filename := o.Html.Filename
	if filename == "" {
		filename = "index.html"
	}
	return append(artifacts, &Artifact{Path: filename, Content: content, Kind: ArtifactDocument, Source: o.Html.Template}), nil
}

func (o *Orchestrator) documentTemplate() ([]byte, error) {
	if o.Html.Template != "" {
		tmpl, err := afero.ReadFile(o.Fs, path.Join(o.Root, o.Html.Template))
		if err == nil {
			return tmpl, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		o.logger.Debugf("html template %q not found, using the default one", o.Html.Template)
	}
	title := o.Html.Title
	if title == "" {
		title = "App"
	}
	return templates.DefaultDocumentTemplate(title)
}
