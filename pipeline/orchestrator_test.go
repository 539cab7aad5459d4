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

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/pipeline"
)

// pathResolver resolves specifiers to the paths they name, relative to the root.
type pathResolver struct {
	fs afero.Fs
}

func (r pathResolver) Resolve(specifier string, importer string) (string, error) {
	resolved := strings.TrimPrefix(specifier, "./")
	if _, err := r.fs.Stat("/project/" + resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// lines reports every non empty line of the module as a dependency.
var lines = pipeline.TransformFunc{Label: "lines", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
	for _, line := range strings.Split(string(source.Bytes), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			source.AddDependency("./" + line)
		}
	}
	return source, nil
}}

func createOrchestrator(t *testing.T, files map[string]string, rules ...*pipeline.Rule) *pipeline.Orchestrator {
	fs := afero.NewMemMapFs()
	for filename, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/project/"+filename, []byte(content), 0644))
	}
	if len(rules) == 0 {
		rule, err := pipeline.NewRule("lines", `\.js$`, nil, lines)
		require.NoError(t, err)
		rules = append(rules, rule)
	}
	return &pipeline.Orchestrator{
		Fs:       fs,
		Root:     "/project",
		Entries:  []pipeline.EntryPoint{{Name: "main", Path: "main.js"}},
		Rules:    rules,
		Chunks:   pipeline.ChunkPolicy{VendorRoot: "node_modules", Vendor: "vendors", Runtime: "runtime"},
		Naming:   pipeline.NamingPolicy{Script: "static/js/[name].[hash:8].js", Style: "[name].[hash:8].css", Asset: "[name][hash:8].[ext]"},
		Resolver: pathResolver{fs: fs},
		Html:     pipeline.HtmlOptions{Title: "Test"},
	}
}

func TestBuildChunkMembership(t *testing.T) {
	o := createOrchestrator(t, map[string]string{
		"main.js":                   "a.js\nnode_modules/dep/index.js",
		"admin.js":                  "b.js\na.js",
		"a.js":                      "c.js",
		"b.js":                      "node_modules/dep/index.js",
		"c.js":                      "",
		"node_modules/dep/index.js": "",
		"unreachable.js":            "",
	})
	o.Entries = append(o.Entries, pipeline.EntryPoint{Name: "admin", Path: "admin.js"})

	build, err := o.Build(context.Background())
	require.NoError(t, err)

	reachable := []string{}
	for modulePath := range build.Modules {
		reachable = append(reachable, modulePath)
	}
	sort.Strings(reachable)
	assert.Equal(t, []string{"a.js", "admin.js", "b.js", "c.js", "main.js", "node_modules/dep/index.js"}, reachable)

	membership := map[string]int{}
	for _, chunk := range build.Chunks {
		for _, modulePath := range chunk.Modules {
			membership[modulePath]++
		}
	}
	for _, modulePath := range reachable {
		assert.Equal(t, 1, membership[modulePath], modulePath)
	}
	assert.Equal(t, 1, membership[pipeline.RuntimeModule])
	assert.Len(t, membership, len(reachable)+1)

	names := []string{}
	for _, chunk := range build.Chunks {
		names = append(names, chunk.Name)
	}
	assert.Equal(t, []string{"runtime", "vendors", "main", "admin"}, names)

	main, _ := build.Chunk("main")
	assert.Equal(t, []string{"c.js", "a.js", "main.js"}, main.Modules)
	assert.Equal(t, "main.js", main.Entry)
	admin, _ := build.Chunk("admin")
	assert.Equal(t, []string{"b.js", "admin.js"}, admin.Modules)
	vendors, _ := build.Chunk("vendors")
	assert.Equal(t, []string{"node_modules/dep/index.js"}, vendors.Modules)
	assert.Equal(t, "", vendors.Entry)
}

func TestBuildScriptsAndDocument(t *testing.T) {
	o := createOrchestrator(t, map[string]string{
		"main.js":                   "node_modules/dep/index.js",
		"node_modules/dep/index.js": "",
	})

	build, err := o.Build(context.Background())
	require.NoError(t, err)

	main, _ := build.Chunk("main")
	script, found := build.Artifact(main.Script)
	require.True(t, found)
	assert.Equal(t, pipeline.ArtifactScript, script.Kind)
	assert.True(t, script.Hashed)
	assert.True(t, strings.HasPrefix(script.Path, "static/js/main."))
	assert.Equal(t, "static/js/main."+pipeline.ContentHash(script.Content)[:8]+".js", script.Path)

	mainID := pipeline.ModuleID("main.js")
	depID := pipeline.ModuleID("node_modules/dep/index.js")
	assert.Contains(t, string(script.Content), fmt.Sprintf(`__pack_define(%q, {"./node_modules/dep/index.js": %q}, function (module, exports, require) {`, mainID, depID))
	assert.True(t, strings.HasSuffix(string(script.Content), fmt.Sprintf("__pack_start(%q);\n", mainID)))

	runtime, _ := build.Chunk("runtime")
	vendors, _ := build.Chunk("vendors")
	document, found := build.Artifact("index.html")
	require.True(t, found)
	assert.Equal(t, pipeline.ArtifactDocument, document.Kind)
	assert.False(t, document.Hashed)

	html := string(document.Content)
	runtimeIdx := strings.Index(html, `src="`+runtime.Script+`"`)
	vendorsIdx := strings.Index(html, `src="`+vendors.Script+`"`)
	mainIdx := strings.Index(html, `src="`+main.Script+`"`)
	assert.True(t, runtimeIdx >= 0 && vendorsIdx > runtimeIdx && mainIdx > vendorsIdx, html)
	assert.Contains(t, html, "<title>Test</title>")

	paths := []string{}
	for _, artifact := range build.Artifacts {
		paths = append(paths, artifact.Path)
	}
	assert.True(t, sort.StringsAreSorted(paths))
}

func TestBuildUnclassifiedAsset(t *testing.T) {
	o := createOrchestrator(t, map[string]string{
		"main.js":     "notes.txt",
		"notes.txt":   "",
		"ignored.xyz": "",
	})

	build, err := o.Build(context.Background())
	assert.Nil(t, build)
	assert.True(t, errors.Is(err, pipeline.ErrUnclassifiedAsset))

	var unclassified *pipeline.UnclassifiedAssetError
	require.True(t, errors.As(err, &unclassified))
	assert.Equal(t, "notes.txt", unclassified.Path)
	assert.Equal(t, "main.js", unclassified.Importer)
}

func TestBuildUnresolvedImport(t *testing.T) {
	o := createOrchestrator(t, map[string]string{"main.js": "missing.js"})

	_, err := o.Build(context.Background())
	assert.True(t, errors.Is(err, pipeline.ErrUnresolvedImport))
	assert.Contains(t, err.Error(), "missing.js")
}

func TestBuildFailFast(t *testing.T) {
	var blockedCanceled atomic.Bool
	started := make(chan struct{})
	slow := pipeline.TransformFunc{Label: "slow", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
		close(started)
		select {
		case <-ctx.Done():
			blockedCanceled.Store(true)
			return pipeline.Source{}, ctx.Err()
		case <-time.After(10 * time.Second):
			return source, nil
		}
	}}
	failing := pipeline.TransformFunc{Label: "broken", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
		<-started
		return pipeline.Source{}, fmt.Errorf("syntax error")
	}}
	slowRule, err := pipeline.NewRule("slow", `^slow\.js$`, nil, slow)
	require.NoError(t, err)
	failingRule, err := pipeline.NewRule("failing", `^failing\.js$`, nil, failing)
	require.NoError(t, err)
	linesRule, err := pipeline.NewRule("lines", `\.js$`, nil, lines)
	require.NoError(t, err)

	o := createOrchestrator(t, map[string]string{
		"main.js":    "slow.js\nfailing.js",
		"slow.js":    "",
		"failing.js": "",
	}, slowRule, failingRule, linesRule)
	o.Concurrency = 4

	start := time.Now()
	build, err := o.Build(context.Background())
	assert.Nil(t, build)
	assert.Less(t, time.Since(start), 5*time.Second)

	var transformErr *pipeline.TransformError
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, "failing.js", transformErr.Path)
	assert.Equal(t, "broken", transformErr.Stage)
	assert.True(t, blockedCanceled.Load())
}

func TestBuildBoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	tracked := pipeline.TransformFunc{Label: "tracked", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
		current := running.Add(1)
		defer running.Add(-1)
		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return source, nil
	}}
	rule, err := pipeline.NewRule("lines", `\.js$`, nil, tracked, lines)
	require.NoError(t, err)

	files := map[string]string{}
	dependencies := []string{}
	for idx := 0; idx < 16; idx++ {
		name := fmt.Sprintf("m%d.js", idx)
		files[name] = ""
		dependencies = append(dependencies, name)
	}
	files["main.js"] = strings.Join(dependencies, "\n")

	o := createOrchestrator(t, files, rule)
	o.Concurrency = 2
	build, err := o.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, build.Modules, 17)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBuildModuleStagesAreSequential(t *testing.T) {
	first := pipeline.TransformFunc{Label: "first", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
		source.Bytes = []byte(strings.ToUpper(string(source.Bytes)))
		return source, nil
	}}
	second := pipeline.TransformFunc{Label: "second", Fn: func(ctx context.Context, source pipeline.Source) (pipeline.Source, error) {
		source.Bytes = []byte("module.exports = " + fmt.Sprintf("%q", source.Bytes) + ";")
		return source, nil
	}}
	rule, err := pipeline.NewRule("script", `\.js$`, nil, first, second)
	require.NoError(t, err)

	o := createOrchestrator(t, map[string]string{"main.js": "hello"}, rule)
	build, err := o.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `module.exports = "HELLO";`, string(build.Modules["main.js"].Output.Bytes))
}

func TestBuildFaviconAndTemplate(t *testing.T) {
	o := createOrchestrator(t, map[string]string{
		"main.js":            "",
		"public/index.html":  "<!DOCTYPE html><html><head><title>Custom</title></head><body><div id=\"app\"></div></body></html>",
		"public/favicon.ico": "icon",
	})
	o.Html = pipeline.HtmlOptions{Template: "public/index.html", Favicon: "public/favicon.ico"}
	o.PublicPath = "/app/"

	build, err := o.Build(context.Background())
	require.NoError(t, err)

	favicon, found := build.Artifact("favicon.ico")
	require.True(t, found)
	assert.Equal(t, pipeline.ArtifactStatic, favicon.Kind)
	assert.Equal(t, "icon", string(favicon.Content))

	document, found := build.Artifact("index.html")
	require.True(t, found)
	html := string(document.Content)
	assert.Contains(t, html, "<title>Custom</title>")
	assert.Contains(t, html, `<div id="app"></div>`)
	assert.Contains(t, html, `href="/app/favicon.ico"`)
	main, _ := build.Chunk("main")
	assert.Contains(t, html, `src="/app/`+main.Script+`"`)
}

func TestBuildMissingFavicon(t *testing.T) {
	o := createOrchestrator(t, map[string]string{"main.js": ""})
	o.Html = pipeline.HtmlOptions{Favicon: "public/favicon.ico"}

	build, err := o.Build(context.Background())
	require.NoError(t, err)
	_, found := build.Artifact("favicon.ico")
	assert.False(t, found)
}
