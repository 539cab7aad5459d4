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

package cmd

import (
	"context"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
	"github.com/cogment/cogment-pack/project/projecttest"
)

const projectRoot = "/work/app"

// useTestRules builds projects without external tools for the duration of the test.
func useTestRules(t *testing.T) {
	previous := newOrchestrator
	newOrchestrator = func(p *project.Project, cache *pipeline.TransformCache) (*pipeline.Orchestrator, error) {
		return p.NewOrchestratorWithRules(projecttest.Rules(t, p), cache), nil
	}
	t.Cleanup(func() { newOrchestrator = previous })
}

func setupProject(t *testing.T, files map[string]string) afero.Fs {
	useTestRules(t)
	return projecttest.WriteProject(t, projectRoot, files)
}

func listFiles(t *testing.T, fs afero.Fs, dir string) []string {
	files := []string{}
	err := afero.Walk(fs, dir, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, strings.TrimPrefix(filename, dir+"/"))
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestBuildCommand(t *testing.T) {
	fs := setupProject(t, projecttest.ComponentProject)

	build, outputDir, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/work/app/dist", outputDir)

	files := listFiles(t, fs, outputDir)
	assert.Len(t, files, len(build.Artifacts))
	for _, artifact := range build.Artifacts {
		content, err := afero.ReadFile(fs, path.Join(outputDir, artifact.Path))
		require.NoError(t, err, artifact.Path)
		assert.Equal(t, artifact.Content, content, artifact.Path)
	}

	_, err = fs.Stat(outputDir + ".lock")
	assert.True(t, os.IsNotExist(err), "the lock file is removed once the build is written")
}

func TestBuildCommandCleansOutput(t *testing.T) {
	fs := setupProject(t, projecttest.ComponentProject)
	require.NoError(t, afero.WriteFile(fs, "/work/app/dist/static/js/main.stale.js", []byte("stale"), 0644))

	_, outputDir, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{})
	require.NoError(t, err)

	assert.NotContains(t, listFiles(t, fs, outputDir), "static/js/main.stale.js")
}

func TestBuildCommandOutputOverride(t *testing.T) {
	fs := setupProject(t, projecttest.ComponentProject)

	_, outputDir, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{OutputDir: "/tmp/out"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", outputDir)
	assert.Contains(t, listFiles(t, fs, outputDir), "index.html")
}

func TestBuildCommandFailureKeepsOutput(t *testing.T) {
	fs := setupProject(t, projecttest.Merge(projecttest.ComponentProject, map[string]string{
		"src/main.js": `import "./missing.js";`,
	}))
	require.NoError(t, afero.WriteFile(fs, "/work/app/dist/index.html", []byte("previous"), 0644))

	_, _, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{})
	var unresolved *pipeline.UnresolvedImportError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "./missing.js", unresolved.Specifier)

	content, err := afero.ReadFile(fs, "/work/app/dist/index.html")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
}

func TestBuildCommandLocked(t *testing.T) {
	fs := setupProject(t, projecttest.ComponentProject)
	require.NoError(t, afero.WriteFile(fs, "/work/app/dist/index.html", []byte("previous"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/work/app/dist.lock", nil, 0644))

	_, _, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{})
	assert.ErrorContains(t, err, "another build is writing")

	content, err := afero.ReadFile(fs, "/work/app/dist/index.html")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
}

func TestBuildCommandInvalidMode(t *testing.T) {
	fs := setupProject(t, projecttest.ComponentProject)

	_, _, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{Mode: "staging"})
	assert.ErrorContains(t, err, `unknown mode "staging"`)
}

func TestBuildCommandRejectsOutputOverSources(t *testing.T) {
	var tests = []struct {
		name    string
		config  string
		options buildOptions
	}{
		{"project root", "output: {path: .}", buildOptions{}},
		{"parent directory", "output: {path: ..}", buildOptions{}},
		{"source directory", "output: {path: src}", buildOptions{}},
		{"template directory", "output: {path: public}", buildOptions{}},
		{"root override", "", buildOptions{OutputDir: projectRoot}},
		{"ancestor override", "", buildOptions{OutputDir: "/work"}},
		{"source override", "", buildOptions{OutputDir: projectRoot + "/src"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := projecttest.ComponentProject
			if tt.config != "" {
				files = projecttest.Merge(files, map[string]string{"pack.yaml": tt.config})
			}
			fs := setupProject(t, files)

			_, _, err := runBuildCmd(context.Background(), fs, projectRoot, tt.options)
			assert.ErrorContains(t, err, "output")

			for filename, content := range projecttest.ComponentProject {
				stored, err := afero.ReadFile(fs, path.Join(projectRoot, filename))
				require.NoError(t, err, filename)
				assert.Equal(t, content, string(stored), filename)
			}
		})
	}
}

// failingFs refuses to write files with the given suffix.
type failingFs struct {
	afero.Fs
	suffix string
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.HasSuffix(name, f.suffix) && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestBuildCommandFailedWriteKeepsOutput(t *testing.T) {
	memFs := setupProject(t, projecttest.ComponentProject)
	require.NoError(t, afero.WriteFile(memFs, "/work/app/dist/index.html", []byte("previous"), 0644))
	fs := &failingFs{Fs: memFs, suffix: ".css"}

	_, _, err := runBuildCmd(context.Background(), fs, projectRoot, buildOptions{})
	require.ErrorIs(t, err, os.ErrPermission)

	assert.Equal(t, []string{"index.html"}, listFiles(t, memFs, "/work/app/dist"))
	for _, leftover := range []string{"/work/app/dist.staging", "/work/app/dist.previous", "/work/app/dist.lock"} {
		_, err := memFs.Stat(leftover)
		assert.True(t, os.IsNotExist(err), leftover)
	}
}
