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

package api

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDefaultPipelineConfig(t *testing.T) {
	config := CreateDefaultPipelineConfig()

	assert.Equal(t, "production", config.Mode)
	assert.Equal(t, []*EntryConfig{{Name: "main", Path: "src/main.js"}}, config.Entries)
	assert.Equal(t, "dist", config.Output.Path)
	assert.Equal(t, "/", config.Output.PublicPath)
	assert.Equal(t, "static/js/[name].[hash:8].js", config.Output.Filename)
	assert.Equal(t, "vue/dist/vue.runtime.esm.js", config.Resolve.Alias["vue$"])
	assert.Equal(t, "runtime", config.Optimization.RuntimeChunk)
	assert.Equal(t, "vendors", config.Optimization.VendorName)
	assert.True(t, config.DevServer.HistoryFallback())

	ruleNames := []string{}
	for _, rule := range config.Rules {
		ruleNames = append(ruleNames, rule.Name)
	}
	assert.Equal(t, []string{"script", "vendor-script", "json", "vue", "style", "font", "image"}, ruleNames)

	styleLoaders := []string{}
	for _, loader := range config.Rules[4].Use {
		styleLoaders = append(styleLoaders, loader.Loader)
	}
	assert.Equal(t, []string{"sass", "postcss", "css", "extract"}, styleLoaders)
}

func TestLoadPipelineConfig(t *testing.T) {
	fs := afero.NewMemMapFs()

	config, err := LoadPipelineConfig(fs, "app")
	require.NoError(t, err)
	assert.Equal(t, "dist", config.Output.Path)

	err = afero.WriteFile(fs, "app/pack.yaml", []byte(`
mode: development
entries:
  - name: admin
    path: ./src/admin.js
  - name: site
    path: src/site.js
output:
  path: build
resolve:
  alias:
    "@": src
dev_server:
  history_api_fallback: false
`), 0644)
	require.NoError(t, err)

	config, err = LoadPipelineConfig(fs, "app")
	require.NoError(t, err)

	assert.False(t, config.IsProduction())
	assert.Equal(t, []*EntryConfig{{Name: "admin", Path: "src/admin.js"}, {Name: "site", Path: "src/site.js"}}, config.Entries)
	assert.Equal(t, "build", config.Output.Path)
	assert.Equal(t, "/", config.Output.PublicPath)
	assert.Equal(t, "src", config.Resolve.Alias["@"])
	assert.Equal(t, "vue/dist/vue.runtime.esm.js", config.Resolve.Alias["vue$"])
	assert.False(t, config.DevServer.HistoryFallback())
	assert.Len(t, config.Rules, 7)
}

func TestExtendDefaultPipelineConfigLeavesInputUntouched(t *testing.T) {
	config := &PipelineConfig{ProjectName: "demo"}

	extended, err := ExtendDefaultPipelineConfig(config)
	require.NoError(t, err)

	assert.Equal(t, "demo", extended.ProjectName)
	assert.NotEmpty(t, extended.Rules)
	assert.Empty(t, config.Rules)
	assert.Empty(t, config.Mode)
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		name   string
		config string
	}{
		{"unknown mode", "mode: staging"},
		{"duplicated entry", "entries: [{name: a, path: a.js}, {name: a, path: b.js}]"},
		{"entry named after the runtime chunk", "entries: [{name: runtime, path: a.js}]"},
		{"rule without loader", "rules: [{name: empty, test: '\\.js$'}]"},
		{"rule without test", "rules: [{name: js, use: [{loader: babel}]}]"},
		{"output in the project root", "output: {path: .}"},
		{"output above the project root", "output: {path: ../..}"},
		{"output containing an entry", "output: {path: src}"},
		{"output containing the template", "output: {path: ./public/}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "pack.yaml", []byte(tt.config), 0644))

			_, err := CreatePipelineConfigFromYaml(fs, "pack.yaml")
			assert.Error(t, err)
		})
	}
}

func TestExtendKeepsExplicitFalse(t *testing.T) {
	disabled := false
	extended, err := ExtendDefaultPipelineConfig(&PipelineConfig{DevServer: DevServerConfig{HistoryApiFallback: &disabled}})
	require.NoError(t, err)
	assert.False(t, extended.DevServer.HistoryFallback())

	extended, err = ExtendDefaultPipelineConfig(&PipelineConfig{})
	require.NoError(t, err)
	assert.True(t, extended.DevServer.HistoryFallback())
}

func TestValidateOutputPath(t *testing.T) {
	config := CreateDefaultPipelineConfig()

	var tests = []struct {
		outputPath string
		valid      bool
	}{
		{"dist", true},
		{"build/web", true},
		{"src/generated", true},
		{"../dist", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../..", false},
		{"src", false},
		{"public", false},
		{"pack.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.outputPath, func(t *testing.T) {
			err := config.ValidateOutputPath(tt.outputPath)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestUnknownKeysAreRejected(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "pack.yaml", []byte("entry: ./src/main.js"), 0644))

	_, err := CreatePipelineConfigFromYaml(fs, "pack.yaml")
	assert.Error(t, err)
}

func TestLoadBuildEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "app/.env", []byte("PACK_APP_API=https://api.example.com\nSECRET=hidden\nPACK_APP_TITLE=Demo\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "app/.env.production", []byte("PACK_APP_TITLE=Demo (prod)\n"), 0644))

	config := CreateDefaultPipelineConfig()
	env, err := LoadBuildEnv(fs, "app", config)
	require.NoError(t, err)

	assert.Equal(t, []string{"NODE_ENV", "PACK_APP_API", "PACK_APP_TITLE"}, env.Keys())
	assert.Equal(t, "Demo (prod)", env["PACK_APP_TITLE"])

	defines := env.Defines()
	assert.Equal(t, `"production"`, defines["process.env.NODE_ENV"])
	assert.Equal(t, `"https://api.example.com"`, defines["process.env.PACK_APP_API"])
	assert.NotContains(t, defines, "process.env.SECRET")
}
