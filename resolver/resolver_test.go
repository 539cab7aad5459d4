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

package resolver

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProject(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for filename, content := range files {
		require.NoError(t, afero.WriteFile(fs, filename, []byte(content), 0644))
	}
	return fs
}

func TestResolve(t *testing.T) {
	fs := createProject(t, map[string]string{
		"app/src/main.js":                                "",
		"app/src/App.vue":                                "",
		"app/src/data.json":                              "{}",
		"app/src/components/index.js":                    "",
		"app/src/components/Button.vue":                  "",
		"app/src/assets/logo.png":                        "",
		"app/src/fonts/icons.woff2":                      "",
		"app/node_modules/lodash/package.json":           `{"name": "lodash", "main": "lodash.js"}`,
		"app/node_modules/lodash/lodash.js":              "",
		"app/node_modules/lodash/fp/map.js":              "",
		"app/node_modules/vue/package.json":              `{"name": "vue", "main": "dist/vue.runtime.common.js", "module": "dist/vue.runtime.esm.js" /* comment */}`,
		"app/node_modules/vue/dist/vue.runtime.esm.js":   "",
		"app/node_modules/vue/dist/vue.runtime.common.js": "",
		"app/node_modules/@scope/widget/index.js":        "",
		"app/node_modules/axios/package.json":            `{"name": "axios", "main": "index.js", "browser": {"./lib/adapters/http.js": "./lib/adapters/xhr.js"}}`,
		"app/node_modules/axios/index.js":                "",
		"app/node_modules/axios/node_modules/follow/index.js": "",
	})
	r := New(fs, "app", "node_modules", []string{"", ".js", ".vue", ".json"}, map[string]string{
		"vue$": "vue/dist/vue.runtime.esm.js",
		"@":    "./src",
	})

	var tests = []struct {
		specifier string
		importer  string
		expected  string
	}{
		{"./src/main.js", "", "src/main.js"},
		{"./src/main", "", "src/main.js"},
		{"./App.vue", "src/main.js", "src/App.vue"},
		{"./App", "src/main.js", "src/App.vue"},
		{"./data", "src/main.js", "src/data.json"},
		{"./components", "src/main.js", "src/components/index.js"},
		{"../main", "src/components/index.js", "src/main.js"},
		{"./Button", "src/components/index.js", "src/components/Button.vue"},
		{"./assets/logo.png", "src/App.vue", "src/assets/logo.png"},
		{"./fonts/icons.woff2?v=4.7.0", "src/App.vue", "src/fonts/icons.woff2?v=4.7.0"},
		{"lodash", "src/main.js", "node_modules/lodash/lodash.js"},
		{"lodash/fp/map", "src/main.js", "node_modules/lodash/fp/map.js"},
		{"vue", "src/main.js", "node_modules/vue/dist/vue.runtime.esm.js"},
		{"vue/dist/vue.runtime.common.js", "src/main.js", "node_modules/vue/dist/vue.runtime.common.js"},
		{"@scope/widget", "src/main.js", "node_modules/@scope/widget/index.js"},
		{"axios", "src/main.js", "node_modules/axios/index.js"},
		{"follow", "node_modules/axios/index.js", "node_modules/axios/node_modules/follow/index.js"},
		{"@/components/Button", "src/main.js", "src/components/Button.vue"},
		{"/src/main", "node_modules/lodash/lodash.js", "src/main.js"},
	}

	for _, tt := range tests {
		t.Run(tt.specifier+" from "+tt.importer, func(t *testing.T) {
			resolved, err := r.Resolve(tt.specifier, tt.importer)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resolved)
		})
	}
}

func TestResolveFailures(t *testing.T) {
	fs := createProject(t, map[string]string{
		"src/main.js":                  "",
		"node_modules/empty/README.md": "",
	})
	r := New(fs, "", "", []string{"", ".js"}, nil)

	var tests = []struct {
		specifier string
		importer  string
	}{
		{"./missing", "src/main.js"},
		{"../../outside.js", "src/main.js"},
		{"not-installed", "src/main.js"},
		{"empty", "src/main.js"},
		{"follow", "src/main.js"},
	}

	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			_, err := r.Resolve(tt.specifier, tt.importer)
			assert.True(t, errors.Is(err, ErrNotFound), "unexpected error %v", err)
		})
	}
}

func TestSplitPackage(t *testing.T) {
	name, subpath := splitPackage("@scope/widget/lib/a.js")
	assert.Equal(t, "@scope/widget", name)
	assert.Equal(t, "lib/a.js", subpath)

	name, subpath = splitPackage("vue")
	assert.Equal(t, "vue", name)
	assert.Equal(t, "", subpath)
}
