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
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/pipeline"
)

func TestCSS(t *testing.T) {
	output, err := apply(t, "css", nil, pipeline.Source{Path: "src/style.css", Bytes: []byte(`
@import "./reset.css";
@import url("~normalize.css/normalize.css");
@import url("https://fonts.googleapis.com/css?family=Roboto");
.logo { background: url(./assets/logo.png) no-repeat; }
.icon { background: url("img/icon.svg#shape"); }
.inline { background: url(data:image/png;base64,iVBORw0KGgo=); }
.remote { background: url('//cdn.example.com/a.png'); }
.absolute { background: url(/static/a.png); }
`)})
	require.NoError(t, err)

	assert.Equal(t, pipeline.KindStyle, output.Kind)
	assert.Equal(t, []string{"./reset.css", "normalize.css/normalize.css", "./assets/logo.png", "./img/icon.svg#shape"}, output.Dependencies)

	css := string(output.Bytes)
	assert.NotContains(t, css, "reset.css")
	assert.Contains(t, css, `@import url("https://fonts.googleapis.com/css?family=Roboto");`)
	assert.Contains(t, css, "url("+pipeline.URLPlaceholder("./assets/logo.png")+") no-repeat")
	assert.Contains(t, css, "url(data:image/png;base64,iVBORw0KGgo=)")
	assert.Contains(t, css, "url('//cdn.example.com/a.png')")
	assert.Contains(t, css, "url(/static/a.png)")
}

func TestCSSIsIdempotentOnPlaceholders(t *testing.T) {
	source := pipeline.Source{Path: "src/style.css", Bytes: []byte(".a { background: url(./a.png); }")}
	once, err := apply(t, "css", nil, source)
	require.NoError(t, err)
	twice, err := apply(t, "css", nil, once)
	require.NoError(t, err)
	assert.Equal(t, string(once.Bytes), string(twice.Bytes))
	assert.Equal(t, once.Dependencies, twice.Dependencies)
}

func TestPostcss(t *testing.T) {
	output, err := apply(t, "postcss", nil, pipeline.Source{Path: "src/style.css", Bytes: []byte(".a { user-select: none; }")})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`-webkit-user-select:\s*none`), string(output.Bytes))

	output, err = apply(t, "postcss", LoaderOptions{"minify": true}, pipeline.Source{Path: "src/style.css", Bytes: []byte(".a {\n  color: #ff0000;\n}\n")})
	require.NoError(t, err)
	assert.Equal(t, ".a{color:red}", strings.TrimSpace(string(output.Bytes)))
}

func TestExtract(t *testing.T) {
	output, err := apply(t, "extract", nil, pipeline.Source{Path: "src/style.css", Kind: pipeline.KindStyle, Bytes: []byte("\n.a { color: red; }\n\n")})
	require.NoError(t, err)
	assert.Equal(t, ".a { color: red; }\n", string(output.Bytes))
	assert.Equal(t, pipeline.KindStyle, output.Kind)

	_, err = apply(t, "extract", nil, pipeline.Source{Path: "src/style.css", Kind: pipeline.KindScript})
	assert.Error(t, err)
}

func TestExtractKeepsInputBytes(t *testing.T) {
	// Spare capacity after the trimmed content must not be written to.
	backing := make([]byte, 0, 64)
	backing = append(backing, ".a { color: red; }  "...)
	input := backing[:len(backing)-1]

	output, err := apply(t, "extract", nil, pipeline.Source{Path: "src/style.css", Kind: pipeline.KindStyle, Bytes: input})
	require.NoError(t, err)
	assert.Equal(t, ".a { color: red; }\n", string(output.Bytes))
	assert.Equal(t, ".a { color: red; }  ", string(backing))
}

func TestStyle(t *testing.T) {
	output, err := apply(t, "style", nil, pipeline.Source{
		Path:         "src/style.css",
		Kind:         pipeline.KindStyle,
		Bytes:        []byte(".a { background: url(" + pipeline.URLPlaceholder("./a.png") + "); }"),
		Dependencies: []string{"./reset.css", "./a.png"},
	})
	require.NoError(t, err)

	script := string(output.Bytes)
	assert.Equal(t, pipeline.KindScript, output.Kind)
	assert.Contains(t, script, `require("./reset.css");`)
	assert.NotContains(t, script, `require("./a.png")`)
	assert.Contains(t, script, `style.setAttribute("data-module", "src/style.css");`)
	assert.Contains(t, script, pipeline.URLPlaceholder("./a.png"))
}
