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

package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/backend"
)

// Script1 is example script artifact content
var Script1 = []byte(`__pack_define("1f2e3d4c", {}, function (module, exports, require) {
module.exports = "Lorem ipsum dolor sit amet, consectetuer adipiscing elit.";
});
__pack_start("1f2e3d4c");
`)

// Style1 is example style artifact content
var Style1 = []byte(`body {
  margin: 0;
  font-family: Avenir, Helvetica, Arial, sans-serif;
}
`)

// Document1 is example html artifact content
var Document1 = []byte(`<!DOCTYPE html><html><head><link href="/main.0a1b2c3d.css" rel="stylesheet"/></head><body><script src="/static/js/main.4e5f6a7b.js"></script></body></html>`)

// RunSuite runs the full backend test suite
func RunSuite(t *testing.T, createBackend func() backend.Backend) {
	ctx := context.Background()
	cases := []struct {
		name string
		test func(t *testing.T)
	}{
		{
			name: "TestCreateAndDestroyBackend",
			test: func(t *testing.T) {
				b := createBackend()
				assert.NotNil(t, b)
				b.Destroy()
			},
		},
		{
			name: "TestPutAndGet",
			test: func(t *testing.T) {
				b := createBackend()
				defer b.Destroy()

				err := b.Put(ctx, backend.Artifact{Path: "static/js/main.4e5f6a7b.js", Content: Script1, ContentType: backend.ContentType("main.js"), CacheControl: backend.ImmutableCacheControl})
				require.NoError(t, err)

				artifact, err := b.Get(ctx, "static/js/main.4e5f6a7b.js")
				require.NoError(t, err)
				assert.Equal(t, "static/js/main.4e5f6a7b.js", artifact.Path)
				assert.Equal(t, Script1, artifact.Content)

				// Overwriting is allowed, a rebuild produces the same names for the same contents
				err = b.Put(ctx, backend.Artifact{Path: "static/js/main.4e5f6a7b.js", Content: Script1})
				assert.NoError(t, err)
			},
		},
		{
			name: "TestGetUnknownArtifact",
			test: func(t *testing.T) {
				b := createBackend()
				defer b.Destroy()

				_, err := b.Get(ctx, "static/js/unknown.00000000.js")
				expectedErr := &backend.UnknownArtifactError{}
				assert.ErrorAs(t, err, &expectedErr)
				assert.Equal(t, "static/js/unknown.00000000.js", expectedErr.Path)
			},
		},
		{
			name: "TestList",
			test: func(t *testing.T) {
				b := createBackend()
				defer b.Destroy()

				require.NoError(t, b.Put(ctx, backend.Artifact{Path: "main.0a1b2c3d.css", Content: Style1}))
				require.NoError(t, b.Put(ctx, backend.Artifact{Path: "static/js/main.4e5f6a7b.js", Content: Script1}))
				require.NoError(t, b.Put(ctx, backend.Artifact{Path: "index.html", Content: Document1}))

				paths, err := b.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, []string{"index.html", "main.0a1b2c3d.css", "static/js/main.4e5f6a7b.js"}, paths)
			},
		},
		{
			name: "TestClean",
			test: func(t *testing.T) {
				b := createBackend()
				defer b.Destroy()

				require.NoError(t, b.Put(ctx, backend.Artifact{Path: "static/js/main.4e5f6a7b.js", Content: Script1}))
				require.NoError(t, b.Put(ctx, backend.Artifact{Path: "index.html", Content: Document1}))

				err := b.Clean(ctx)
				require.NoError(t, err)

				paths, err := b.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, paths)

				// Cleaning an empty backend is fine
				assert.NoError(t, b.Clean(ctx))
			},
		},
		{
			name: "TestInvalidPath",
			test: func(t *testing.T) {
				b := createBackend()
				defer b.Destroy()

				err := b.Put(ctx, backend.Artifact{Path: "../outside.js", Content: Script1})
				expectedErr := &backend.InvalidArtifactPathError{}
				assert.ErrorAs(t, err, &expectedErr)
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, c.test)
	}
}
