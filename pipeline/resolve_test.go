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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(name string) Transform {
	return TransformFunc{Label: name, Fn: func(ctx context.Context, source Source) (Source, error) {
		return source, nil
	}}
}

func appending(name string) Transform {
	return TransformFunc{Label: name, Fn: func(ctx context.Context, source Source) (Source, error) {
		source.Bytes = append(append([]byte{}, source.Bytes...), []byte("|"+name)...)
		return source, nil
	}}
}

func TestResolveThreadsStages(t *testing.T) {
	rule, err := NewRule("chain", `.*`, nil, appending("a"), appending("b"), appending("c"))
	require.NoError(t, err)

	output, err := Resolve(context.Background(), rule, Source{Path: "src/x.js", Bytes: []byte("x")})
	assert.NoError(t, err)
	assert.Equal(t, "x|a|b|c", string(output.Bytes))
	assert.Equal(t, "src/x.js", output.Path)
}

func TestResolveFailingStage(t *testing.T) {
	cause := fmt.Errorf("unexpected token")
	called := false
	failing := TransformFunc{Label: "sass", Fn: func(ctx context.Context, source Source) (Source, error) {
		return Source{}, cause
	}}
	after := TransformFunc{Label: "css", Fn: func(ctx context.Context, source Source) (Source, error) {
		called = true
		return source, nil
	}}
	rule, err := NewRule("style", `\.scss$`, nil, appending("first"), failing, after)
	require.NoError(t, err)

	output, err := Resolve(context.Background(), rule, Source{Path: "src/style.scss", Bytes: []byte("a {")})
	assert.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, output.Bytes)

	assert.True(t, errors.Is(err, ErrTransform))
	assert.True(t, errors.Is(err, cause))

	var transformErr *TransformError
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, "src/style.scss", transformErr.Path)
	assert.Equal(t, "style", transformErr.Rule)
	assert.Equal(t, "sass", transformErr.Stage)
	assert.Equal(t, 1, transformErr.Index)
	assert.Contains(t, err.Error(), "src/style.scss")
	assert.Contains(t, err.Error(), "sass")
}

func TestResolveCanceled(t *testing.T) {
	rule, err := NewRule("chain", `.*`, nil, appending("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Resolve(ctx, rule, Source{Path: "src/x.js"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTransformCache(t *testing.T) {
	cache, err := NewTransformCache(8)
	require.NoError(t, err)
	rule, err := NewRule("script", `\.js$`, nil, identity("babel"))
	require.NoError(t, err)

	source := Source{Path: "src/main.js", Bytes: []byte("let a = 1;")}
	_, found := cache.Get(rule, source)
	assert.False(t, found)

	cache.Add(rule, source, Source{Path: "src/main.js", Bytes: []byte("var a = 1;")})
	output, found := cache.Get(rule, source)
	assert.True(t, found)
	assert.Equal(t, "var a = 1;", string(output.Bytes))
	assert.Equal(t, 1, cache.Len())

	_, found = cache.Get(rule, Source{Path: "src/main.js", Bytes: []byte("let a = 2;")})
	assert.False(t, found)

	other, err := NewRule("script", `\.js$`, nil, identity("module"))
	require.NoError(t, err)
	_, found = cache.Get(other, source)
	assert.False(t, found)

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestNilTransformCache(t *testing.T) {
	var cache *TransformCache
	rule, err := NewRule("script", `\.js$`, nil)
	require.NoError(t, err)

	cache.Add(rule, Source{}, Source{})
	_, found := cache.Get(rule, Source{})
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
	cache.Purge()
}
