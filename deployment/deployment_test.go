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

package deployment

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/backend"
	"github.com/cogment/cogment-pack/pipeline"
)

type recordingBackend struct {
	mutex     sync.Mutex
	artifacts []backend.Artifact
}

func (b *recordingBackend) Destroy()                        {}
func (b *recordingBackend) Clean(ctx context.Context) error { return nil }
func (b *recordingBackend) Put(ctx context.Context, artifact backend.Artifact) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.artifacts = append(b.artifacts, artifact)
	return nil
}
func (b *recordingBackend) Get(ctx context.Context, artifactPath string) (backend.Artifact, error) {
	return backend.Artifact{}, &backend.UnknownArtifactError{Path: artifactPath}
}
func (b *recordingBackend) List(ctx context.Context) ([]string, error) { return nil, nil }

var testArtifacts = []*pipeline.Artifact{
	{Path: "index.html", Content: []byte("<html></html>"), Kind: pipeline.ArtifactDocument},
	{Path: "favicon.ico", Content: []byte{0, 0, 1, 0}, Kind: pipeline.ArtifactStatic},
	{Path: "static/js/main.4e5f6a7b.js", Content: []byte("main"), Kind: pipeline.ArtifactScript, Chunk: "main", Hashed: true},
	{Path: "static/js/runtime.0c1d2e3f.js", Content: []byte("runtime"), Kind: pipeline.ArtifactScript, Chunk: "runtime", Hashed: true},
	{Path: "main.0a1b2c3d.css", Content: []byte("body{}"), Kind: pipeline.ArtifactStyle, Chunk: "main", Hashed: true},
}

func TestUploadOrder(t *testing.T) {
	store := &recordingBackend{}
	err := Upload(context.Background(), store, testArtifacts, 2)
	require.NoError(t, err)

	require.Len(t, store.artifacts, 5)
	for _, artifact := range store.artifacts[:3] {
		assert.Equal(t, backend.ImmutableCacheControl, artifact.CacheControl, artifact.Path)
	}
	assert.Equal(t, "favicon.ico", store.artifacts[3].Path)
	assert.Equal(t, backend.RevalidateCacheControl, store.artifacts[3].CacheControl)
	assert.Equal(t, "index.html", store.artifacts[4].Path)
	assert.Equal(t, "text/html; charset=utf-8", store.artifacts[4].ContentType)
}

func TestCreateReleaseFromBuild(t *testing.T) {
	release := CreateReleaseFromBuild("my-app", "1.2.0", &pipeline.Build{Artifacts: testArtifacts})

	assert.Equal(t, "my-app", release.Application)
	assert.Equal(t, "index.html", release.Entrypoint)
	assert.Len(t, release.Artifacts, 5)
	assert.Equal(t, &api.ReleaseArtifact{Path: "static/js/main.4e5f6a7b.js", Chunk: "main", Size: 4, Hashed: true}, release.Artifacts[2])
}

func TestPostRelease(t *testing.T) {
	client := resty.New()
	httpmock.ActivateNonDefault(client.GetClient())
	defer httpmock.DeactivateAndReset()

	myErr := map[string]interface{}{"detail": "error"}

	var tests = []struct {
		name        string
		statusCode  int
		response    interface{}
		expectedErr string
	}{
		{"created", 201, api.Release{Id: "r-1", Application: "my-app"}, ""},
		{"bad request", 400, myErr, `{"detail":"error"}`},
		{"not found", 404, "invalid", "Application not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpmock.Reset()
			httpmock.RegisterResponder("POST", "/applications/my-app/releases",
				func(req *http.Request) (*http.Response, error) {
					return httpmock.NewJsonResponse(tt.statusCode, tt.response)
				},
			)

			release, err := PostRelease(client, &api.Release{Application: "my-app"})
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "r-1", release.Id)
		})
	}
}

func TestPlatformClient(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	_, err := PlatformClient(false)
	assert.Error(t, err)

	viper.Set("remote", "staging")
	viper.Set("staging.url", "https://platform.example.com/api")
	viper.Set("staging.token", "secret")

	client, err := PlatformClient(false)
	require.NoError(t, err)
	assert.Equal(t, "https://platform.example.com/api", client.BaseURL)
	assert.Equal(t, "Token secret", client.Header.Get("Authorization"))
}
