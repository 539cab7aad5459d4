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

package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/backend"
)

// CacheControlHeader carries the cache policy the platform serves an artifact with.
const CacheControlHeader = "X-Artifact-Cache-Control"

type remoteBackend struct {
	client *resty.Client
	appID  string
}

// CreateBackend creates a new backend storing the artifacts of an application on the platform
func CreateBackend(client *resty.Client, appID string) (backend.Backend, error) {
	if appID == "" {
		return nil, fmt.Errorf("No current application found, maybe try `cogment-pack publish --app <id>`")
	}
	return &remoteBackend{client: client, appID: appID}, nil
}

// Destroy terminates the underlying storage
func (b *remoteBackend) Destroy() {
	// Nothing
}

func (b *remoteBackend) artifactsURL() string {
	return fmt.Sprintf("/applications/%s/artifacts", url.PathEscape(b.appID))
}

func (b *remoteBackend) artifactURL(artifactPath string) string {
	segments := strings.Split(artifactPath, "/")
	for idx, segment := range segments {
		segments[idx] = url.PathEscape(segment)
	}
	return b.artifactsURL() + "/" + strings.Join(segments, "/")
}

func responseError(resp *resty.Response) error {
	if http.StatusNotFound == resp.StatusCode() {
		return fmt.Errorf("%s", "Application not found")
	}
	return fmt.Errorf("%s", resp.Body())
}

func (b *remoteBackend) Clean(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Delete(b.artifactsURL())
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	return responseError(resp)
}

func compress(content []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Put uploads the gzip compressed artifact
func (b *remoteBackend) Put(ctx context.Context, artifact backend.Artifact) error {
	artifactPath, err := backend.CleanArtifactPath(artifact.Path)
	if err != nil {
		return err
	}
	body, err := compress(artifact.Content)
	if err != nil {
		return fmt.Errorf("unable to compress %q: %w", artifactPath, err)
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = backend.ContentType(artifactPath)
	}

	request := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Content-Encoding", "gzip").
		SetBody(body)
	if artifact.CacheControl != "" {
		request.SetHeader(CacheControlHeader, artifact.CacheControl)
	}
	resp, err := request.Put(b.artifactURL(artifactPath))
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	return responseError(resp)
}

func (b *remoteBackend) Get(ctx context.Context, artifactPath string) (backend.Artifact, error) {
	cleaned, err := backend.CleanArtifactPath(artifactPath)
	if err != nil {
		return backend.Artifact{}, err
	}
	resp, err := b.client.R().SetContext(ctx).Get(b.artifactURL(cleaned))
	if err != nil {
		return backend.Artifact{}, err
	}
	if http.StatusNotFound == resp.StatusCode() {
		return backend.Artifact{}, &backend.UnknownArtifactError{Path: cleaned}
	}
	if !resp.IsSuccess() {
		return backend.Artifact{}, responseError(resp)
	}
	return backend.Artifact{
		Path:         cleaned,
		Content:      resp.Body(),
		ContentType:  resp.Header().Get("Content-Type"),
		CacheControl: resp.Header().Get(CacheControlHeader),
	}, nil
}

func (b *remoteBackend) List(ctx context.Context) ([]string, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&api.ArtifactList{}).
		Get(b.artifactsURL())
	if err != nil {
		return nil, err
	}
	if http.StatusOK == resp.StatusCode() {
		paths := append([]string{}, resp.Result().(*api.ArtifactList).Artifacts...)
		sort.Strings(paths)
		return paths, nil
	}
	return nil, responseError(resp)
}
