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
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/backend"
	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
)

var logger = helper.GetSugarLogger([]string{"deployment"})

// ToBackendArtifact attaches the content type and cache policy to a build artifact.
func ToBackendArtifact(artifact *pipeline.Artifact) backend.Artifact {
	cacheControl := backend.RevalidateCacheControl
	if artifact.Hashed {
		cacheControl = backend.ImmutableCacheControl
	}
	return backend.Artifact{
		Path:         artifact.Path,
		Content:      artifact.Content,
		ContentType:  backend.ContentType(artifact.Path),
		CacheControl: cacheControl,
	}
}

// Upload stores the artifacts of a build. Content hashed artifacts are uploaded concurrently,
// the others follow one by one with the html document last, a reader never gets a document
// referencing files that aren't there yet.
func Upload(ctx context.Context, store backend.Backend, artifacts []*pipeline.Artifact, concurrency int) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}
	unhashed := []*pipeline.Artifact{}
	documents := []*pipeline.Artifact{}
	for _, artifact := range artifacts {
		switch {
		case artifact.Kind == pipeline.ArtifactDocument:
			documents = append(documents, artifact)
		case artifact.Hashed:
			artifact := artifact
			group.Go(func() error {
				logger.Debugf("uploading %q", artifact.Path)
				if err := store.Put(groupCtx, ToBackendArtifact(artifact)); err != nil {
					return fmt.Errorf("unable to upload %q: %w", artifact.Path, err)
				}
				return nil
			})
		default:
			unhashed = append(unhashed, artifact)
		}
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, artifact := range append(unhashed, documents...) {
		logger.Debugf("uploading %q", artifact.Path)
		if err := store.Put(ctx, ToBackendArtifact(artifact)); err != nil {
			return fmt.Errorf("unable to upload %q: %w", artifact.Path, err)
		}
	}
	return nil
}

// CreateReleaseFromBuild lists the artifacts of a build in a release manifest.
func CreateReleaseFromBuild(appID string, version string, build *pipeline.Build) *api.Release {
	release := &api.Release{
		Application: appID,
		Version:     version,
		Artifacts:   []*api.ReleaseArtifact{},
	}
	for _, artifact := range build.Artifacts {
		if artifact.Kind == pipeline.ArtifactDocument && release.Entrypoint == "" {
			release.Entrypoint = artifact.Path
		}
		release.Artifacts = append(release.Artifacts, &api.ReleaseArtifact{
			Path:   artifact.Path,
			Chunk:  artifact.Chunk,
			Size:   len(artifact.Content),
			Hashed: artifact.Hashed,
		})
	}
	return release
}
