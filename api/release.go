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

// ArtifactList is the list of the artifacts stored for an application on the platform.
type ArtifactList struct {
	Artifacts []string `json:"artifacts"`
}

// Release describes a published build, it is posted once every artifact is uploaded.
type Release struct {
	Id          string             `json:"id,omitempty"`
	Application string             `json:"application"`
	Version     string             `json:"version"`
	Entrypoint  string             `json:"entrypoint"`
	Artifacts   []*ReleaseArtifact `json:"artifacts"`
	CreatedAt   int                `json:"created_at,omitempty"`
}

type ReleaseArtifact struct {
	Path   string `json:"path"`
	Chunk  string `json:"chunk,omitempty"`
	Size   int    `json:"size"`
	Hashed bool   `json:"hashed"`
}
