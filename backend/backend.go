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

package backend

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
)

const (
	// ImmutableCacheControl is sent with content hashed artifacts.
	ImmutableCacheControl = "public, max-age=31536000, immutable"
	// RevalidateCacheControl is sent with artifacts whose path doesn't change with their content.
	RevalidateCacheControl = "no-cache"
)

// Artifact is a file of a build as stored by a backend, its path is relative to the backend root.
type Artifact struct {
	Path         string
	Content      []byte
	ContentType  string
	CacheControl string
}

// Backend defines the interface for a build output store
type Backend interface {
	Destroy()

	// Clean removes every stored artifact, builds never merge with a previous output.
	Clean(ctx context.Context) error
	Put(ctx context.Context, artifact Artifact) error
	Get(ctx context.Context, artifactPath string) (Artifact, error)
	// List returns the sorted paths of the stored artifacts.
	List(ctx context.Context) ([]string, error)
}

// UnknownArtifactError is raised when trying to retrieve an unknown artifact
type UnknownArtifactError struct {
	Path string
}

func (e *UnknownArtifactError) Error() string {
	return fmt.Sprintf("no artifact %q found", e.Path)
}

// InvalidArtifactPathError is raised when an artifact path escapes the backend root
type InvalidArtifactPathError struct {
	Path string
}

func (e *InvalidArtifactPathError) Error() string {
	return fmt.Sprintf("invalid artifact path %q", e.Path)
}

// CleanArtifactPath validates and normalizes an artifact path.
func CleanArtifactPath(artifactPath string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(artifactPath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(artifactPath, "../") || strings.Contains(artifactPath, "/../") {
		return "", &InvalidArtifactPathError{Path: artifactPath}
	}
	return cleaned, nil
}

var contentTypes = map[string]string{
	".js":    "application/javascript; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".webm":  "video/webm",
	".mp4":   "video/mp4",
}

// ContentType guesses the content type of an artifact from its extension.
func ContentType(artifactPath string) string {
	ext := strings.ToLower(path.Ext(artifactPath))
	if contentType, known := contentTypes[ext]; known {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}
