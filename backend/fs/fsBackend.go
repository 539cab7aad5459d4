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

package fs

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cogment/cogment-pack/backend"
)

type fsBackend struct {
	fs          afero.Fs
	rootDirname string
}

// CreateBackend creates a new backend storing artifacts under a directory of the given filesystem
func CreateBackend(fs afero.Fs, rootDirname string) (backend.Backend, error) {
	rootDirentry, err := fs.Stat(rootDirname)
	if os.IsNotExist(err) {
		if err := fs.MkdirAll(rootDirname, 0755); err != nil {
			return nil, fmt.Errorf("Unable to create filesystem backend: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("Unable to create filesystem backend: %w", err)
	} else if !rootDirentry.IsDir() {
		return nil, fmt.Errorf("Unable to create filesystem backend: %q is not a directory", rootDirname)
	}
	b := fsBackend{
		fs:          fs,
		rootDirname: rootDirname,
	}
	return &b, nil
}

// Destroy terminates the underlying storage
func (b *fsBackend) Destroy() {
	// Nothing
}

// Clean removes the content of the root directory, the directory itself is kept
func (b *fsBackend) Clean(ctx context.Context) error {
	entries, err := afero.ReadDir(b.fs, b.rootDirname)
	if err != nil {
		return fmt.Errorf("unable to clean %q: %w", b.rootDirname, err)
	}
	for _, entry := range entries {
		if err := b.fs.RemoveAll(path.Join(b.rootDirname, entry.Name())); err != nil {
			return fmt.Errorf("unable to clean %q: %w", b.rootDirname, err)
		}
	}
	return nil
}

func (b *fsBackend) Put(ctx context.Context, artifact backend.Artifact) error {
	artifactPath, err := backend.CleanArtifactPath(artifact.Path)
	if err != nil {
		return err
	}
	filename := path.Join(b.rootDirname, artifactPath)
	if err := b.fs.MkdirAll(path.Dir(filename), 0755); err != nil {
		return fmt.Errorf("unable to store %q: %w", artifactPath, err)
	}
	if err := afero.WriteFile(b.fs, filename, artifact.Content, 0644); err != nil {
		return fmt.Errorf("unable to store %q: %w", artifactPath, err)
	}
	return nil
}

func (b *fsBackend) Get(ctx context.Context, artifactPath string) (backend.Artifact, error) {
	cleaned, err := backend.CleanArtifactPath(artifactPath)
	if err != nil {
		return backend.Artifact{}, err
	}
	content, err := afero.ReadFile(b.fs, path.Join(b.rootDirname, cleaned))
	if os.IsNotExist(err) {
		return backend.Artifact{}, &backend.UnknownArtifactError{Path: cleaned}
	}
	if err != nil {
		return backend.Artifact{}, err
	}
	return backend.Artifact{Path: cleaned, Content: content, ContentType: backend.ContentType(cleaned)}, nil
}

func (b *fsBackend) List(ctx context.Context) ([]string, error) {
	paths := []string{}
	err := afero.Walk(b.fs, b.rootDirname, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relative := strings.TrimPrefix(strings.ReplaceAll(filename, "\\", "/"), strings.TrimSuffix(b.rootDirname, "/")+"/")
		paths = append(paths, relative)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
