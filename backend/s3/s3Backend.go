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

package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cogment/cogment-pack/backend"
)

// Config locates the bucket artifacts are published to.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	UseSSL bool
}

type s3Backend struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	initOnce   sync.Once
	initErr    error
}

// CreateBackend creates a new backend storing artifacts in an s3 compatible bucket
func CreateBackend(cfg Config) (backend.Backend, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &s3Backend{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     prefix,
	}, nil
}

// Destroy terminates the underlying storage
func (b *s3Backend) Destroy() {
	// Nothing
}

func (b *s3Backend) ensureBucket(ctx context.Context) error {
	b.initOnce.Do(func() {
		exists, err := b.client.BucketExists(ctx, b.bucketName)
		if err != nil {
			b.initErr = err
			return
		}
		if exists {
			return
		}
		b.initErr = b.client.MakeBucket(ctx, b.bucketName, minio.MakeBucketOptions{Region: b.region})
	})
	return b.initErr
}

func (b *s3Backend) listObjects(ctx context.Context) <-chan minio.ObjectInfo {
	return b.client.ListObjects(ctx, b.bucketName, minio.ListObjectsOptions{
		Prefix:    b.prefix,
		Recursive: true,
	})
}

// Clean removes every object under the prefix
func (b *s3Backend) Clean(ctx context.Context) error {
	if err := b.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	for removeErr := range b.client.RemoveObjects(ctx, b.bucketName, b.listObjects(ctx), minio.RemoveObjectsOptions{}) {
		return fmt.Errorf("unable to remove %q: %w", removeErr.ObjectName, removeErr.Err)
	}
	return nil
}

func (b *s3Backend) Put(ctx context.Context, artifact backend.Artifact) error {
	artifactPath, err := backend.CleanArtifactPath(artifact.Path)
	if err != nil {
		return err
	}
	if err := b.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = backend.ContentType(artifactPath)
	}
	_, err = b.client.PutObject(ctx, b.bucketName, b.prefix+artifactPath, bytes.NewReader(artifact.Content), int64(len(artifact.Content)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: artifact.CacheControl,
	})
	return err
}

func (b *s3Backend) Get(ctx context.Context, artifactPath string) (backend.Artifact, error) {
	cleaned, err := backend.CleanArtifactPath(artifactPath)
	if err != nil {
		return backend.Artifact{}, err
	}
	if err := b.ensureBucket(ctx); err != nil {
		return backend.Artifact{}, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := b.client.GetObject(ctx, b.bucketName, b.prefix+cleaned, minio.GetObjectOptions{})
	if err != nil {
		return backend.Artifact{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return backend.Artifact{}, &backend.UnknownArtifactError{Path: cleaned}
		}
		return backend.Artifact{}, err
	}
	info, err := obj.Stat()
	if err != nil {
		return backend.Artifact{}, err
	}
	return backend.Artifact{
		Path:         cleaned,
		Content:      data,
		ContentType:  info.ContentType,
		CacheControl: info.Metadata.Get("Cache-Control"),
	}, nil
}

func (b *s3Backend) List(ctx context.Context) ([]string, error) {
	if err := b.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	paths := make([]string, 0, 32)
	for obj := range b.listObjects(ctx) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		paths = append(paths, strings.TrimPrefix(obj.Key, b.prefix))
	}
	sort.Strings(paths)
	return paths, nil
}
