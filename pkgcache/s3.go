// Copyright © 2024 The ELPS authors

package pkgcache

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates a package repository in an S3 compatible bucket.  Objects
// are laid out like the local cache: <prefix>/<name>/<version>/<file>.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Fetcher downloads packages from an S3 compatible bucket.
type S3Fetcher struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ Fetcher = (*S3Fetcher)(nil)

func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	var creds *credentials.Credentials
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Fetcher{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

// Fetch downloads every object of dep into root/<name>/<version>.
func (f *S3Fetcher) Fetch(ctx context.Context, dep Dependency, root string) (Dependency, error) {
	if dep.Version == "" {
		versions, err := f.versions(ctx, dep.Name)
		if err != nil {
			return dep, err
		}
		dep.Version = Latest(versions)
		if dep.Version == "" {
			return dep, fmt.Errorf("no versions of %s in bucket %s", dep.Name, f.bucket)
		}
	}
	prefix := f.key(dep.Name, dep.Version) + "/"
	dest := filepath.Join(root, dep.Name, dep.Version)
	var n int
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return dep, obj.Err
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, dest+string(filepath.Separator)) {
			return dep, fmt.Errorf("object key escapes package directory: %s", obj.Key)
		}
		err := f.client.FGetObject(ctx, f.bucket, obj.Key, target, minio.GetObjectOptions{})
		if err != nil {
			return dep, fmt.Errorf("download %s: %w", obj.Key, err)
		}
		n++
	}
	if n == 0 {
		return dep, fmt.Errorf("package %s not found in bucket %s", dep, f.bucket)
	}
	return dep, nil
}

// versions lists the version directories of a package.
func (f *S3Fetcher) versions(ctx context.Context, name string) ([]string, error) {
	prefix := f.key(name) + "/"
	var versions []string
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix: prefix,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		v := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if v != "" && !strings.Contains(v, "/") {
			versions = append(versions, v)
		}
	}
	return versions, nil
}

func (f *S3Fetcher) key(parts ...string) string {
	if f.prefix != "" {
		parts = append([]string{f.prefix}, parts...)
	}
	return path.Join(parts...)
}
