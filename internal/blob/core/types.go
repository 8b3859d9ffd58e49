// Package core defines the blob storage contract shared by the archive layer
// and the concrete backends under internal/infra/blob.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Driver identifies a blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // process memory (tests)
)

var (
	// ErrNotFound is returned by Get and Head for a missing key.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob: already exists")
)

// PutOptions carries optional object attributes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a create-only object store keyed by slash separated paths.
type Store interface {
	// Put stores r under key and fails with ErrExists when key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob content; the caller closes the reader.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs whose key starts with prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// Config selects and configures a blob backend.
type Config struct {
	Driver      Driver `yaml:"driver"`
	FSRoot      string `yaml:"fs_root"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// ConfigFromEnv reads the blob configuration.
//
//	SIMCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	SIMCORE_BLOB_FS_ROOT: directory when driver=fs (default ./blobdata)
//	SIMCORE_BLOB_S3_BUCKET: bucket, required when driver=s3
//	SIMCORE_BLOB_S3_REGION: region (default us-east-1)
//	SIMCORE_BLOB_S3_ENDPOINT: custom endpoint such as MinIO
//	SIMCORE_BLOB_S3_PATH_STYLE: true for path style addressing
func ConfigFromEnv() Config {
	cfg := Config{
		Driver:      Driver(os.Getenv("SIMCORE_BLOB_DRIVER")),
		FSRoot:      os.Getenv("SIMCORE_BLOB_FS_ROOT"),
		S3Bucket:    os.Getenv("SIMCORE_BLOB_S3_BUCKET"),
		S3Region:    os.Getenv("SIMCORE_BLOB_S3_REGION"),
		S3Endpoint:  os.Getenv("SIMCORE_BLOB_S3_ENDPOINT"),
		S3PathStyle: strings.EqualFold(os.Getenv("SIMCORE_BLOB_S3_PATH_STYLE"), "true"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverFilesystem
	}
	return cfg
}

// ValidateKey rejects empty, absolute and escaping keys.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("blob: empty key")
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("blob: absolute key %q", key)
	case strings.Contains(key, ".."):
		return fmt.Errorf("blob: key %q escapes the store", key)
	}
	return nil
}
