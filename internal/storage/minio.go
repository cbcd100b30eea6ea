package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioConfig encapsulates the connection info for S3-compatible storage
// (MinIO, Sevalla, Ceph and friends).
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
}

// MinioClient implements Provider for S3-compatible services. Buckets are containers.
type MinioClient struct {
	client *minio.Client
	prefix string
}

// NewMinioClient builds a new MinioClient.
func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3-compatible endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3-compatible credentials must be provided")
	}

	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		secure = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	}
	endpoint = strings.TrimSuffix(strings.TrimPrefix(endpoint, "//"), "/")

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3-compatible client: %w", err)
	}

	return &MinioClient{
		client: client,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

// FindContainers returns the bucket named name, or nothing if it does not exist.
func (c *MinioClient) FindContainers(ctx context.Context, name string) ([]domain.Container, error) {
	exists, err := c.client.BucketExists(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", name)
	}
	if !exists {
		return nil, nil
	}
	return []domain.Container{{ID: name, Name: name}}, nil
}

// ListEntries lists the objects directly under the configured prefix.
func (c *MinioClient) ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error) {
	var entries []domain.RemoteEntry
	for object := range c.client.ListObjects(ctx, container.ID, minio.ListObjectsOptions{
		Prefix:    c.prefix,
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, errors.Wrapf(object.Err, "s3-compatible list failed for %s", container.Name)
		}
		name, ok := entryName(c.prefix, object.Key)
		if !ok {
			continue
		}
		entries = append(entries, domain.RemoteEntry{
			ID:          object.Key,
			Name:        name,
			ContainerID: container.ID,
			MimeType:    object.ContentType,
			Size:        object.Size,
		})
	}
	return entries, nil
}

// Download streams an object into w.
func (c *MinioClient) Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error {
	object, err := c.client.GetObject(ctx, entry.ContainerID, entry.ID, minio.GetObjectOptions{})
	if err != nil {
		return errors.Wrapf(err, "get object %s", entry.ID)
	}
	defer object.Close()

	if _, err := io.Copy(w, object); err != nil {
		return errors.Wrapf(err, "read object %s", entry.ID)
	}
	return nil
}

var _ Provider = (*MinioClient)(nil)
