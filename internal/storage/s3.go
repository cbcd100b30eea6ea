package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

// S3Config configures the AWS S3 provider. Empty keys fall back to the
// default AWS credential chain (env, shared config, instance role).
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
}

// S3Client implements Provider on top of aws-sdk-go-v2. Buckets are containers.
type S3Client struct {
	s3Client *s3.Client
	prefix   string
}

// NewS3Client loads the AWS configuration and builds the client.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Client *s3.Client
	if cfg.Endpoint != "" {
		s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		s3Client = s3.NewFromConfig(awsCfg)
	}

	return &S3Client{
		s3Client: s3Client,
		prefix:   normalizePrefix(cfg.Prefix),
	}, nil
}

// FindContainers returns the bucket named name, or nothing if it does not exist.
func (c *S3Client) FindContainers(ctx context.Context, name string) ([]domain.Container, error) {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to head bucket %s", name)
	}
	return []domain.Container{{ID: name, Name: name}}, nil
}

// ListEntries lists the objects directly under the configured prefix.
func (c *S3Client) ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(container.ID),
		Delimiter: aws.String("/"),
	}
	if c.prefix != "" {
		input.Prefix = aws.String(c.prefix)
	}

	var entries []domain.RemoteEntry
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list objects in %s", container.Name)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name, ok := entryName(c.prefix, key)
			if !ok {
				continue
			}
			entries = append(entries, domain.RemoteEntry{
				ID:          key,
				Name:        name,
				ContainerID: container.ID,
				Size:        aws.ToInt64(obj.Size),
			})
		}
	}

	return entries, nil
}

// Download streams an object into w.
func (c *S3Client) Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(entry.ContainerID),
		Key:    aws.String(entry.ID),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get object %s", entry.ID)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return errors.Wrapf(err, "failed to read object %s", entry.ID)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

var _ Provider = (*S3Client)(nil)
