package storage

import (
	"context"
	"testing"

	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsProvider(t *testing.T) {
	p, err := Open(context.Background(), config.RemoteConfig{
		Provider: config.ProviderMinio,
		S3:       config.S3Config{Endpoint: "http://minio.local:9000", AccessKey: "ak", SecretKey: "sk"},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinioClient{}, p)

	p, err = Open(context.Background(), config.RemoteConfig{
		Provider: config.ProviderS3,
		S3:       config.S3Config{Region: "eu-west-1", AccessKey: "ak", SecretKey: "sk"},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, p)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(context.Background(), config.RemoteConfig{Provider: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")

	_, err = Open(context.Background(), config.RemoteConfig{
		Provider:             config.ProviderDrive,
		DriveCredentialsJSON: "not json",
	})
	require.Error(t, err)

	_, err = Open(context.Background(), config.RemoteConfig{
		Provider:             config.ProviderDrive,
		DriveCredentialsFile: "/nonexistent/sa.json",
	})
	require.Error(t, err)
}
