package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMinioClientValidation(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")

	_, err = NewMinioClient(MinioConfig{Endpoint: "minio.local:9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")

	client, err := NewMinioClient(MinioConfig{
		Endpoint:  "https://minio.local:9000/",
		AccessKey: "ak",
		SecretKey: "sk",
		Prefix:    "/sar/",
	})
	require.NoError(t, err)
	assert.Equal(t, "sar/", client.prefix)
}

func TestMinioFindContainers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/exports/" || r.URL.Path == "/exports" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client, err := NewMinioClient(MinioConfig{
		Endpoint:  srv.URL,
		AccessKey: "ak",
		SecretKey: "sk",
	})
	require.NoError(t, err)

	containers, err := client.FindContainers(context.Background(), "exports")
	require.NoError(t, err)
	assert.Equal(t, []domain.Container{{ID: "exports", Name: "exports"}}, containers)

	containers, err = client.FindContainers(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, containers)
}
