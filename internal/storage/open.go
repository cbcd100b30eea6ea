package storage

import (
	"context"
	"fmt"

	"github.com/andresuchdata/exportflow/internal/config"
	"github.com/andresuchdata/exportflow/internal/drive"
)

// Open builds the Provider selected by cfg.Provider.
func Open(ctx context.Context, cfg config.RemoteConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderDrive:
		var (
			srv *drive.Service
			err error
		)
		if cfg.DriveCredentialsJSON != "" {
			srv, err = drive.NewService(ctx, []byte(cfg.DriveCredentialsJSON))
		} else {
			srv, err = drive.NewServiceFromFile(ctx, cfg.DriveCredentialsFile)
		}
		if err != nil {
			return nil, err
		}
		return srv, nil
	case config.ProviderS3:
		client, err := NewS3Client(ctx, S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderMinio:
		client, err := NewMinioClient(MinioConfig{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Provider)
	}
}

var _ Provider = (*drive.Service)(nil)
