package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Service struct {
	srv *drive.Service
}

// NewService builds a read-only Drive client from service account JSON.
func NewService(ctx context.Context, credentialsJSON []byte) (*Service, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	return NewServiceWithOptions(ctx, option.WithHTTPClient(config.Client(ctx)))
}

// NewServiceFromFile reads the service account JSON from disk.
func NewServiceFromFile(ctx context.Context, path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read drive credentials %s: %w", path, err)
	}
	return NewService(ctx, data)
}

// NewServiceWithOptions is the escape hatch for custom transports and endpoints.
func NewServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

// FindContainers returns every non-trashed folder whose name is exactly name.
func (s *Service) FindContainers(ctx context.Context, name string) ([]domain.Container, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)

	var containers []domain.Container
	err := s.srv.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				containers = append(containers, domain.Container{ID: f.Id, Name: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, errors.Wrapf(err, "error finding folder %s", name)
	}

	return containers, nil
}

// ListEntries lists the non-trashed children of a folder.
func (s *Service) ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error) {
	var entries []domain.RemoteEntry

	err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(container.ID))).
		Fields("nextPageToken, files(id, name, mimeType, size)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				entries = append(entries, domain.RemoteEntry{
					ID:          f.Id,
					Name:        f.Name,
					ContainerID: container.ID,
					MimeType:    f.MimeType,
					Size:        f.Size,
				})
			}
			return nil
		})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to retrieve files in folder %s", container.Name)
	}

	return entries, nil
}

// Download streams the content of entry into w.
func (s *Service) Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error {
	resp, err := s.srv.Files.Get(entry.ID).Context(ctx).Download()
	if err != nil {
		return errors.Wrapf(err, "unable to download file %s", entry.Name)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrapf(err, "unable to read file %s", entry.Name)
	}
	return nil
}

// escapeQuery quotes a literal for the Drive query language.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
