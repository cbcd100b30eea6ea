package storage

import (
	"context"
	"io"
	"strings"

	"github.com/andresuchdata/exportflow/internal/domain"
)

// Provider captures the remote operations the pipeline needs from any backend:
// resolving a container by exact name, listing its entries and downloading one.
type Provider interface {
	FindContainers(ctx context.Context, name string) ([]domain.Container, error)
	ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error)
	Download(ctx context.Context, entry domain.RemoteEntry, w io.Writer) error
}

// normalizePrefix makes a listing prefix end in exactly one slash, or be empty.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// entryName strips the listing prefix from an object key. Keys that are
// directory markers or live below a nested prefix return ok=false.
func entryName(prefix, key string) (string, bool) {
	name := strings.TrimPrefix(key, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
