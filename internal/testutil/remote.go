package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/andresuchdata/exportflow/internal/domain"
)

// FakeRemote is an in-memory remote provider. Listings are scripted per
// attempt; once the script is exhausted the last listing repeats.
type FakeRemote struct {
	mu sync.Mutex

	Containers   []domain.Container
	Listings     [][]domain.RemoteEntry
	Content      map[string]string
	FailDownload map[string]error
	FindErr      error
	ListErr      error

	FindCalls     int
	ListCalls     int
	DownloadCalls map[string]int
}

// NewFakeRemote returns a FakeRemote holding a single container.
func NewFakeRemote(container domain.Container, listings ...[]domain.RemoteEntry) *FakeRemote {
	return &FakeRemote{
		Containers:    []domain.Container{container},
		Listings:      listings,
		Content:       map[string]string{},
		FailDownload:  map[string]error{},
		DownloadCalls: map[string]int{},
	}
}

func (f *FakeRemote) FindContainers(_ context.Context, name string) ([]domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FindCalls++
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	var out []domain.Container
	for _, c := range f.Containers {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *FakeRemote) ListEntries(_ context.Context, container domain.Container) ([]domain.RemoteEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if len(f.Listings) == 0 {
		return nil, nil
	}
	idx := f.ListCalls - 1
	if idx >= len(f.Listings) {
		idx = len(f.Listings) - 1
	}
	return f.Listings[idx], nil
}

func (f *FakeRemote) Download(_ context.Context, entry domain.RemoteEntry, w io.Writer) error {
	f.mu.Lock()
	f.DownloadCalls[entry.Name]++
	failure := f.FailDownload[entry.Name]
	content, ok := f.Content[entry.Name]
	f.mu.Unlock()

	if failure != nil {
		_, _ = io.WriteString(w, "partial")
		return failure
	}
	if !ok {
		content = fmt.Sprintf("content of %s", entry.Name)
	}
	_, err := io.WriteString(w, content)
	return err
}

// TotalDownloads sums download attempts across all entries.
func (f *FakeRemote) TotalDownloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.DownloadCalls {
		total += n
	}
	return total
}

// Entries builds RemoteEntry values for the given names inside container.
func Entries(container domain.Container, names ...string) []domain.RemoteEntry {
	out := make([]domain.RemoteEntry, 0, len(names))
	for _, name := range names {
		out = append(out, domain.RemoteEntry{ID: "id-" + name, Name: name, ContainerID: container.ID})
	}
	return out
}
