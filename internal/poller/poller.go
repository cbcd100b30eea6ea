package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/exportflow/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Lister is the remote listing capability the poller needs.
type Lister interface {
	FindContainers(ctx context.Context, name string) ([]domain.Container, error)
	ListEntries(ctx context.Context, container domain.Container) ([]domain.RemoteEntry, error)
}

// Poller waits for a remote export container to become non-empty.
type Poller struct {
	lister Lister
	clock  Clock
	log    zerolog.Logger
}

// New creates a Poller. A nil clock means wall-clock time.
func New(lister Lister, clock Clock, log zerolog.Logger) *Poller {
	if clock == nil {
		clock = RealClock()
	}
	return &Poller{
		lister: lister,
		clock:  clock,
		log:    log,
	}
}

// ResolveContainer maps name to exactly one live container.
func (p *Poller) ResolveContainer(ctx context.Context, name string) (domain.Container, error) {
	matches, err := p.lister.FindContainers(ctx, name)
	if err != nil {
		return domain.Container{}, errors.Wrapf(err, "resolve container %s", name)
	}

	switch len(matches) {
	case 0:
		return domain.Container{}, errors.WithStack(&domain.ContainerNotFoundError{Name: name})
	case 1:
		return matches[0], nil
	default:
		return domain.Container{}, errors.WithStack(&domain.AmbiguousContainerError{Name: name, Matches: matches})
	}
}

// WaitForExports lists the container until it is non-empty and returns that
// single snapshot. Attempts continue while less than maxWait has elapsed since
// the first one; between attempts it waits pollInterval or until ctx is done.
func (p *Poller) WaitForExports(ctx context.Context, containerName string, pollInterval, maxWait time.Duration) ([]domain.RemoteEntry, error) {
	if containerName == "" {
		return nil, fmt.Errorf("container name must not be empty")
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", pollInterval)
	}
	if maxWait <= 0 {
		return nil, fmt.Errorf("max wait must be positive, got %s", maxWait)
	}

	container, err := p.ResolveContainer(ctx, containerName)
	if err != nil {
		return nil, err
	}

	log := p.log.With().Str("container", container.Name).Str("container_id", container.ID).Logger()
	log.Info().Dur("interval", pollInterval).Dur("max_wait", maxWait).Msg("Waiting for exports")

	start := p.clock.Now()
	attempts := 0
	for p.clock.Now().Sub(start) < maxWait {
		attempts++

		entries, err := p.lister.ListEntries(ctx, container)
		if err != nil {
			return nil, errors.Wrapf(err, "list container %s (attempt %d)", container.Name, attempts)
		}
		if len(entries) > 0 {
			log.Info().Int("files", len(entries)).Int("attempt", attempts).Msg("Exports ready")
			return entries, nil
		}

		log.Info().Int("attempt", attempts).Msg("No files yet, sleeping")
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for exports in %s", container.Name)
		case <-p.clock.After(pollInterval):
		}
	}

	return nil, errors.WithStack(&domain.ExportTimeoutError{
		Container: container.Name,
		Attempts:  attempts,
		Waited:    p.clock.Now().Sub(start),
	})
}
