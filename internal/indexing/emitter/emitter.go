package emitter

import (
	"context"
	"errors"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// Emitter defines the interface for publishing sync updates
type Emitter interface {
	// Emit sends a single update
	Emit(ctx context.Context, update domain.SyncUpdate) error

	// Close closes the emitter
	Close() error
}

// Multi fans an update out to several emitters. Every emitter is tried; the
// joined error reports the ones that failed.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, update domain.SyncUpdate) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, e := range m {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
