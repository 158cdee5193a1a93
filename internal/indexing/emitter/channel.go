package emitter

import (
	"context"
	"errors"
	"sync"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
)

// ErrEmitterClosed is returned when emitting after Close.
var ErrEmitterClosed = errors.New("emitter closed")

// ChannelEmitter delivers updates on a typed channel. The emitter owns the
// channel and closes it on Close.
type ChannelEmitter struct {
	ch     chan domain.SyncUpdate
	mu     sync.RWMutex
	closed bool
}

// NewChannelEmitter creates an emitter with the given buffer size.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{ch: make(chan domain.SyncUpdate, buffer)}
}

// Updates returns the receive side of the channel.
func (e *ChannelEmitter) Updates() <-chan domain.SyncUpdate {
	return e.ch
}

// Emit blocks until the update is received, the buffer has room, or ctx is done.
func (e *ChannelEmitter) Emit(ctx context.Context, update domain.SyncUpdate) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}

	select {
	case e.ch <- update:
		metrics.UpdatesEmitted.WithLabelValues("channel").Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel. Safe to call more than once.
func (e *ChannelEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
	return nil
}
