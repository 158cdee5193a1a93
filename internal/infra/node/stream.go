package node

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("block stream closed")

const streamBuffer = 256

// BlockStream yields the blocks of a range request in height order. Next
// returns io.EOF after the last block.
type BlockStream interface {
	Next(ctx context.Context) (domain.Block, error)
	Close() error
}

type streamItem struct {
	block domain.Block
	err   error
}

// blockStream is fed by the client's read loop, which is its only writer.
type blockStream struct {
	id      uint64
	items   chan streamItem
	closed  chan struct{}
	once    sync.Once
	onClose func(id uint64)
}

func newBlockStream(id uint64, onClose func(uint64)) *blockStream {
	return &blockStream{
		id:      id,
		items:   make(chan streamItem, streamBuffer),
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

// push blocks while the buffer is full, applying backpressure to the node.
func (s *blockStream) push(item streamItem) {
	select {
	case s.items <- item:
	case <-s.closed:
	}
}

// finish ends the stream; err nil means a clean end.
func (s *blockStream) finish(err error) {
	if err != nil {
		s.push(streamItem{err: err})
	}
	close(s.items)
}

func (s *blockStream) Next(ctx context.Context) (domain.Block, error) {
	select {
	case <-s.closed:
		return nil, ErrStreamClosed
	default:
	}

	select {
	case it, ok := <-s.items:
		if !ok {
			return nil, io.EOF
		}
		if it.err != nil {
			return nil, it.err
		}
		return it.block, nil
	case <-s.closed:
		return nil, ErrStreamClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *blockStream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		if s.onClose != nil {
			s.onClose(s.id)
		}
	})
	return nil
}
