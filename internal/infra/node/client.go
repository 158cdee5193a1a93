// Package node is the wallet's connection to the remote ledger node: JSON-RPC
// 2.0 over a single WebSocket, with server-pushed blocks.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
)

// ErrNotConnected is returned by requests made while the transport is down,
// and by requests still in flight when it goes down.
var ErrNotConnected = errors.New("node not connected")

const writeTimeout = 10 * time.Second

// Listener receives transport lifecycle events and pushed blocks. Calls are
// made one at a time from a dedicated goroutine, in the order the events
// occurred, so a listener may issue requests from inside a callback.
type Listener interface {
	OnOpen()
	OnClose()
	OnBlock(block domain.Block)
	// OnPushError reports a pushed block that could not be decoded.
	OnPushError(err error)
}

type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
	eventBlock
	eventPushError
)

type event struct {
	kind  eventKind
	block domain.Block
	err   error
}

type response struct {
	result json.RawMessage
	err    error
}

// Client implements the remote ledger operations used by the synchronizer.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	listener Listener
	pending  map[uint64]chan response
	streams  map[uint64]*blockStream
	nextID   atomic.Uint64

	writeMu sync.Mutex

	queueMu sync.Mutex
	queue   []event
	signal  chan struct{}

	health healthTracker
}

// NewClient creates a client. Nothing is dialed until Run.
func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg.ApplyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.RequestTimeout},
		log:     log.With("component", "node"),
		pending: make(map[uint64]chan response),
		streams: make(map[uint64]*blockStream),
		signal:  make(chan struct{}, 1),
	}
}

// SetListener registers the receiver of transport events. Must be called
// before Run.
func (c *Client) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Health returns the connection health.
func (c *Client) Health() HealthStatus {
	return c.health.get()
}

// Run dials the node and keeps reconnecting with backoff until ctx is
// cancelled. Every successful dial is reported as OnOpen and every loss of
// the connection as OnClose.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		c.dispatch(done)
	}()
	defer func() {
		close(done)
		<-dispatched
	}()

	attempt := 0
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			delay := calculateBackoff(attempt, c.cfg.Reconnect)
			attempt++
			c.log.Warn("Node dial failed",
				"url", c.cfg.URL,
				"attempt", attempt,
				"retry_in", delay,
				"error", err,
			)
			if !sleepCtx(ctx, delay) {
				return nil
			}
			continue
		}

		attempt = 0
		c.serve(ctx, conn)
		if !sleepCtx(ctx, c.cfg.Reconnect.InitialDelay) {
			return nil
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.health.setConnected(true)
	c.log.Info("Connected to node", "url", c.cfg.URL)
	c.enqueue(event{kind: eventOpen})

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	err := c.readLoop(conn)
	close(stop)
	conn.Close()
	c.teardown()
	c.health.setConnected(false)

	if ctx.Err() == nil {
		c.log.Warn("Node connection lost", "error", err)
	}
	c.enqueue(event{kind: eventClose})
}

// teardown fails everything waiting on the dead connection. It runs after the
// read loop has exited, so it is the only writer to the streams.
func (c *Client) teardown() {
	c.mu.Lock()
	c.conn = nil
	pending := c.pending
	streams := c.streams
	c.pending = make(map[uint64]chan response)
	c.streams = make(map[uint64]*blockStream)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{err: ErrNotConnected}
	}
	for _, s := range streams {
		s.finish(ErrNotConnected)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn("Malformed node message", "error", err)
		return
	}

	if msg.ID == nil {
		if msg.Method != MethodBlockPushed {
			c.log.Debug("Ignoring notification", "method", msg.Method)
			return
		}
		block, err := DecodeBlock(msg.Params)
		if err != nil {
			c.enqueue(event{kind: eventPushError, err: err})
			return
		}
		c.enqueue(event{kind: eventBlock, block: block})
		return
	}

	id := *msg.ID
	c.mu.Lock()
	if s, ok := c.streams[id]; ok {
		c.mu.Unlock()
		c.handleStreamFrame(s, msg)
		return
	}
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		// Caller gave up or closed the stream.
		return
	}
	if msg.Error != nil {
		ch <- response{err: msg.Error}
		return
	}
	ch <- response{result: msg.Result}
}

func (c *Client) handleStreamFrame(s *blockStream, msg inbound) {
	end := func(err error) {
		c.removeStream(s.id)
		s.finish(err)
	}

	if msg.Error != nil {
		end(msg.Error)
		return
	}

	var item rangeItem
	if err := json.Unmarshal(msg.Result, &item); err != nil {
		end(fmt.Errorf("malformed block range frame: %w", err))
		return
	}
	if item.Done {
		end(nil)
		return
	}

	block, err := DecodeBlock(item.Block)
	if err != nil {
		end(err)
		return
	}
	s.push(streamItem{block: block})
}

func (c *Client) removeStream(id uint64) {
	c.mu.Lock()
	delete(c.streams, id)
	c.mu.Unlock()
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) write(conn *websocket.Conn, req request) error {
	if req.Params == nil {
		req.Params = []any{}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(req)
}

// call sends a request and waits for its single response.
func (c *Client) call(ctx context.Context, method string, params []any, out any) (err error) {
	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues(method).Inc()
	defer func() {
		if err != nil {
			metrics.RPCErrorsTotal.WithLabelValues(method).Inc()
			c.health.recordFailure()
			return
		}
		latency := time.Since(start)
		metrics.RPCLatency.WithLabelValues(method).Observe(latency.Seconds())
		c.health.recordSuccess(latency)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.write(conn, request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		c.forget(id)
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return fmt.Errorf("%s: %w", method, resp.err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// Subscribe asks the node to push new blocks.
func (c *Client) Subscribe(ctx context.Context) error {
	return c.call(ctx, MethodSubscribe, nil, nil)
}

// SetAddressFilter restricts pushed blocks to those relevant to hashes.
func (c *Client) SetAddressFilter(ctx context.Context, hashes []domain.ScriptHash) error {
	list := make([]string, len(hashes))
	for i, h := range hashes {
		list[i] = string(h)
	}
	return c.call(ctx, MethodSetAddressFilter, []any{list}, nil)
}

// GetChainHeight returns the node's current chain height.
func (c *Client) GetChainHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := c.call(ctx, MethodChainHeight, nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetAddressBalance returns the confirmed balance of one address.
func (c *Client) GetAddressBalance(ctx context.Context, hash domain.ScriptHash) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := c.call(ctx, MethodAddressBalance, []any{string(hash)}, &balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// GetBlockRange streams blocks from..to inclusive. The caller must Close
// the stream.
func (c *Client) GetBlockRange(ctx context.Context, from, to uint64) (BlockStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.RPCCallsTotal.WithLabelValues(MethodBlockRange).Inc()

	id := c.nextID.Add(1)
	s := newBlockStream(id, c.removeStream)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		metrics.RPCErrorsTotal.WithLabelValues(MethodBlockRange).Inc()
		return nil, fmt.Errorf("%s: %w", MethodBlockRange, ErrNotConnected)
	}
	c.streams[id] = s
	c.mu.Unlock()

	req := request{JSONRPC: "2.0", ID: id, Method: MethodBlockRange, Params: []any{from, to}}
	if err := c.write(conn, req); err != nil {
		s.Close()
		metrics.RPCErrorsTotal.WithLabelValues(MethodBlockRange).Inc()
		return nil, fmt.Errorf("failed to send %s: %w", MethodBlockRange, err)
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Event dispatch
// -----------------------------------------------------------------------------

func (c *Client) enqueue(e event) {
	c.queueMu.Lock()
	c.queue = append(c.queue, e)
	c.queueMu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *Client) dispatch(done <-chan struct{}) {
	for {
		select {
		case <-c.signal:
			c.deliver()
		case <-done:
			c.deliver()
			return
		}
	}
}

func (c *Client) deliver() {
	for {
		c.queueMu.Lock()
		batch := c.queue
		c.queue = nil
		c.queueMu.Unlock()

		if len(batch) == 0 {
			return
		}

		c.mu.Lock()
		l := c.listener
		c.mu.Unlock()
		if l == nil {
			continue
		}

		for _, e := range batch {
			switch e.kind {
			case eventOpen:
				l.OnOpen()
			case eventClose:
				l.OnClose()
			case eventBlock:
				l.OnBlock(e.block)
			case eventPushError:
				l.OnPushError(e.err)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
