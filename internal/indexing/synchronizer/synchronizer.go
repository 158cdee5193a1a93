// Package synchronizer keeps the local wallet consistent with the remote
// ledger by combining bulk catch-up with live pushed blocks.
//
// # State machine
//
//	connecting --open--> in_progress --catch-up done--> complete
//	     ^                    |  ^                          |
//	     +-------close--------+  +--retry (failure)         |
//	     +---------------------close------------------------+
//
// While a catch-up is in flight, pushed blocks are queued and drained in
// arrival order before the status becomes complete. A failed catch-up is
// retried after a fixed delay. At most one catch-up runs at a time.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/cursor"
	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/applier"
	"github.com/vietddude/walletsync/internal/indexing/balance"
	"github.com/vietddude/walletsync/internal/indexing/emitter"
	"github.com/vietddude/walletsync/internal/indexing/filter"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
	"github.com/vietddude/walletsync/internal/infra/node"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

// Ledger is the remote node as used by the synchronizer.
type Ledger interface {
	balance.Source
	Subscribe(ctx context.Context) error
	SetAddressFilter(ctx context.Context, hashes []domain.ScriptHash) error
	GetChainHeight(ctx context.Context) (uint64, error)
	GetBlockRange(ctx context.Context, from, to uint64) (node.BlockStream, error)
}

// Config tunes retry and persistence behavior.
type Config struct {
	RetryDelay         time.Duration
	PersistInterval    time.Duration
	BalanceConcurrency int
}

// Deps are the collaborators of a Synchronizer.
type Deps struct {
	Ledger  Ledger
	Store   storage.Store
	Watch   filter.Filter
	Emitter emitter.Emitter
	Deriver applier.KeyDeriver
	Logger  *slog.Logger
}

var errSuperseded = errors.New("catch-up superseded")

// Synchronizer implements node.Listener.
type Synchronizer struct {
	cfg     Config
	ledger  Ledger
	store   storage.Store
	watch   filter.Filter
	applier *applier.Applier
	balance *balance.Aggregator
	cursor  *cursor.Manager
	emitter emitter.Emitter
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	status      domain.SyncStatus
	inProgress  bool
	pending     []domain.Block
	retry       *time.Timer
	epoch       uint64
	cancelCycle context.CancelFunc
	cycleDone   chan struct{}
	chainHeight uint64
	lastBalance decimal.Decimal
	stopped     bool

	outbox    []domain.SyncUpdate
	outSignal chan struct{}

	fatal chan error
	wg    sync.WaitGroup
}

var _ node.Listener = (*Synchronizer)(nil)

// New creates a synchronizer in the connecting state, starting from the
// height and balance held by the store.
func New(ctx context.Context, cfg Config, deps Deps) (*Synchronizer, error) {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = 5 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	cur, err := cursor.NewManager(ctx, deps.Store, log)
	if err != nil {
		return nil, err
	}
	lastBalance, _, err := deps.Store.GetAggregateBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate balance: %w", err)
	}

	s := &Synchronizer{
		cfg:         cfg,
		ledger:      deps.Ledger,
		store:       deps.Store,
		watch:       deps.Watch,
		applier:     applier.New(deps.Watch, deps.Deriver),
		balance:     balance.NewAggregator(deps.Ledger, cfg.BalanceConcurrency),
		cursor:      cur,
		emitter:     deps.Emitter,
		log:         log.With("component", "synchronizer"),
		status:      domain.SyncStatusConnecting,
		lastBalance: lastBalance,
		outSignal:   make(chan struct{}, 1),
		fatal:       make(chan error, 1),
	}
	return s, nil
}

// Start launches update delivery. It must be called before the synchronizer
// receives transport events.
func (s *Synchronizer) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.emitLoop()
	s.log.Info("Synchronizer started",
		"height", s.cursor.Height(),
		"addresses", s.watch.Size(),
	)
}

// Stop cancels any catch-up and retry, flushes pending updates and waits
// for background work to finish.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.stopRetryLocked()
	if s.cancelCycle != nil {
		s.cancelCycle()
		s.cancelCycle = nil
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Fatal delivers an unrecoverable error, after which the synchronizer
// ignores further events.
func (s *Synchronizer) Fatal() <-chan error {
	return s.fatal
}

// Cursor exposes the height tracker.
func (s *Synchronizer) Cursor() *cursor.Manager {
	return s.cursor
}

// Snapshot is a point-in-time view of synchronizer state.
type Snapshot struct {
	Status      domain.SyncStatus
	Height      uint64
	ChainHeight uint64
	Pending     int
	InProgress  bool
	Balance     decimal.Decimal
}

// Snapshot returns the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status:      s.status,
		Height:      s.cursor.Height(),
		ChainHeight: s.chainHeight,
		Pending:     len(s.pending),
		InProgress:  s.inProgress,
		Balance:     s.lastBalance,
	}
}

// Status returns the current status.
func (s *Synchronizer) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// -----------------------------------------------------------------------------
// Transport events
// -----------------------------------------------------------------------------

// OnOpen starts a catch-up unless one is already in flight.
func (s *Synchronizer) OnOpen() {
	s.begin("transport open", false)
}

// OnClose abandons the in-flight catch-up and any scheduled retry. Height and
// queued blocks are kept for the next catch-up. Unlike a failed cycle, which
// empties the queue, a superseded cycle leaves it to the next cycle's drain,
// which skips blocks at or below the local height.
func (s *Synchronizer) OnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	s.stopRetryLocked()
	s.inProgress = false
	if s.cancelCycle != nil {
		s.cancelCycle()
		s.cancelCycle = nil
	}
	s.epoch++
	s.setStatusLocked(domain.SyncStatusConnecting, "transport closed")
	s.emitLocked(domain.NewSyncUpdate(domain.SyncStatusConnecting, s.cursor.Height()))
}

// OnBlock applies a pushed block, or queues it while not complete.
func (s *Synchronizer) OnBlock(b domain.Block) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.status != domain.SyncStatusComplete {
		s.pending = append(s.pending, b)
		n := len(s.pending)
		s.mu.Unlock()
		metrics.PendingBlocks.Set(float64(n))
		s.log.Debug("Queued pushed block", "height", b.Height(), "pending", n)
		return
	}
	s.mu.Unlock()

	s.applyLive(b)
}

// OnPushError handles a pushed block the transport could not decode.
func (s *Synchronizer) OnPushError(err error) {
	if errors.Is(err, domain.ErrUnknownTransaction) {
		s.fail(err)
		return
	}
	s.log.Warn("Dropped undecodable pushed block", "error", err)
}

// -----------------------------------------------------------------------------
// Cycle control
// -----------------------------------------------------------------------------

// begin starts a catch-up cycle. A retry is skipped while the transport is
// down; the next open starts the cycle instead.
func (s *Synchronizer) begin(reason string, retry bool) {
	s.mu.Lock()
	if s.stopped || s.inProgress {
		s.mu.Unlock()
		return
	}
	if retry && s.status == domain.SyncStatusConnecting {
		s.mu.Unlock()
		return
	}

	prev := s.status
	s.stopRetryLocked()
	s.inProgress = true
	s.epoch++
	epoch := s.epoch
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelCycle = cancel
	prevDone := s.cycleDone
	done := make(chan struct{})
	s.cycleDone = done
	s.setStatusLocked(domain.SyncStatusInProgress, reason)
	s.emitLocked(domain.NewSyncUpdate(domain.SyncStatusInProgress, s.cursor.Height()))
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()

		// Cycles never overlap: wait for a superseded one to unwind.
		if prevDone != nil {
			<-prevDone
		}
		if prev == domain.SyncStatusConnecting {
			s.resubscribe(ctx)
		}
		s.runCycle(ctx, epoch)
	}()
}

func (s *Synchronizer) resubscribe(ctx context.Context) {
	if err := s.ledger.Subscribe(ctx); err != nil {
		s.log.Warn("Failed to subscribe to pushed blocks", "error", err)
	}
	if err := s.ledger.SetAddressFilter(ctx, s.watch.Addresses()); err != nil {
		s.log.Warn("Failed to set address filter", "error", err)
	}
}

func (s *Synchronizer) runCycle(ctx context.Context, epoch uint64) {
	start := time.Now()
	err := s.catchUp(ctx, epoch)
	if err == nil {
		metrics.CatchUpDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
		s.log.Info("Catch-up complete",
			"height", s.cursor.Height(),
			"duration", time.Since(start),
		)
		return
	}
	metrics.CatchUpDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())

	if errors.Is(err, domain.ErrUnknownTransaction) {
		s.fail(err)
		return
	}
	if !errors.Is(err, errSuperseded) {
		s.persistBestEffort()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || epoch != s.epoch {
		s.log.Debug("Discarding superseded catch-up", "error", err)
		return
	}

	s.pending = nil
	metrics.PendingBlocks.Set(0)
	s.inProgress = false
	s.cancelCycle = nil
	s.log.Error("Catch-up failed",
		"height", s.cursor.Height(),
		"retry_in", s.cfg.RetryDelay,
		"error", err,
	)
	s.scheduleRetryLocked()
}

func (s *Synchronizer) scheduleRetryLocked() {
	s.stopRetryLocked()
	metrics.CatchUpRetries.Inc()
	s.retry = time.AfterFunc(s.cfg.RetryDelay, func() {
		s.begin("retry", true)
	})
}

func (s *Synchronizer) stopRetryLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// fail reports an unrecoverable error and halts the synchronizer.
func (s *Synchronizer) fail(err error) {
	s.mu.Lock()
	s.stopped = true
	s.stopRetryLocked()
	s.mu.Unlock()

	s.log.Error("Unrecoverable sync error", "height", s.cursor.Height(), "error", err)
	select {
	case s.fatal <- err:
	default:
	}
}

func (s *Synchronizer) setStatusLocked(to domain.SyncStatus, reason string) {
	from := s.status
	s.status = to
	s.cursor.RecordTransition(cursor.NewTransition(from, to, reason))
}

// -----------------------------------------------------------------------------
// Update delivery
// -----------------------------------------------------------------------------

// emitLocked queues an update. Updates are delivered in queue order.
func (s *Synchronizer) emitLocked(u domain.SyncUpdate) {
	s.outbox = append(s.outbox, u)
	select {
	case s.outSignal <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) emitLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.outSignal:
			s.flush(s.ctx)
		case <-s.ctx.Done():
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			s.flush(ctx)
			cancel()
			return
		}
	}
}

func (s *Synchronizer) flush(ctx context.Context) {
	for {
		s.mu.Lock()
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, u := range batch {
			if err := s.emitter.Emit(ctx, u); err != nil {
				s.log.Warn("Failed to emit sync update", "status", u.Status, "error", err)
			}
		}
	}
}
