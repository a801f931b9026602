package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/remote"
	"github.com/rs/zerolog"
)

type writeKind int

const (
	writeUpsert writeKind = iota
	writeDelete
)

func (k writeKind) op() string {
	if k == writeDelete {
		return remote.OpDeleteOne
	}
	return remote.OpUpsert
}

// pendingWrite is one queued remote write for a single record.
type pendingWrite struct {
	table    string
	id       string
	kind     writeKind
	row      remote.Row
	queuedAt time.Time
	seq      uint64
}

// Outbox queues single-record remote writes and applies them in the
// background. It holds at most one write per (table, id); enqueueing again
// replaces the queued write, so the last enqueued state always wins.
type Outbox struct {
	remote   remote.Store
	log      zerolog.Logger
	metrics  *metrics.Sync
	interval time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	queue map[string]*pendingWrite // table/id -> write
	seq   uint64

	// drainMu serialises drains and whole-table replacements so writes
	// reach the remote in enqueue order.
	drainMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func newOutbox(store remote.Store, log zerolog.Logger, m *metrics.Sync, interval, timeout time.Duration) *Outbox {
	ctx, cancel := context.WithCancel(context.Background())
	return &Outbox{
		remote:   store,
		log:      log.With().Str("component", "outbox").Logger(),
		metrics:  m,
		interval: interval,
		timeout:  timeout,
		queue:    make(map[string]*pendingWrite),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func queueKey(table, id string) string {
	return table + "/" + id
}

// start launches the drain goroutine once.
func (o *Outbox) start() {
	o.startOnce.Do(func() {
		o.wg.Add(1)
		go o.run()
	})
}

// enqueue records w, replacing any queued write for the same record.
func (o *Outbox) enqueue(w pendingWrite) {
	o.mu.Lock()
	o.seq++
	w.seq = o.seq
	w.queuedAt = time.Now()
	o.queue[queueKey(w.table, w.id)] = &w
	n := len(o.queue)
	o.mu.Unlock()

	o.metrics.SetPending(n)
}

// Pending reports how many writes are waiting.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// discard drops every queued write for table.
func (o *Outbox) discard(table string) int {
	o.mu.Lock()
	dropped := 0
	for key, w := range o.queue {
		if w.table == table {
			delete(o.queue, key)
			dropped++
		}
	}
	n := len(o.queue)
	o.mu.Unlock()

	o.metrics.SetPending(n)
	return dropped
}

// exclusive runs fn while no drain is in progress.
func (o *Outbox) exclusive(fn func()) {
	o.drainMu.Lock()
	defer o.drainMu.Unlock()
	fn()
}

// Flush applies every queued write now, regardless of debounce.
func (o *Outbox) Flush(ctx context.Context) {
	o.drain(ctx, true)
}

// close stops the drain goroutine and flushes what is left.
func (o *Outbox) close(ctx context.Context) {
	o.stopOnce.Do(func() {
		o.cancel()
		o.wg.Wait()
		o.Flush(ctx)
	})
}

// run drains writes that have been queued for at least one interval.
func (o *Outbox) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			// Dequeued writes must outlive shutdown.
			o.drain(context.Background(), false)
		}
	}
}

// drain takes ready writes off the queue and applies them oldest first.
func (o *Outbox) drain(ctx context.Context, force bool) int {
	o.drainMu.Lock()
	defer o.drainMu.Unlock()

	now := time.Now()
	o.mu.Lock()
	batch := make([]*pendingWrite, 0, len(o.queue))
	for key, w := range o.queue {
		if !force && now.Sub(w.queuedAt) < o.interval {
			continue
		}
		batch = append(batch, w)
		delete(o.queue, key)
	}
	remaining := len(o.queue)
	o.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	for _, w := range batch {
		o.apply(ctx, w)
	}

	o.metrics.SetPending(remaining)
	o.log.Debug().Int("applied", len(batch)).Int("pending", remaining).Msg("outbox drained")
	return len(batch)
}

func (o *Outbox) apply(ctx context.Context, w *pendingWrite) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var err error
	switch w.kind {
	case writeDelete:
		err = o.remote.DeleteOne(ctx, w.table, w.id)
	default:
		err = o.remote.Upsert(ctx, w.table, []remote.Row{w.row})
	}

	o.metrics.ObserveOp(w.table, w.kind.op(), err)
	if err != nil {
		o.log.Warn().Err(err).
			Str("table", w.table).
			Str("op", w.kind.op()).
			Str("id", w.id).
			Msg("remote write failed, keeping local copy")
	}
}
