package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/remote"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// ConfigID is the remote row id of the configuration singleton.
const ConfigID = "main"

const (
	defaultOutboxInterval = 250 * time.Millisecond
	defaultRemoteTimeout  = 30 * time.Second
)

// Cache is the local persistence the reconciler mirrors. Implementations
// must never fail loudly: a broken read reports absent, a broken write is a
// no-op.
type Cache interface {
	Get(key string) ([]json.RawMessage, bool)
	Set(key string, items []json.RawMessage)
	GetObject(key string) (json.RawMessage, bool)
	SetObject(key string, obj json.RawMessage)
}

// Options tune a Reconciler. The zero value is usable.
type Options struct {
	// Logger receives warnings about remote failures. Zero value discards.
	Logger zerolog.Logger

	// Metrics counts remote calls. Nil disables metrics.
	Metrics *metrics.Sync

	// OutboxInterval is the debounce period of queued record writes.
	OutboxInterval time.Duration

	// RemoteTimeout bounds each queued remote call. Negative disables it.
	RemoteTimeout time.Duration

	// Now overrides the clock used for created_at fallbacks.
	Now func() time.Time
}

// Reconciler keeps the local cache and the remote store in step.
type Reconciler struct {
	cache   Cache
	remote  remote.Store
	outbox  *Outbox
	log     zerolog.Logger
	metrics *metrics.Sync
	now     func() time.Time

	// mu serialises read-modify-write of cached collections.
	mu sync.Mutex
}

// New creates a Reconciler over c and store. When store is configured the
// outbox goroutine starts immediately; call Close to stop it.
func New(c Cache, store remote.Store, opts Options) *Reconciler {
	if store == nil {
		store = remote.Disabled{}
	}
	if opts.OutboxInterval <= 0 {
		opts.OutboxInterval = defaultOutboxInterval
	}
	if opts.RemoteTimeout == 0 {
		opts.RemoteTimeout = defaultRemoteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := opts.Logger.With().Str("component", "sync").Logger()
	r := &Reconciler{
		cache:   c,
		remote:  store,
		outbox:  newOutbox(store, opts.Logger, opts.Metrics, opts.OutboxInterval, opts.RemoteTimeout),
		log:     log,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if store.Configured() {
		r.outbox.start()
	}
	return r
}

// Configured reports whether a remote store is attached.
func (r *Reconciler) Configured() bool {
	return r.remote.Configured()
}

// Pending reports how many record writes are waiting in the outbox.
func (r *Reconciler) Pending() int {
	return r.outbox.Pending()
}

// Flush pushes every queued record write to the remote now.
func (r *Reconciler) Flush(ctx context.Context) {
	if !r.remote.Configured() {
		return
	}
	r.outbox.Flush(ctx)
}

// Close stops the outbox after a final flush.
func (r *Reconciler) Close(ctx context.Context) {
	r.outbox.close(ctx)
}

// LoadCollection returns the current records of a collection, refreshing
// the cache from the remote when one is configured.
func (r *Reconciler) LoadCollection(ctx context.Context, table, cacheKey string) []json.RawMessage {
	baseline, _ := r.cache.Get(cacheKey)
	if baseline == nil {
		baseline = []json.RawMessage{}
	}

	if !r.remote.Configured() {
		return baseline
	}

	rows, err := r.remote.SelectAll(ctx, table)
	r.metrics.ObserveOp(table, remote.OpSelectAll, err)
	if err != nil {
		r.warn(err, table, remote.OpSelectAll, "remote load failed, serving cached data")
		return baseline
	}

	if len(rows) > 0 {
		items := make([]json.RawMessage, 0, len(rows))
		for _, row := range rows {
			if !isDocument(row.Data) {
				r.log.Warn().Str("table", table).Str("id", row.ID).Msg("skipping remote row without data")
				continue
			}
			items = append(items, row.Data)
		}
		if len(items) == 0 {
			r.log.Warn().Str("table", table).Int("rows", len(rows)).Msg("no readable remote rows, serving cached data")
			return baseline
		}
		r.mu.Lock()
		r.cache.Set(cacheKey, items)
		r.mu.Unlock()
		return items
	}

	if len(baseline) > 0 {
		r.migrate(ctx, table, baseline)
		return baseline
	}

	return []json.RawMessage{}
}

// migrate pushes a locally cached collection to an empty remote table.
func (r *Reconciler) migrate(ctx context.Context, table string, items []json.RawMessage) {
	r.log.Info().Str("table", table).Int("count", len(items)).Msg("migrating local data to remote")

	err := r.remote.Upsert(ctx, table, r.rows(items))
	r.metrics.ObserveOp(table, remote.OpUpsert, err)
	if err != nil {
		r.warn(err, table, remote.OpUpsert, "migration failed")
		return
	}

	r.metrics.ObserveMigration(table)
	r.log.Info().Str("table", table).Int("count", len(items)).Msg("migration complete")
}

// LoadConfig returns the configuration singleton: the remote copy when one
// exists, else the cached copy (pushed to the remote), else def.
func (r *Reconciler) LoadConfig(ctx context.Context, table, cacheKey string, def json.RawMessage) json.RawMessage {
	local, haveLocal := r.cache.GetObject(cacheKey)
	fallback := def
	if haveLocal {
		fallback = local
	}

	if !r.remote.Configured() {
		return fallback
	}

	row, err := r.remote.SelectOne(ctx, table, ConfigID)
	switch {
	case err == nil:
		r.metrics.ObserveOp(table, remote.OpSelectOne, nil)
		if isDocument(row.Data) {
			r.cache.SetObject(cacheKey, row.Data)
			return row.Data
		}
	case errors.Is(err, remote.ErrNotFound):
		r.metrics.ObserveOp(table, remote.OpSelectOne, nil)
	default:
		r.metrics.ObserveOp(table, remote.OpSelectOne, err)
		r.warn(err, table, remote.OpSelectOne, "remote config load failed, serving cached config")
		return fallback
	}

	if haveLocal {
		r.log.Info().Str("table", table).Msg("migrating local config to remote")
		err := r.remote.Upsert(ctx, table, []remote.Row{{ID: ConfigID, Data: local, CreatedAt: r.now()}})
		r.metrics.ObserveOp(table, remote.OpUpsert, err)
		if err != nil {
			r.warn(err, table, remote.OpUpsert, "config migration failed")
		} else {
			r.metrics.ObserveMigration(table)
		}
		return local
	}

	return def
}

// SaveConfig stores the configuration singleton locally and queues the
// remote write.
func (r *Reconciler) SaveConfig(table, cacheKey string, cfg json.RawMessage) {
	r.cache.SetObject(cacheKey, cfg)

	if !r.remote.Configured() {
		return
	}
	r.outbox.enqueue(pendingWrite{
		table: table,
		id:    ConfigID,
		kind:  writeUpsert,
		row:   remote.Row{ID: ConfigID, Data: cfg, CreatedAt: r.now()},
	})
}

// SaveCollection replaces a whole collection locally and remotely. The
// remote replacement is awaited; its failures are logged only.
func (r *Reconciler) SaveCollection(ctx context.Context, table, cacheKey string, items []json.RawMessage) {
	r.mu.Lock()
	r.cache.Set(cacheKey, items)
	r.mu.Unlock()

	if !r.remote.Configured() {
		return
	}

	rows := r.rows(items)
	r.outbox.exclusive(func() {
		// Queued record writes for this table are superseded.
		r.outbox.discard(table)

		err := r.remote.DeleteAll(ctx, table)
		r.metrics.ObserveOp(table, remote.OpDeleteAll, err)
		if err != nil {
			r.warn(err, table, remote.OpDeleteAll, "remote clear failed")
			return
		}

		err = r.remote.Upsert(ctx, table, rows)
		r.metrics.ObserveOp(table, remote.OpUpsert, err)
		if err != nil {
			r.warn(err, table, remote.OpUpsert, "remote save failed")
		}
	})
}

// UpsertItem replaces the cached record whose idField matches item's, or
// appends item, then queues the remote upsert.
func (r *Reconciler) UpsertItem(table, cacheKey string, item json.RawMessage, idField string) {
	id := gjson.GetBytes(item, idField).String()

	r.mu.Lock()
	items, _ := r.cache.Get(cacheKey)
	replaced := false
	for i, existing := range items {
		if gjson.GetBytes(existing, idField).String() == id {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	r.cache.Set(cacheKey, items)
	r.mu.Unlock()

	if !r.remote.Configured() {
		return
	}

	row := r.row(item)
	if id != "" {
		row.ID = id
	}
	r.outbox.enqueue(pendingWrite{table: table, id: row.ID, kind: writeUpsert, row: row})
}

// DeleteItem removes every cached record whose id (or code, for records
// without an id) equals itemID, then queues the remote delete.
func (r *Reconciler) DeleteItem(table, cacheKey, itemID string) {
	r.mu.Lock()
	items, _ := r.cache.Get(cacheKey)
	kept := make([]json.RawMessage, 0, len(items))
	for _, existing := range items {
		if recordKey(existing) != itemID {
			kept = append(kept, existing)
		}
	}
	r.cache.Set(cacheKey, kept)
	r.mu.Unlock()

	if !r.remote.Configured() {
		return
	}
	r.outbox.enqueue(pendingWrite{table: table, id: itemID, kind: writeDelete})
}

func (r *Reconciler) warn(err error, table, op, msg string) {
	r.log.Warn().Err(err).Str("table", table).Str("op", op).Msg(msg)
}

// PushCollection replaces the remote copy of a collection with whatever
// the cache holds, as SaveCollection does. A missing or unreadable cache
// entry leaves the remote untouched.
func (r *Reconciler) PushCollection(ctx context.Context, table, cacheKey string) int {
	items, ok := r.cache.Get(cacheKey)
	if !ok {
		r.log.Warn().Str("table", table).Msg("nothing cached, skipping push")
		return 0
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	r.SaveCollection(ctx, table, cacheKey, items)
	return len(items)
}

// PushConfig queues the cached configuration singleton for upload. It
// reports false when nothing is cached.
func (r *Reconciler) PushConfig(table, cacheKey string) bool {
	cfg, ok := r.cache.GetObject(cacheKey)
	if !ok {
		return false
	}
	r.SaveConfig(table, cacheKey, cfg)
	return true
}
