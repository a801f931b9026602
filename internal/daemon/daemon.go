// Package daemon keeps a long-running process in step with the remote
// store and imports backups dropped into an inbox directory.
//
// The daemon:
//  1. Reloads every store from the remote on a fixed interval
//  2. Watches the inbox for *.json backup documents
//  3. Imports each document once it has stopped changing, pushes the
//     imported data to the remote and reloads
//  4. Moves handled documents to inbox/processed, or renames them to
//     *.failed when they cannot be imported
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/electripro/electripro/internal/backup"
	"github.com/electripro/electripro/internal/cache"
	"github.com/electripro/electripro/internal/store"
	"github.com/rs/zerolog"
)

// ProcessedDir is the inbox subdirectory imported documents are moved to.
const ProcessedDir = "processed"

// Config holds configuration for the daemon.
type Config struct {
	// ReloadInterval is how often stores are reloaded from the remote.
	// Zero disables periodic reloads.
	ReloadInterval time.Duration

	// DebounceInterval is how long an inbox file must stay unchanged
	// before it is imported.
	DebounceInterval time.Duration

	// InboxDir is watched for backup documents. Empty disables the inbox.
	InboxDir string

	// Logger for daemon activity. Zero value discards.
	Logger zerolog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReloadInterval:   5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
	}
}

// EventKind is the kind of an Event.
type EventKind string

const (
	EventReload EventKind = "reload"
	EventImport EventKind = "import"
)

// Event reports a completed reload or import.
type Event struct {
	Kind   EventKind
	Source string // inbox file for imports
	Err    error
	At     time.Time
}

// Daemon reloads stores periodically and imports inbox documents.
type Daemon struct {
	stores *store.Stores
	cache  *cache.Cache
	config Config
	log    zerolog.Logger

	inbox         *inboxWatcher
	changeQueue   map[string]time.Time // path -> last event
	changeQueueMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(Event)

	// work serialises reloads and imports.
	work sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon over initialized stores and the cache they mirror.
func New(stores *store.Stores, c *cache.Cache, config Config) (*Daemon, error) {
	if stores == nil {
		return nil, fmt.Errorf("stores cannot be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	var inbox *inboxWatcher
	if config.InboxDir != "" {
		if err := os.MkdirAll(filepath.Join(config.InboxDir, ProcessedDir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox: %w", err)
		}
		w, err := newInboxWatcher()
		if err != nil {
			return nil, err
		}
		inbox = w
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		stores:      stores,
		cache:       c,
		config:      config,
		log:         config.Logger.With().Str("component", "daemon").Logger(),
		inbox:       inbox,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// OnSync registers fn to be called after every reload and import.
func (d *Daemon) OnSync(fn func(Event)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *Daemon) emit(e Event) {
	d.listenersMu.RLock()
	listeners := d.listeners
	d.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

// Start imports documents already in the inbox, then watches it and
// reloads periodically. It blocks until ctx is cancelled or Stop is
// called.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info().
		Dur("reload_interval", d.config.ReloadInterval).
		Str("inbox", d.config.InboxDir).
		Msg("starting daemon")

	if d.inbox != nil {
		// Watch before scanning so nothing dropped in between is missed.
		if err := d.inbox.watch(d.config.InboxDir); err != nil {
			return err
		}
		d.wg.Add(3)
		go func() {
			defer d.wg.Done()
			d.inbox.run(d.ctx)
		}()
		go d.watchFileEvents()
		go d.processChangeQueue()

		if err := d.ScanInbox(ctx); err != nil {
			_ = d.Stop()
			return fmt.Errorf("initial inbox scan failed: %w", err)
		}
	}

	if d.config.ReloadInterval > 0 {
		d.wg.Add(1)
		go d.reloadLoop()
	}

	select {
	case <-ctx.Done():
		d.log.Info().Msg("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for in-flight work.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.log.Info().Msg("stopping daemon")
		d.cancel()
		if d.inbox != nil {
			if err := d.inbox.close(); err != nil {
				d.log.Warn().Err(err).Msg("error closing inbox watcher")
			}
		}
		d.wg.Wait()
		d.log.Info().Msg("daemon stopped")
	})
	return nil
}

// Reload re-reads every store through the reconciler, picking up remote
// changes.
func (d *Daemon) Reload(ctx context.Context) error {
	d.work.Lock()
	defer d.work.Unlock()

	err := d.stores.Initialize(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("reload failed")
	} else {
		d.log.Debug().Msg("stores reloaded")
	}
	d.emit(Event{Kind: EventReload, Err: err, At: time.Now()})
	return err
}

// ScanInbox imports every document currently in the inbox, oldest name
// first.
func (d *Daemon) ScanInbox(ctx context.Context) error {
	entries, err := os.ReadDir(d.config.InboxDir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".json" {
			paths = append(paths, filepath.Join(d.config.InboxDir, e.Name()))
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := d.ImportFile(ctx, p); err != nil {
			d.log.Warn().Err(err).Str("file", p).Msg("inbox import failed")
		}
	}
	return nil
}

// ImportFile imports one backup document into the cache, pushes it to the
// remote and reloads the stores. The file is then moved to the processed
// directory; a document that cannot be imported is renamed to *.failed.
func (d *Daemon) ImportFile(ctx context.Context, path string) error {
	d.work.Lock()
	defer d.work.Unlock()

	err := d.importFile(ctx, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		if rerr := os.Rename(path, path+".failed"); rerr != nil {
			d.log.Warn().Err(rerr).Str("file", path).Msg("failed to mark import as failed")
		}
	}
	d.emit(Event{Kind: EventImport, Source: path, Err: err, At: time.Now()})
	return err
}

func (d *Daemon) importFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if _, err := backup.Import(d.cache, data); err != nil {
		return err
	}

	pushed := d.stores.Push(ctx)
	if err := d.stores.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to reload after import: %w", err)
	}

	dest := processedPath(d.config.InboxDir, filepath.Base(path), time.Now())
	if err := os.Rename(path, dest); err != nil {
		d.log.Warn().Err(err).Str("file", path).Msg("failed to move imported file")
	}

	d.log.Info().Str("file", filepath.Base(path)).Interface("records", pushed).Msg("backup imported")
	return nil
}

// processedPath returns where an imported file goes, adding a timestamp
// when a file of the same name was already processed.
func processedPath(inbox, name string, now time.Time) string {
	dest := filepath.Join(inbox, ProcessedDir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(inbox, ProcessedDir,
			fmt.Sprintf("%s.%s%s", name[:len(name)-len(ext)], now.Format("20060102-150405"), ext))
	}
	return dest
}

func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.inbox.events:
			if !ok {
				return
			}
			if event.gone {
				d.dequeue(event.path)
				continue
			}
			d.log.Debug().Str("file", event.path).Msg("inbox event")
			d.queueChange(event.path)

		case err, ok := <-d.inbox.errs:
			if !ok {
				return
			}
			d.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	d.changeQueue[path] = time.Now()
}

func (d *Daemon) dequeue(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	delete(d.changeQueue, path)
}

func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges imports files that have been quiet for a full
// debounce interval.
func (d *Daemon) processPendingChanges() {
	now := time.Now()

	d.changeQueueMu.Lock()
	var ready []string
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		// Already imported by the initial scan, or moved away.
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := d.ImportFile(d.ctx, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.log.Warn().Err(err).Str("file", path).Msg("inbox import failed")
		}
	}
}

func (d *Daemon) reloadLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ReloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			_ = d.Reload(d.ctx)
		}
	}
}
