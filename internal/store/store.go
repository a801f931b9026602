// Package store holds the in-memory domain collections of electripro and
// mirrors every mutation to the local cache and the remote store.
//
// Each store keeps its records in a slice guarded by a sync.RWMutex. A
// mutation validates first, then updates memory, the cache and the remote
// outbox in that order, so the cache always equals what the store holds.
// Reads never touch storage.
//
// Stores are created together with New and loaded with Stores.Initialize:
//
//	st := store.New(reconciler, store.Options{Logger: log})
//	if err := st.Initialize(ctx); err != nil {
//		return err
//	}
//	defer st.Teardown(ctx)
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/electripro/electripro/internal/cache"
	"github.com/rs/zerolog"
)

// Remote table names.
const (
	TablePrices  = "prices"
	TableBudgets = "budgets"
	TableObras   = "obras"
	TableConteos = "conteos"
	TablePlans   = "plans"
	TableConfig  = "config"
)

// Tables lists every table in export order.
func Tables() []string {
	return []string{TableConfig, TablePrices, TableBudgets, TableObras, TableConteos, TablePlans}
}

// CacheKey returns the cache key of table.
func CacheKey(table string) string {
	return cache.Namespace + table
}

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a record with the same key exists.
	ErrDuplicate = errors.New("already exists")
)

// ValidationError reports a record rejected before any state changed.
type ValidationError struct {
	Entity string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Entity, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(entity string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Entity: entity, Err: err}
}

// Mirror persists collections locally and remotely. *sync.Reconciler
// implements it.
type Mirror interface {
	LoadCollection(ctx context.Context, table, cacheKey string) []json.RawMessage
	LoadConfig(ctx context.Context, table, cacheKey string, def json.RawMessage) json.RawMessage
	SaveCollection(ctx context.Context, table, cacheKey string, items []json.RawMessage)
	SaveConfig(table, cacheKey string, cfg json.RawMessage)
	UpsertItem(table, cacheKey string, item json.RawMessage, idField string)
	DeleteItem(table, cacheKey, itemID string)
	PushCollection(ctx context.Context, table, cacheKey string) int
	PushConfig(table, cacheKey string) bool
	Flush(ctx context.Context)
}

// ChangeOp is the kind of a Change.
type ChangeOp string

const (
	ChangeUpsert  ChangeOp = "upsert"
	ChangeDelete  ChangeOp = "delete"
	ChangeReplace ChangeOp = "replace"
	ChangeReload  ChangeOp = "reload"
)

// Change describes one mutation, delivered to OnChange observers after it
// has been persisted.
type Change struct {
	Table string   `json:"table"`
	ID    string   `json:"id,omitempty"`
	Op    ChangeOp `json:"op"`
}

// Options configure New.
type Options struct {
	// Logger receives warnings about undecodable records.
	Logger zerolog.Logger

	// Now overrides the clock used for ids, dates and timestamps.
	Now func() time.Time
}

// env is shared by every store of one Stores.
type env struct {
	mirror Mirror
	log    zerolog.Logger
	now    func() time.Time

	obsMu     sync.RWMutex
	observers []func(Change)
}

func (e *env) notify(c Change) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	for _, fn := range observers {
		fn(c)
	}
}

// today is the current date in YYYY-MM-DD form.
func (e *env) today() string {
	return e.now().Format(time.DateOnly)
}

// Stores bundles every domain store over one Mirror.
type Stores struct {
	Prices  *PriceStore
	Budgets *BudgetStore
	Obras   *ObraStore
	Conteos *ConteoStore
	Plans   *PlanStore
	Config  *ConfigStore

	env *env
}

// New creates empty stores over m. Call Initialize to load them.
func New(m Mirror, opts Options) *Stores {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &env{
		mirror: m,
		log:    opts.Logger.With().Str("component", "store").Logger(),
		now:    opts.Now,
	}

	s := &Stores{env: e}
	s.Config = newConfigStore(e)
	s.Prices = newPriceStore(e)
	s.Conteos = newConteoStore(e)
	s.Budgets = newBudgetStore(e, s.Config, s.Prices, s.Conteos)
	s.Obras = newObraStore(e)
	s.Plans = newPlanStore(e, s.Config)
	return s
}

// Initialize loads every collection, config first. An empty price catalog
// is seeded with the defaults.
func (s *Stores) Initialize(ctx context.Context) error {
	s.Config.load(ctx)

	steps := []struct {
		table string
		load  func(context.Context)
	}{
		{TablePrices, s.Prices.load},
		{TableBudgets, s.Budgets.load},
		{TableObras, s.Obras.load},
		{TableConteos, s.Conteos.load},
		{TablePlans, s.Plans.load},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("failed to load %s: %w", step.table, err)
		}
		step.load(ctx)
	}

	if s.Prices.Len() == 0 {
		s.env.log.Info().Msg("price catalog empty, seeding defaults")
		if err := s.Prices.ResetToDefaults(ctx); err != nil {
			return fmt.Errorf("failed to seed price catalog: %w", err)
		}
	}

	s.env.notify(Change{Op: ChangeReload})
	return nil
}

// Teardown pushes pending remote writes.
func (s *Stores) Teardown(ctx context.Context) {
	s.env.mirror.Flush(ctx)
}

// Push overwrites every remote table with the local cache and waits for
// the upload. It returns the number of records pushed per collection.
func (s *Stores) Push(ctx context.Context) map[string]int {
	pushed := make(map[string]int, len(Tables()))
	for _, table := range Tables() {
		if table == TableConfig {
			if s.env.mirror.PushConfig(table, CacheKey(table)) {
				pushed[table] = 1
			}
			continue
		}
		pushed[table] = s.env.mirror.PushCollection(ctx, table, CacheKey(table))
	}
	s.env.mirror.Flush(ctx)
	return pushed
}

// OnChange registers fn to be called after every persisted mutation and
// after each Initialize. fn runs on the mutating goroutine once the store
// lock is released.
func (s *Stores) OnChange(fn func(Change)) {
	s.env.obsMu.Lock()
	defer s.env.obsMu.Unlock()
	s.env.observers = append(s.env.observers, fn)
}
