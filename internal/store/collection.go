package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// collection is an in-memory record list kept equal to one cached
// collection.
type collection[T any] struct {
	table   string
	idField string
	idOf    func(T) string
	// clone copies the slices a record owns so callers never alias
	// stored state. Nil for records without slices.
	clone func(T) T
	env   *env

	mu    sync.RWMutex
	items []T
}

func newCollection[T any](e *env, table, idField string, idOf func(T) string, clone func(T) T) *collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &collection[T]{
		table:   table,
		idField: idField,
		idOf:    idOf,
		clone:   clone,
		env:     e,
		items:   []T{},
	}
}

func (c *collection[T]) key() string {
	return CacheKey(c.table)
}

// load replaces memory with the mirrored collection. Records that do not
// decode are skipped.
func (c *collection[T]) load(ctx context.Context) {
	raw := c.env.mirror.LoadCollection(ctx, c.table, c.key())

	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			c.env.log.Warn().Err(err).Str("table", c.table).Int("index", i).Msg("skipping undecodable record")
			continue
		}
		items = append(items, v)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	for i, v := range c.items {
		out[i] = c.clone(v)
	}
	return out
}

func (c *collection[T]) filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, v := range c.items {
		if keep(v) {
			out = append(out, c.clone(v))
		}
	}
	return out
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.clone(c.items[i]), true
	}
	var zero T
	return zero, false
}

func (c *collection[T]) last() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.clone(c.items[len(c.items)-1]), true
}

// indexOf must be called with mu held.
func (c *collection[T]) indexOf(id string) int {
	for i, v := range c.items {
		if c.idOf(v) == id {
			return i
		}
	}
	return -1
}

// create appends the record returned by build, which sees the current
// records. Nothing changes when build fails.
func (c *collection[T]) create(build func(existing []T) (T, error)) (T, error) {
	c.mu.Lock()
	item, err := c.createLocked(build)
	c.mu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	c.env.notify(Change{Table: c.table, ID: c.idOf(item), Op: ChangeUpsert})
	return c.clone(item), nil
}

func (c *collection[T]) createLocked(build func(existing []T) (T, error)) (T, error) {
	item, err := build(c.items)
	if err != nil {
		return item, err
	}
	if c.indexOf(c.idOf(item)) >= 0 {
		return item, fmt.Errorf("%s %q: %w", c.table, c.idOf(item), ErrDuplicate)
	}
	if err := c.persist(item); err != nil {
		return item, err
	}
	c.items = append(c.items, item)
	return item, nil
}

// update applies fn to a copy of the record with the given id and stores
// the result. Nothing changes when fn fails.
func (c *collection[T]) update(id string, fn func(*T) error) (T, error) {
	c.mu.Lock()
	item, err := c.updateLocked(id, fn)
	c.mu.Unlock()
	if err != nil {
		var zero T
		return zero, err
	}
	c.env.notify(Change{Table: c.table, ID: id, Op: ChangeUpsert})
	return c.clone(item), nil
}

func (c *collection[T]) updateLocked(id string, fn func(*T) error) (T, error) {
	i := c.indexOf(id)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", c.table, id, ErrNotFound)
	}

	item := c.clone(c.items[i])
	if err := fn(&item); err != nil {
		return item, err
	}
	if newID := c.idOf(item); newID != id {
		return item, fmt.Errorf("%s %q: key cannot change to %q", c.table, id, newID)
	}
	if err := c.persist(item); err != nil {
		return item, err
	}
	c.items[i] = item
	return item, nil
}

// remove deletes every record with the given id.
func (c *collection[T]) remove(id string) error {
	c.mu.Lock()
	kept := make([]T, 0, len(c.items))
	for _, v := range c.items {
		if c.idOf(v) != id {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(c.items) {
		c.mu.Unlock()
		return fmt.Errorf("%s %q: %w", c.table, id, ErrNotFound)
	}
	c.env.mirror.DeleteItem(c.table, c.key(), id)
	c.items = kept
	c.mu.Unlock()

	c.env.notify(Change{Table: c.table, ID: id, Op: ChangeDelete})
	return nil
}

// replace swaps the whole collection and awaits the remote replacement.
func (c *collection[T]) replace(ctx context.Context, items []T) error {
	raw := make([]json.RawMessage, 0, len(items))
	for _, v := range items {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record: %w", c.table, err)
		}
		raw = append(raw, b)
	}

	c.mu.Lock()
	c.env.mirror.SaveCollection(ctx, c.table, c.key(), raw)
	c.items = append([]T{}, items...)
	c.mu.Unlock()

	c.env.notify(Change{Table: c.table, Op: ChangeReplace})
	return nil
}

// persist mirrors one record; mu must be held.
func (c *collection[T]) persist(item T) error {
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", c.table, err)
	}
	c.env.mirror.UpsertItem(c.table, c.key(), b, c.idField)
	return nil
}
