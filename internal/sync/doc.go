// Package sync reconciles the local cache with the remote row store.
//
// The local cache is always authoritative for the running process: every
// mutation is written to it synchronously, and the remote store is brought
// up to date afterwards. Remote failures never surface to callers; they
// are logged with the table and operation, counted, and the cached data
// keeps being served.
//
// # Loading
//
// LoadCollection reads the cached baseline first. With a configured remote
// it then fetches every row of the table:
//
//   - a query error returns the baseline unchanged
//   - remote rows win: their data replaces the cache and is returned
//   - an empty remote table with a non-empty baseline triggers a one-time
//     migration that pushes the baseline up, and the baseline is returned
//   - both empty returns an empty collection
//
// LoadConfig follows the same rules for the configuration singleton, which
// is stored remotely under the row id "main".
//
// # Writing
//
// SaveCollection replaces a whole table (delete every row, then upsert the
// full set) and waits for the remote. UpsertItem and DeleteItem touch one
// record: the cache is updated before they return and the remote write is
// handed to the Outbox.
//
// The Outbox keeps at most one pending write per record, so a later write
// to the same record replaces an earlier one that has not been sent yet.
// A single goroutine drains it on a debounce ticker; Flush drains it
// immediately and Close drains it one last time before stopping.
//
// Example:
//
//	c, _ := cache.Open(".electripro/cache.db", logger)
//	r := sync.New(c, remote.Disabled{}, sync.Options{Logger: logger})
//	defer r.Close(context.Background())
//
//	prices := r.LoadCollection(ctx, "prices", "electripro-prices")
package sync
