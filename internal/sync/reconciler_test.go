package sync

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/electripro/electripro/internal/cache"
	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pricesTable = "prices"
	pricesKey   = "electripro-prices"
	configTable = "config"
	configKey   = "electripro-config"
)

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newReconciler uses a debounce long enough that only Flush drains.
func newReconciler(t *testing.T, c Cache, store remote.Store) *Reconciler {
	t.Helper()
	r := New(c, store, Options{OutboxInterval: time.Hour})
	t.Cleanup(func() { r.Close(context.Background()) })
	return r
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func ids(t *testing.T, items []json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, recordKey(it))
	}
	return out
}

func TestLoadCollection_Unconfigured(t *testing.T) {
	c := openCache(t)
	r := newReconciler(t, c, remote.Disabled{})
	ctx := context.Background()

	assert.Empty(t, r.LoadCollection(ctx, pricesTable, pricesKey))

	c.Set(pricesKey, []json.RawMessage{raw(`{"code":"BL-001"}`)})
	got := r.LoadCollection(ctx, pricesTable, pricesKey)
	assert.Equal(t, []string{"BL-001"}, ids(t, got))
	assert.False(t, r.Configured())
}

func TestLoadCollection_RemoteWins(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)

	c.Set(pricesKey, []json.RawMessage{raw(`{"code":"LOCAL-1"}`)})
	mem.Seed(pricesTable,
		remote.Row{ID: "BL-001", Data: raw(`{"code":"BL-001"}`), CreatedAt: time.Unix(10, 0)},
		remote.Row{ID: "BL-002", Data: raw(`{"code":"BL-002"}`), CreatedAt: time.Unix(20, 0)},
	)

	got := r.LoadCollection(context.Background(), pricesTable, pricesKey)
	assert.Equal(t, []string{"BL-001", "BL-002"}, ids(t, got))

	cached, ok := c.Get(pricesKey)
	require.True(t, ok)
	assert.Equal(t, []string{"BL-001", "BL-002"}, ids(t, cached), "cache overwritten with remote data")
	assert.Zero(t, mem.Calls(remote.OpUpsert))
}

func TestLoadCollection_UnreadableRemoteKeepsCache(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)

	c.Set(pricesKey, []json.RawMessage{raw(`{"code":"LOCAL-1"}`)})
	mem.Seed(pricesTable,
		remote.Row{ID: "BL-001", Data: raw(`null`), CreatedAt: time.Unix(10, 0)},
		remote.Row{ID: "BL-002", Data: raw(`"text"`), CreatedAt: time.Unix(20, 0)},
	)

	got := r.LoadCollection(context.Background(), pricesTable, pricesKey)
	assert.Equal(t, []string{"LOCAL-1"}, ids(t, got))

	cached, ok := c.Get(pricesKey)
	require.True(t, ok)
	assert.Equal(t, []string{"LOCAL-1"}, ids(t, cached))
	assert.Zero(t, mem.Calls(remote.OpUpsert))
}

func TestLoadCollection_MigratesExactlyOnce(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	reg := prometheus.NewRegistry()
	m := metrics.NewSync(reg)
	r := New(c, mem, Options{OutboxInterval: time.Hour, Metrics: m})
	defer r.Close(context.Background())
	ctx := context.Background()

	c.Set("electripro-budgets", []json.RawMessage{
		raw(`{"id":"pres-1","createdAt":"2024-01-01T00:00:00Z"}`),
		raw(`{"id":"pres-2","updatedAt":"2024-02-01T00:00:00Z"}`),
		raw(`{"number":3}`),
	})

	first := r.LoadCollection(ctx, "budgets", "electripro-budgets")
	assert.Len(t, first, 3)
	assert.Equal(t, 1, mem.Calls(remote.OpUpsert))

	rows := mem.Rows("budgets")
	require.Len(t, rows, 3)
	assert.Equal(t, "pres-1", rows[0].ID)
	assert.Equal(t, "pres-2", rows[1].ID)
	assert.NotEmpty(t, rows[2].ID, "records without id or code get a generated id")

	second := r.LoadCollection(ctx, "budgets", "electripro-budgets")
	assert.Len(t, second, 3)
	assert.Equal(t, 1, mem.Calls(remote.OpUpsert), "non-empty remote must not migrate again")
	n, err := testutil.GatherAndCount(reg, "electripro_sync_migrations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadCollection_RemoteErrorServesBaseline(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	mem.FailOn(remote.OpSelectAll, errors.New("offline"))
	r := newReconciler(t, c, mem)

	c.Set(pricesKey, []json.RawMessage{raw(`{"code":"BL-001"}`)})
	got := r.LoadCollection(context.Background(), pricesTable, pricesKey)
	assert.Equal(t, []string{"BL-001"}, ids(t, got))
	assert.Zero(t, mem.Calls(remote.OpUpsert), "no migration after a failed query")
}

func TestLoadCollection_BothEmpty(t *testing.T) {
	r := newReconciler(t, openCache(t), remote.NewMemory())
	got := r.LoadCollection(context.Background(), pricesTable, pricesKey)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpsertItem_ReplaceOrAppend(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)

	r.UpsertItem(pricesTable, pricesKey, raw(`{"code":"BL-001","price":"1"}`), "code")
	r.UpsertItem(pricesTable, pricesKey, raw(`{"code":"TC-001","price":"2"}`), "code")
	r.UpsertItem(pricesTable, pricesKey, raw(`{"code":"BL-001","price":"3"}`), "code")

	cached, ok := c.Get(pricesKey)
	require.True(t, ok, "cache written before UpsertItem returns")
	require.Len(t, cached, 2)
	assert.JSONEq(t, `{"code":"BL-001","price":"3"}`, string(cached[0]))

	assert.Equal(t, 2, r.Pending())
	assert.Zero(t, mem.Calls(remote.OpUpsert))

	r.Flush(context.Background())
	assert.Zero(t, r.Pending())
	assert.Equal(t, 2, mem.Calls(remote.OpUpsert), "two records, one write each")

	row, err := mem.SelectOne(context.Background(), pricesTable, "BL-001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"BL-001","price":"3"}`, string(row.Data))
}

func TestOutbox_LastEnqueuedWins(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)
	ctx := context.Background()

	r.UpsertItem("obras", "electripro-obras", raw(`{"id":"obra-1","client":"A"}`), "id")
	r.UpsertItem("obras", "electripro-obras", raw(`{"id":"obra-1","client":"B"}`), "id")
	r.DeleteItem("obras", "electripro-obras", "obra-1")
	r.UpsertItem("obras", "electripro-obras", raw(`{"id":"obra-2","client":"C"}`), "id")
	r.Flush(ctx)

	assert.Equal(t, 1, mem.Calls(remote.OpDeleteOne), "upserts of obra-1 replaced by its delete")
	assert.Equal(t, 1, mem.Calls(remote.OpUpsert))
	rows := mem.Rows("obras")
	require.Len(t, rows, 1)
	assert.Equal(t, "obra-2", rows[0].ID)

	cached, _ := c.Get("electripro-obras")
	assert.Equal(t, []string{"obra-2"}, ids(t, cached))
}

func TestOutbox_DrainsInBackground(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := New(c, mem, Options{OutboxInterval: 10 * time.Millisecond})
	defer r.Close(context.Background())

	r.UpsertItem("plans", "electripro-plans", raw(`{"id":"plan-1"}`), "id")
	require.Eventually(t, func() bool {
		return len(mem.Rows("plans")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, r.Pending())
}

func TestOutbox_RemoteFailureKeepsLocal(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	mem.FailOn(remote.OpUpsert, errors.New("503"))
	r := newReconciler(t, c, mem)

	r.UpsertItem(pricesTable, pricesKey, raw(`{"code":"BL-001"}`), "code")
	r.Flush(context.Background())

	cached, _ := c.Get(pricesKey)
	assert.Equal(t, []string{"BL-001"}, ids(t, cached))
	assert.Empty(t, mem.Rows(pricesTable))
	assert.Zero(t, r.Pending(), "failed writes are dropped, not retried")
}

func TestCloseFlushes(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := New(c, mem, Options{OutboxInterval: time.Hour})

	r.DeleteItem(pricesTable, pricesKey, "BL-001")
	r.Close(context.Background())
	r.Close(context.Background())

	assert.Equal(t, 1, mem.Calls(remote.OpDeleteOne))
}

func TestDeleteItem_MatchesIDOrCode(t *testing.T) {
	c := openCache(t)
	r := newReconciler(t, c, remote.Disabled{})

	c.Set(pricesKey, []json.RawMessage{
		raw(`{"code":"BL-001"}`),
		raw(`{"code":"BL-002"}`),
		raw(`{"id":"x","code":"BL-001"}`),
	})
	r.DeleteItem(pricesTable, pricesKey, "BL-001")

	cached, _ := c.Get(pricesKey)
	assert.Equal(t, []string{"BL-002", "x"}, ids(t, cached))
	assert.Zero(t, r.Pending(), "nothing queued without a remote")
}

func TestSaveCollection_ReplacesRemote(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)
	ctx := context.Background()

	mem.Seed(pricesTable, remote.Row{ID: "OLD", Data: raw(`{"code":"OLD"}`)})
	r.UpsertItem(pricesTable, pricesKey, raw(`{"code":"QUEUED"}`), "code")

	r.SaveCollection(ctx, pricesTable, pricesKey, []json.RawMessage{
		raw(`{"code":"BL-001"}`),
		raw(`{"code":"BL-002"}`),
	})

	assert.Equal(t, 1, mem.Calls(remote.OpDeleteAll))
	assert.Zero(t, r.Pending(), "queued writes superseded by the full save")

	rows := mem.Rows(pricesTable)
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row.ID)
	}
	assert.ElementsMatch(t, []string{"BL-001", "BL-002"}, got)

	cached, _ := c.Get(pricesKey)
	assert.Equal(t, []string{"BL-001", "BL-002"}, ids(t, cached))
}

func TestSaveCollection_DeleteFailureSkipsUpsert(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	mem.FailOn(remote.OpDeleteAll, errors.New("denied"))
	r := newReconciler(t, c, mem)

	r.SaveCollection(context.Background(), pricesTable, pricesKey, []json.RawMessage{raw(`{"code":"A"}`)})
	assert.Zero(t, mem.Calls(remote.OpUpsert))

	cached, _ := c.Get(pricesKey)
	assert.Len(t, cached, 1, "cache is written regardless")
}

func TestLoadConfig(t *testing.T) {
	def := raw(`{"companyName":"ElectriPro"}`)
	ctx := context.Background()

	t.Run("default when nothing stored", func(t *testing.T) {
		mem := remote.NewMemory()
		r := newReconciler(t, openCache(t), mem)
		got := r.LoadConfig(ctx, configTable, configKey, def)
		assert.JSONEq(t, string(def), string(got))
		assert.Zero(t, mem.Calls(remote.OpUpsert))
	})

	t.Run("local config pushed when remote is empty", func(t *testing.T) {
		c := openCache(t)
		mem := remote.NewMemory()
		r := newReconciler(t, c, mem)
		c.SetObject(configKey, raw(`{"companyName":"Local"}`))

		got := r.LoadConfig(ctx, configTable, configKey, def)
		assert.JSONEq(t, `{"companyName":"Local"}`, string(got))

		row, err := mem.SelectOne(ctx, configTable, ConfigID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"companyName":"Local"}`, string(row.Data))
	})

	t.Run("remote wins and is cached", func(t *testing.T) {
		c := openCache(t)
		mem := remote.NewMemory()
		r := newReconciler(t, c, mem)
		c.SetObject(configKey, raw(`{"companyName":"Local"}`))
		mem.Seed(configTable, remote.Row{ID: ConfigID, Data: raw(`{"companyName":"Cloud"}`)})

		got := r.LoadConfig(ctx, configTable, configKey, def)
		assert.JSONEq(t, `{"companyName":"Cloud"}`, string(got))

		cached, ok := c.GetObject(configKey)
		require.True(t, ok)
		assert.JSONEq(t, `{"companyName":"Cloud"}`, string(cached))
	})

	t.Run("remote error serves local", func(t *testing.T) {
		c := openCache(t)
		mem := remote.NewMemory()
		mem.FailOn(remote.OpSelectOne, errors.New("timeout"))
		r := newReconciler(t, c, mem)
		c.SetObject(configKey, raw(`{"companyName":"Local"}`))

		got := r.LoadConfig(ctx, configTable, configKey, def)
		assert.JSONEq(t, `{"companyName":"Local"}`, string(got))
		assert.Zero(t, mem.Calls(remote.OpUpsert))
	})
}

func TestSaveConfig(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)

	r.SaveConfig(configTable, configKey, raw(`{"currency":"USD"}`))
	cached, ok := c.GetObject(configKey)
	require.True(t, ok)
	assert.JSONEq(t, `{"currency":"USD"}`, string(cached))

	r.Flush(context.Background())
	row, err := mem.SelectOne(context.Background(), configTable, ConfigID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"USD"}`, string(row.Data))
}

func TestCreatedAtFallback(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2023, createdAt(raw(`{"createdAt":"2023-05-01T10:00:00.000Z"}`), now).Year())
	assert.Equal(t, 2022, createdAt(raw(`{"updatedAt":"2022-05-01T10:00:00Z"}`), now).Year())
	assert.Equal(t, now, createdAt(raw(`{"createdAt":"0001-01-01T00:00:00Z"}`), now))
	assert.Equal(t, now, createdAt(raw(`{"createdAt":"garbage"}`), now))
}

func TestPush_ReplacesRemoteWithCache(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)
	ctx := context.Background()

	mem.Seed(pricesTable, remote.Row{ID: "REMOTE-1", Data: raw(`{"code":"REMOTE-1"}`)})
	c.Set(pricesKey, []json.RawMessage{raw(`{"code":"LOCAL-1"}`), raw(`{"code":"LOCAL-2"}`)})
	c.SetObject(configKey, raw(`{"companyName":"Local"}`))

	assert.Equal(t, 2, r.PushCollection(ctx, pricesTable, pricesKey))
	assert.True(t, r.PushConfig(configTable, configKey))
	r.Flush(ctx)

	rows := mem.Rows(pricesTable)
	require.Len(t, rows, 2)
	assert.ElementsMatch(t, []string{"LOCAL-1", "LOCAL-2"}, []string{rows[0].ID, rows[1].ID})

	cfg, err := mem.SelectOne(ctx, configTable, ConfigID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"companyName":"Local"}`, string(cfg.Data))

	assert.False(t, r.PushConfig(configTable, "electripro-missing"))
}

func TestPush_UnreadableCacheKeepsRemote(t *testing.T) {
	c := openCache(t)
	mem := remote.NewMemory()
	r := newReconciler(t, c, mem)
	ctx := context.Background()

	mem.Seed(pricesTable, remote.Row{ID: "BL-001", Data: raw(`{"code":"BL-001"}`)})

	assert.Zero(t, r.PushCollection(ctx, pricesTable, pricesKey))

	c.SetRaw(pricesKey, []byte(`{"oops":1}`))
	assert.Zero(t, r.PushCollection(ctx, pricesTable, pricesKey))
	r.Flush(ctx)

	require.Len(t, mem.Rows(pricesTable), 1)
	assert.Equal(t, "BL-001", mem.Rows(pricesTable)[0].ID)
}
