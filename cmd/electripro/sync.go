package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/electripro/electripro/internal/remote"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Inspect and drive the remote mirror",
	Long: `Inspect and drive the remote mirror.

Every change is written to the local cache first and queued for the remote
store. Loading a collection pulls the remote copy over the cache; when the
remote is empty and the cache is not, the cache is uploaded once.`,
}

type syncStatus struct {
	Driver     string         `json:"driver"`
	Configured bool           `json:"configured"`
	Cache      string         `json:"cache"`
	CacheBytes int64          `json:"cacheBytes"`
	Pending    int            `json:"pending"`
	Records    map[string]int `json:"records"`
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remote store and what the cache holds",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		st := syncStatus{
			Driver:     a.cfg.Remote.Driver,
			Configured: a.rec.Configured(),
			Cache:      a.cache.Path(),
			Pending:    a.rec.Pending(),
			Records: map[string]int{
				store.TablePrices:  a.stores.Prices.Len(),
				store.TableBudgets: len(a.stores.Budgets.All()),
				store.TableObras:   len(a.stores.Obras.All()),
				store.TableConteos: len(a.stores.Conteos.All()),
				store.TablePlans:   len(a.stores.Plans.All()),
			},
		}
		var modified time.Time
		if info, err := os.Stat(st.Cache); err == nil {
			st.CacheBytes = info.Size()
			modified = info.ModTime()
		}

		if jsonOutput {
			printJSON(st)
			return
		}

		fmt.Printf("\n%s Sync Status\n\n", ui.RenderAccent("📊"))
		if st.Configured {
			fmt.Printf("Remote: %s %s\n", ui.RenderPass("●"), st.Driver)
		} else {
			fmt.Printf("Remote: %s local-only\n", ui.RenderWarn("○"))
		}
		fmt.Printf("Cache: %s (%s", st.Cache, humanize.Bytes(uint64(st.CacheBytes)))
		if !modified.IsZero() {
			fmt.Printf(", modified %s", humanize.Time(modified))
		}
		fmt.Println(")")
		fmt.Printf("Pending writes: %d\n\n", st.Pending)
		for _, table := range store.Tables() {
			if table == store.TableConfig {
				continue
			}
			fmt.Printf("  %-8s %d\n", table, st.Records[table])
		}
		fmt.Println()
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Overwrite the remote store with the local cache",
	Long: `Replace every remote table with what the local cache holds and wait
for the upload. Use it after restoring a backup or working offline against
a remote that others do not write to.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Loading would pull the remote over the cache first.
		a := openAppWith(cmd.Context(), false)
		defer a.Close()

		if !a.rec.Configured() {
			a.fail("%v: set remote.driver in electripro.yaml", remote.ErrNotConfigured)
		}

		fmt.Printf("%s Pushing to %s...\n", ui.RenderAccent("🔄"), a.cfg.Remote.Driver)
		start := time.Now()
		pushed := a.stores.Push(cmd.Context())

		if jsonOutput {
			printJSON(pushed)
			return
		}
		fmt.Printf("%s Push complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		for _, table := range store.Tables() {
			fmt.Printf("   %s: %d\n", table, pushed[table])
		}
	},
}

func init() {
	syncCmd.AddCommand(syncStatusCmd, syncPushCmd)
	rootCmd.AddCommand(syncCmd)
}
