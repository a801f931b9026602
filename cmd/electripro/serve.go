package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/electripro/electripro/internal/daemon"
	"github.com/electripro/electripro/internal/dashboard"
	"github.com/electripro/electripro/internal/metrics"
	"github.com/electripro/electripro/internal/ui"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Run the sync daemon and the live dashboard",
	Long: `Run the sync daemon and the live dashboard in the foreground.

The daemon reloads every store from the remote on serve.reload_interval and
imports backup documents dropped into the inbox directory; imported files
move to inbox/processed.

The dashboard serves:
  /               status page
  /ws             WebSocket feed (record_update, sync_complete, stats)
  /api/stats      dashboard figures
  /metrics        Prometheus metrics
  /health         liveness

Example usage:
  electripro serve                 # Port from serve.port (default 8080)
  electripro serve --port 9000
  electripro serve --no-inbox`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a := openApp(ctx)
		defer a.Close()

		port := a.cfg.Serve.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		noInbox, _ := cmd.Flags().GetBool("no-inbox")

		if a.log.GetLevel() > zerolog.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}

		server := dashboard.NewServer(a.stores, dashboard.Config{
			Port:     port,
			Gatherer: a.registry,
			Metrics:  metrics.NewDashboard(a.registry),
			Logger:   a.log,
		})

		dcfg := daemon.DefaultConfig()
		dcfg.ReloadInterval = a.cfg.Serve.ReloadInterval
		dcfg.Logger = a.log
		if !noInbox {
			dcfg.InboxDir = a.cfg.InboxDir()
		}
		d, err := daemon.New(a.stores, a.cache, dcfg)
		if err != nil {
			a.fail("creating daemon: %v", err)
		}

		a.stores.OnChange(server.OnChange)
		d.OnSync(server.OnSync)

		if err := server.Start(); err != nil {
			a.fail("failed to start dashboard: %v", err)
		}

		_, listenPort, _ := net.SplitHostPort(server.GetAddr())
		fmt.Printf("%s Dashboard on http://localhost:%s\n", ui.RenderAccent("🚀"), listenPort)
		fmt.Printf("   WebSocket: ws://localhost:%s/ws\n", listenPort)
		if dcfg.InboxDir != "" {
			fmt.Printf("   Inbox: %s\n", dcfg.InboxDir)
		}
		if a.rec.Configured() {
			fmt.Printf("   Remote: %s, reload every %v\n", a.cfg.Remote.Driver, dcfg.ReloadInterval)
		} else {
			fmt.Printf("   Remote: %s\n", ui.RenderWarn("local-only"))
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		// Start blocks until the signal arrives.
		if err := d.Start(ctx); err != nil {
			_ = server.Stop()
			a.fail("daemon stopped with error: %v", err)
		}

		fmt.Println("\nShutting down...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: serve.port)")
	serveCmd.Flags().Bool("no-inbox", false, "Do not watch the import inbox")
	rootCmd.AddCommand(serveCmd)
}
