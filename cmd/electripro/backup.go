package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/electripro/electripro/internal/backup"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:     "backup",
	GroupID: "sync",
	Short:   "Export and import full backups",
	Long: `Export and import full backups.

A backup is one JSON document holding every electripro cache entry plus an
exportedAt timestamp. Backups are written to the backup directory, a file
of your choice, stdout or an S3 bucket (backup.s3.bucket).`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup of every record",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		now := time.Now()
		data, err := backup.Export(a.cache, now)
		if err != nil {
			a.fail("%v", err)
		}

		toS3, _ := cmd.Flags().GetBool("s3")
		if toS3 {
			target := a.s3Target(cmd)
			key, err := target.Put(cmd.Context(), backup.FileName(now), data)
			if err != nil {
				a.fail("%v", err)
			}
			fmt.Printf("%s Uploaded s3://%s/%s (%s)\n", ui.RenderPass("✓"), a.cfg.Backup.S3.Bucket, key, humanize.Bytes(uint64(len(data))))
			return
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "-" {
			os.Stdout.Write(data)
			fmt.Println()
			return
		}
		if out == "" {
			out = filepath.Join(a.cfg.BackupDir(), backup.FileName(now))
		}
		if err := backup.WriteFile(out, data); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Wrote %s (%s)\n", ui.RenderPass("✓"), out, humanize.Bytes(uint64(len(data))))
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Restore a backup into the local cache",
	Long: `Restore a backup. Every entry present in the document replaces the
local one; entries it does not mention are kept. A malformed document
changes nothing.

With a remote store configured the restored records are pushed to it, since
the next load would otherwise bring the remote copy back.

With --s3 the newest backup in the bucket is used unless --key names one.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fromS3, _ := cmd.Flags().GetBool("s3")
		if !fromS3 && len(args) == 0 {
			fatalf("a backup file or --s3 is required")
		}

		a := openAppWith(cmd.Context(), false)
		defer a.Close()

		var (
			data   []byte
			source string
			err    error
		)
		if fromS3 {
			target := a.s3Target(cmd)
			key, _ := cmd.Flags().GetString("key")
			if key == "" {
				if key, err = target.Latest(cmd.Context()); err != nil {
					a.fail("%v", err)
				}
			}
			source = "s3://" + a.cfg.Backup.S3.Bucket + "/" + key
			data, err = target.Get(cmd.Context(), key)
		} else {
			source = args[0]
			data, err = backup.ReadFile(args[0])
		}
		if err != nil {
			a.fail("%v", err)
		}

		names, _ := backup.Names(data)
		ok, err := backup.Import(a.cache, data)
		if err != nil || !ok {
			a.fail("invalid backup %s: %v", source, err)
		}

		if a.rec.Configured() {
			a.stores.Push(cmd.Context())
		}
		if err := a.stores.Initialize(cmd.Context()); err != nil {
			a.fail("%v", err)
		}

		fmt.Printf("%s Restored %s\n", ui.RenderPass("✓"), source)
		fmt.Printf("   Entries: %s\n", strings.Join(names, ", "))
		fmt.Printf("   Budgets: %d  Obras: %d  Items: %d\n",
			len(a.stores.Budgets.All()), len(a.stores.Obras.All()), a.stores.Prices.Len())
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	Run: func(cmd *cobra.Command, args []string) {
		a := openAppWith(cmd.Context(), false)
		defer a.Close()

		fromS3, _ := cmd.Flags().GetBool("s3")
		var names []string
		if fromS3 {
			keys, err := a.s3Target(cmd).List(cmd.Context())
			if err != nil {
				a.fail("%v", err)
			}
			names = keys
		} else {
			matches, err := filepath.Glob(filepath.Join(a.cfg.BackupDir(), "electripro-backup-*.json"))
			if err != nil {
				a.fail("%v", err)
			}
			names = matches
		}

		if jsonOutput {
			printJSON(names)
			return
		}
		if len(names) == 0 {
			fmt.Printf("%s No backups found\n", ui.RenderWarn("⚠"))
			return
		}
		for _, n := range names {
			fmt.Println(n)
		}
	},
}

func (a *app) s3Target(cmd *cobra.Command) *backup.S3Target {
	if !a.cfg.S3Configured() {
		a.fail("backup.s3.bucket is not set")
	}
	target, err := backup.NewS3Target(cmd.Context(), a.cfg.S3TargetConfig())
	if err != nil {
		a.fail("%v", err)
	}
	return target
}

func init() {
	backupExportCmd.Flags().StringP("out", "o", "", "Output file, - for stdout (default: backup directory)")
	backupExportCmd.Flags().Bool("s3", false, "Upload to the configured S3 bucket")

	backupImportCmd.Flags().Bool("s3", false, "Download from the configured S3 bucket")
	backupImportCmd.Flags().String("key", "", "S3 object key (default: newest backup)")

	backupListCmd.Flags().Bool("s3", false, "List the S3 bucket instead of the backup directory")

	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupListCmd)
	rootCmd.AddCommand(backupCmd)
}
