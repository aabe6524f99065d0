package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tvrecs/internal/cache"
	"tvrecs/internal/syncledger"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear cached profiles",
	}
	cmd.AddCommand(newCacheStatusCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	return cmd
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached user contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			summaries, err := cache.List(cfg.Paths.CacheDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintf(out, "No cached contexts in %s\n", cfg.Paths.CacheDir)
			} else {
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					if s.Err != nil {
						rows = append(rows, []string{s.Context, "-", "-", "-", "-", humanize.Bytes(uint64(s.SizeBytes)), "unreadable: " + s.Err.Error()})
						continue
					}
					rows = append(rows, []string{
						s.Context,
						strconv.Itoa(s.WatchedCount),
						strconv.Itoa(s.ItemCount),
						strconv.Itoa(s.LibraryCount),
						strconv.Itoa(s.ExternalIDs),
						humanize.Bytes(uint64(s.SizeBytes)),
						humanize.Time(s.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Context", "Watched", "Profiled", "Library", "Lookups", "Size", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
			}

			ledger, err := syncledger.Open(cmd.Context(), syncledger.Path(cfg.Paths.CacheDir))
			if err != nil {
				return err
			}
			defer ledger.Close()
			stats, err := ledger.Stats(cmd.Context(), syncledger.SinkTrakt)
			if err != nil {
				return err
			}
			last := "never"
			if !stats.LastSync.IsZero() {
				last = humanize.Time(stats.LastSync)
			}
			fmt.Fprintf(out, "Trakt sync ledger: %s episodes, last sync %s\n", humanize.Comma(int64(stats.Episodes)), last)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var clearLedger bool
	cmd := &cobra.Command{
		Use:   "clear [context...]",
		Short: "Delete cached profiles (all contexts when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := cache.Remove(cfg.Paths.CacheDir, args...)
			out := cmd.OutOrStdout()
			for _, path := range removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d cached context(s)\n", len(removed))

			if clearLedger {
				ledger, err := syncledger.Open(cmd.Context(), syncledger.Path(cfg.Paths.CacheDir))
				if err != nil {
					return err
				}
				defer ledger.Close()
				n, err := ledger.Clear(cmd.Context(), syncledger.SinkTrakt)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Forgot %d synced episode(s); the next sync resends them\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearLedger, "ledger", false, "Also forget which episodes were synced to Trakt")
	return cmd
}
