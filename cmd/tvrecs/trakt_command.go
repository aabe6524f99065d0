package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tvrecs/internal/config"
)

func newTraktCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trakt",
		Short: "Trakt watch history maintenance",
	}
	cmd.AddCommand(newTraktSyncCommand(ctx))
	cmd.AddCommand(newTraktClearCommand(ctx))
	return cmd
}

func requireTrakt(cfg *config.Config) error {
	if !cfg.TraktEnabled() {
		return errors.New("trakt is not configured: set trakt.client_id and trakt.access_token")
	}
	return nil
}

func newTraktSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push Plex watched episodes to Trakt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireTrakt(cfg); err != nil {
				return err
			}
			sess, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			summary, err := sess.runner.SyncTrakt(cmd.Context())
			out := cmd.OutOrStdout()
			switch {
			case summary.Pending == 0 && err == nil:
				fmt.Fprintf(out, "Trakt history up to date (%d watched episodes)\n", summary.Watched)
			default:
				fmt.Fprintf(out, "Synced %d of %d pending episodes in %d batch(es)",
					len(summary.Result.Synced), summary.Pending, summary.Result.Batches)
				if summary.Result.Failed > 0 {
					fmt.Fprintf(out, ", %d failed", summary.Result.Failed)
				}
				fmt.Fprintln(out)
			}
			return err
		},
	}
}

func newTraktClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all show history from the Trakt account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireTrakt(cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), out, "This removes every watched show from your Trakt history. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}
			sess, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			removed, err := sess.runner.ClearTrakt(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d show(s) from Trakt history\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
