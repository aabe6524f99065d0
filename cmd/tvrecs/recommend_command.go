package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tvrecs/internal/media"
	"tvrecs/internal/recommend"
	"tvrecs/internal/services/sonarr"
)

type recommendOptions struct {
	plexOnly   bool
	limitPlex  int
	limitTrakt int
	noSonarr   bool
	yes        bool
}

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var opts recommendOptions

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend shows from your library and from Trakt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.plexOnly {
				cfg.Recommend.PlexOnly = true
			}
			if cmd.Flags().Changed("limit-plex") {
				cfg.Recommend.LimitPlex = max(opts.limitPlex, 0)
			}
			if cmd.Flags().Changed("limit-trakt") {
				cfg.Recommend.LimitTrakt = max(opts.limitTrakt, 0)
			}

			sess, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			reports, err := sess.runner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, report := range reports {
				renderReport(out, report, cfg.Output, colorize)
			}
			if err != nil {
				return err
			}
			if sess.log.FilePath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Run log: %s\n", sess.log.FilePath)
			}

			if !cfg.Sonarr.Enabled || opts.noSonarr {
				return nil
			}
			picks := suggestionShows(reports)
			if len(picks) == 0 {
				return nil
			}
			if cfg.Output.ConfirmOperations && !opts.yes {
				picks, err = choosePicks(cmd.InOrStdin(), out, picks)
				if err != nil || len(picks) == 0 {
					return err
				}
			}
			outcomes, err := sess.runner.AddToSonarr(cmd.Context(), picks)
			renderSonarrOutcomes(out, outcomes)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.plexOnly, "plex-only", false, "Skip Trakt suggestions")
	cmd.Flags().IntVar(&opts.limitPlex, "limit-plex", 0, "Number of library recommendations")
	cmd.Flags().IntVar(&opts.limitTrakt, "limit-trakt", 0, "Number of Trakt suggestions")
	cmd.Flags().BoolVar(&opts.noSonarr, "no-sonarr", false, "Do not forward suggestions to Sonarr")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Forward every suggestion without asking")
	return cmd
}

// suggestionShows collects the picked suggestions of every context once.
func suggestionShows(reports []recommend.Report) []media.Show {
	seen := map[string]struct{}{}
	var out []media.Show
	for _, report := range reports {
		for _, c := range report.Suggestions {
			if _, ok := seen[c.Key]; ok {
				continue
			}
			seen[c.Key] = struct{}{}
			out = append(out, c.Show)
		}
	}
	return out
}

func choosePicks(in io.Reader, out io.Writer, shows []media.Show) ([]media.Show, error) {
	fmt.Fprintln(out, "Suggestions available for Sonarr:")
	for i, show := range shows {
		fmt.Fprintf(out, "  %d. %s\n", i+1, show.Label())
	}
	idx, err := promptSelection(in, out, "Add which shows to Sonarr?", len(shows))
	if err != nil {
		return nil, err
	}
	picked := make([]media.Show, 0, len(idx))
	for _, i := range idx {
		picked = append(picked, shows[i])
	}
	return picked, nil
}

func renderSonarrOutcomes(w io.Writer, outcomes []sonarr.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		}
		rows = append(rows, []string{o.Show.Label(), string(o.Action), detail})
	}
	fmt.Fprintln(w, renderTable([]string{"Show", "Sonarr", "Detail"}, rows, nil))
	counts := sonarr.Counts(outcomes)
	fmt.Fprintf(w, "Sonarr: %d added, %d updated, %d already present, %d skipped, %d failed\n",
		counts[sonarr.ActionAdded], counts[sonarr.ActionUpdated], counts[sonarr.ActionExists],
		counts[sonarr.ActionSkipped], counts[sonarr.ActionFailed])
}
