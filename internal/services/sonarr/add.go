package sonarr

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/services"
)

// Monitor options accepted by Sonarr's addOptions.monitor.
const (
	MonitorAll         = "all"
	MonitorNone        = "none"
	MonitorFirstSeason = "firstSeason"
)

// Action describes what happened to one show.
type Action string

const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionExists  Action = "exists"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Lookup resolves the external data the add flow needs for a show.
type Lookup interface {
	// TVDBID returns the show's TVDB id, or 0 when it cannot be resolved.
	TVDBID(ctx context.Context, show media.Show) (int64, error)
	// Seasons lists the show's regular season numbers.
	Seasons(ctx context.Context, show media.Show) ([]int, error)
}

// Settings mirrors the sonarr configuration section.
type Settings struct {
	RootFolder     string
	QualityProfile string
	MonitorOption  string
	SearchMissing  bool
	Tag            string
	PathMappings   map[string]string
	Platform       string
}

// Outcome reports the result for one show.
type Outcome struct {
	Show     media.Show
	Action   Action
	SeriesID int64
	Err      error
}

// Adder runs the add-or-update flow against one Sonarr server.
type Adder struct {
	client   *Client
	lookup   Lookup
	settings Settings
	logger   *slog.Logger
}

// NewAdder builds an Adder.
func NewAdder(client *Client, lookup Lookup, settings Settings, logger *slog.Logger) *Adder {
	if strings.TrimSpace(settings.MonitorOption) == "" {
		settings.MonitorOption = MonitorAll
	}
	return &Adder{
		client:   client,
		lookup:   lookup,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "sonarr"),
	}
}

type session struct {
	tagID     int64
	profileID int64
	existing  map[int64]Series
}

// Add forwards shows to Sonarr. Setup failures (connectivity, tag, quality
// profile, series listing) abort the run; per-show failures are recorded in
// the outcome and the remaining shows are still processed.
func (a *Adder) Add(ctx context.Context, shows []media.Show) ([]Outcome, error) {
	if len(shows) == 0 {
		return nil, nil
	}
	sess, err := a.prepare(ctx)
	if err != nil {
		return nil, err
	}
	outcomes := make([]Outcome, 0, len(shows))
	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := a.addOne(ctx, sess, show)
		if outcome.Err != nil {
			logging.WarnWithContext(a.logger, "sonarr add failed", "sonarr_add_failed",
				logging.String("title", show.Label()),
				logging.Error(outcome.Err),
				logging.String(logging.FieldErrorHint, "check the Sonarr logs and the series TVDB id"),
				logging.String(logging.FieldImpact, "show not added to Sonarr"),
			)
			if services.IsFatal(outcome.Err) {
				return append(outcomes, outcome), outcome.Err
			}
		} else {
			a.logger.Info("sonarr series processed",
				logging.String("title", show.Label()),
				logging.String("action", string(outcome.Action)),
				logging.Int64("series_id", outcome.SeriesID),
			)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (a *Adder) prepare(ctx context.Context) (session, error) {
	var sess session
	if err := a.client.Status(ctx); err != nil {
		return sess, err
	}
	if tag := strings.TrimSpace(a.settings.Tag); tag != "" {
		id, err := a.client.EnsureTag(ctx, tag)
		if err != nil {
			return sess, err
		}
		sess.tagID = id
	}
	profileID, err := a.client.QualityProfileID(ctx, a.settings.QualityProfile)
	if err != nil {
		return sess, err
	}
	sess.profileID = profileID
	series, err := a.client.Series(ctx)
	if err != nil {
		return sess, err
	}
	sess.existing = make(map[int64]Series, len(series))
	for _, s := range series {
		sess.existing[s.TVDBID] = s
	}
	return sess, nil
}

func (a *Adder) addOne(ctx context.Context, sess session, show media.Show) Outcome {
	outcome := Outcome{Show: show}
	tvdbID, err := a.lookup.TVDBID(ctx, show)
	if err != nil {
		outcome.Action, outcome.Err = ActionFailed, err
		return outcome
	}
	if tvdbID <= 0 {
		outcome.Action = ActionSkipped
		a.logger.Info("sonarr skipped show without tvdb id",
			logging.String("title", show.Label()),
			logging.String(logging.FieldEventType, "sonarr_no_tvdb_id"),
		)
		return outcome
	}

	monitor := a.settings.MonitorOption
	if existing, ok := sess.existing[tvdbID]; ok {
		outcome.SeriesID = existing.ID
		if monitor == MonitorNone {
			outcome.Action = ActionExists
			return outcome
		}
		if err := a.updateExisting(ctx, existing.ID, monitor); err != nil {
			outcome.Action, outcome.Err = ActionFailed, err
			return outcome
		}
		outcome.Action = ActionUpdated
		return outcome
	}

	req := AddRequest{
		TVDBID:           tvdbID,
		Title:            show.Title,
		QualityProfileID: sess.profileID,
		SeasonFolder:     true,
		RootFolderPath:   MapPath(a.settings.RootFolder, a.settings.PathMappings, a.settings.Platform),
		Monitored:        true,
		AddOptions: AddOptions{
			SearchForMissingEpisodes: a.settings.SearchMissing,
			Monitor:                  monitor,
		},
	}
	if sess.tagID > 0 {
		req.Tags = []int64{sess.tagID}
	}
	if monitor == MonitorFirstSeason {
		seasons, err := a.lookup.Seasons(ctx, show)
		if err != nil || len(seasons) == 0 {
			logging.WarnWithContext(a.logger, "season list unavailable; monitoring all seasons", "sonarr_seasons_unavailable",
				logging.String("title", show.Label()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the TMDB id for this show"),
				logging.String(logging.FieldImpact, "all seasons monitored instead of the first"),
			)
			req.AddOptions.Monitor = MonitorAll
			monitor = MonitorAll
		} else {
			for _, n := range seasons {
				req.Seasons = append(req.Seasons, SeasonMonitor{SeasonNumber: n, Monitored: n == 1})
			}
		}
	}
	created, err := a.client.AddSeries(ctx, req)
	if err != nil {
		outcome.Action, outcome.Err = ActionFailed, err
		return outcome
	}
	outcome.Action, outcome.SeriesID = ActionAdded, created.ID
	if monitor != MonitorNone && a.settings.SearchMissing && created.ID > 0 {
		if err := a.client.RunCommand(ctx, Command{Name: "SeriesSearch", SeriesIDs: []int64{created.ID}}); err != nil {
			outcome.Err = err
		}
	}
	return outcome
}

func (a *Adder) updateExisting(ctx context.Context, id int64, monitor string) error {
	doc, err := a.client.SeriesDocument(ctx, id)
	if err != nil {
		return err
	}
	applyMonitoring(doc, monitor)
	if err := a.client.UpdateSeries(ctx, id, doc); err != nil {
		return err
	}
	if a.settings.SearchMissing {
		return a.client.RunCommand(ctx, Command{Name: "MissingEpisodeSearch", SeriesID: id})
	}
	return nil
}

// MapPath converts a local path into the path Sonarr sees. Separators are
// normalised for the platform ("windows" uses backslashes), then the longest
// matching mapping prefix is replaced.
func MapPath(path string, mappings map[string]string, platform string) string {
	if len(mappings) == 0 {
		return path
	}
	if strings.EqualFold(platform, "windows") {
		path = strings.ReplaceAll(path, "/", `\`)
	} else {
		path = strings.ReplaceAll(path, `\`, "/")
	}
	prefixes := make([]string, 0, len(mappings))
	for prefix := range mappings {
		prefixes = append(prefixes, prefix)
	}
	slices.SortFunc(prefixes, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return mappings[prefix] + strings.TrimPrefix(path, prefix)
		}
	}
	return path
}

// Counts tallies outcomes by action.
func Counts(outcomes []Outcome) map[Action]int {
	counts := make(map[Action]int, 5)
	for _, o := range outcomes {
		counts[o.Action]++
	}
	return counts
}

// Errors joins the per-show errors.
func Errors(outcomes []Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}
