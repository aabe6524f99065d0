package recommend

import (
	"context"
	"errors"
	"net/http"

	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/retry"
	"tvrecs/internal/services"
	"tvrecs/internal/services/sonarr"
)

// ErrSonarrDisabled is returned by AddToSonarr when Sonarr is not enabled.
var ErrSonarrDisabled = errors.New("sonarr is not enabled")

// AddToSonarr forwards picked suggestions to Sonarr.
func (r *Runner) AddToSonarr(ctx context.Context, shows []media.Show) ([]sonarr.Outcome, error) {
	if r.deps.Sonarr == nil {
		return nil, ErrSonarrDisabled
	}
	ctx = services.WithPhase(ctx, "sonarr")
	adder := sonarr.NewAdder(r.deps.Sonarr, sonarrLookup{tmdb: r.deps.TMDB, trakt: r.deps.Trakt}, sonarr.Settings{
		RootFolder:     r.cfg.Sonarr.RootFolder,
		QualityProfile: r.cfg.Sonarr.QualityProfile,
		MonitorOption:  r.cfg.Sonarr.MonitorOption,
		SearchMissing:  r.cfg.Sonarr.SearchMissing,
		Tag:            r.cfg.Sonarr.Tag,
		PathMappings:   r.cfg.Sonarr.PathMappings,
		Platform:       r.cfg.Sonarr.Platform,
	}, logging.WithContext(ctx, r.logger))

	outcomes, err := adder.Add(ctx, shows)
	counts := sonarr.Counts(outcomes)
	if r.deps.Notifier != nil {
		if nerr := r.deps.Notifier.NotifySonarr(ctx, counts[sonarr.ActionAdded], counts[sonarr.ActionUpdated], counts[sonarr.ActionFailed]); nerr != nil {
			logging.WithContext(ctx, r.logger).Debug("sonarr notification failed", logging.Error(nerr))
		}
	}
	return outcomes, err
}

// sonarrLookup resolves TVDB ids and seasons through Trakt and TMDB.
type sonarrLookup struct {
	tmdb  tmdb.Searcher
	trakt SuggestionSource
}

func (l sonarrLookup) TVDBID(ctx context.Context, show media.Show) (int64, error) {
	if show.TVDBID > 0 {
		return show.TVDBID, nil
	}
	if l.trakt != nil {
		found, ok, err := l.trakt.FindShow(ctx, show.Title, show.Year)
		if err != nil && services.IsFatal(err) {
			return 0, err
		}
		if ok {
			if found.IDs.TVDB > 0 {
				return found.IDs.TVDB, nil
			}
			if show.TMDBID == 0 {
				show.TMDBID = found.IDs.TMDB
			}
		}
	}
	if l.tmdb == nil || show.TMDBID <= 0 {
		return 0, nil
	}
	ids, err := l.tmdb.ExternalIDs(ctx, show.TMDBID)
	if err != nil {
		if retry.StatusCode(err) == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	return ids.TVDBID, nil
}

func (l sonarrLookup) Seasons(ctx context.Context, show media.Show) ([]int, error) {
	if l.tmdb == nil || show.TMDBID <= 0 {
		return nil, nil
	}
	details, err := l.tmdb.TVDetails(ctx, show.TMDBID)
	if err != nil {
		return nil, err
	}
	seasons := make([]int, 0, len(details.Seasons))
	for _, s := range details.Seasons {
		if s.SeasonNumber > 0 {
			seasons = append(seasons, s.SeasonNumber)
		}
	}
	return seasons, nil
}
