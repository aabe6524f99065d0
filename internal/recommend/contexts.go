package recommend

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"tvrecs/internal/cache"
	"tvrecs/internal/config"
	"tvrecs/internal/logging"
	"tvrecs/internal/services"
	"tvrecs/internal/services/tautulli"
	"tvrecs/internal/textutil"
)

const adminLabel = "admin"

// HistoryContext is one group of users profiled together.
type HistoryContext struct {
	// Key names the cache snapshot, for example "tautulli_alice_bob".
	Key     string
	Users   []string
	Watched cache.WatchedSet
}

// Label is the human-readable user list.
func (h HistoryContext) Label() string {
	return strings.Join(h.Users, ", ")
}

// historyContexts resolves the configured users and reads their watched shows.
// Any history failure aborts the run.
func (r *Runner) historyContexts(ctx context.Context) ([]HistoryContext, error) {
	ctx = services.WithPhase(ctx, "history")
	if r.deps.Tautulli != nil && r.cfg.TautulliEnabled() {
		return r.tautulliContexts(ctx)
	}
	return r.plexContexts(ctx)
}

func (r *Runner) tautulliContexts(ctx context.Context) ([]HistoryContext, error) {
	users, err := r.deps.Tautulli.ResolveUsers(ctx, r.cfg.Tautulli.Users)
	if err != nil {
		return nil, err
	}
	allUsers := len(r.cfg.Tautulli.Users) == 1 && strings.EqualFold(r.cfg.Tautulli.Users[0], tautulli.AllUsers)

	watched := make(map[int64]cache.WatchedSet, len(users))
	for _, user := range users {
		keys, err := r.deps.Tautulli.WatchedShowKeys(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		watched[user.ID] = keySet(keys)
		logging.WithContext(ctx, r.logger).Info("watch history loaded",
			logging.String("source", "tautulli"),
			logging.String("user", user.Username),
			logging.Int("shows", len(keys)),
		)
	}

	if r.cfg.History.Strategy == config.HistoryPerUser {
		out := make([]HistoryContext, 0, len(users))
		for _, user := range users {
			out = append(out, HistoryContext{
				Key:     textutil.ContextKey("tautulli", user.Username),
				Users:   []string{user.Username},
				Watched: watched[user.ID],
			})
		}
		return out, nil
	}

	merged := HistoryContext{Watched: cache.NewWatchedSet()}
	for _, user := range users {
		merged.Users = append(merged.Users, user.Username)
		for id := range watched[user.ID] {
			merged.Watched.Add(id)
		}
	}
	if allUsers {
		merged.Key = textutil.ContextKey("tautulli", tautulli.AllUsers)
	} else {
		names := slices.Clone(merged.Users)
		slices.Sort(names)
		merged.Key = textutil.ContextKey("tautulli", names...)
	}
	return []HistoryContext{merged}, nil
}

func (r *Runner) plexContexts(ctx context.Context) ([]HistoryContext, error) {
	users := r.cfg.Plex.ManagedUsers
	labels := users
	if len(users) == 0 {
		users = []string{""}
		labels = []string{adminLabel}
	}

	perUser := make([]cache.WatchedSet, len(users))
	for i, user := range users {
		keys, err := r.deps.History(user).WatchedShowKeys(ctx)
		if err != nil {
			return nil, err
		}
		perUser[i] = keySet(keys)
		logging.WithContext(ctx, r.logger).Info("watch history loaded",
			logging.String("source", "plex"),
			logging.String("user", labels[i]),
			logging.Int("shows", len(keys)),
		)
	}

	if r.cfg.History.Strategy == config.HistoryPerUser || len(users) == 1 {
		out := make([]HistoryContext, len(users))
		for i := range users {
			out[i] = HistoryContext{
				Key:     textutil.ContextKey("plex", labels[i]),
				Users:   []string{labels[i]},
				Watched: perUser[i],
			}
		}
		return out, nil
	}

	merged := HistoryContext{Users: slices.Clone(labels), Watched: cache.NewWatchedSet()}
	for _, set := range perUser {
		for id := range set {
			merged.Watched.Add(id)
		}
	}
	names := slices.Clone(labels)
	slices.Sort(names)
	merged.Key = textutil.ContextKey("plex", names...)
	return []HistoryContext{merged}, nil
}

func keySet(keys []int64) cache.WatchedSet {
	set := cache.NewWatchedSet()
	for _, k := range keys {
		if k > 0 {
			set.Add(strconv.FormatInt(k, 10))
		}
	}
	return set
}
