package sonarr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"tvrecs/internal/media"
	"tvrecs/internal/services"
	"tvrecs/internal/services/sonarr"
)

type fakeLookup struct {
	tvdb    map[string]int64
	seasons []int
	err     error
}

func (f fakeLookup) TVDBID(_ context.Context, show media.Show) (int64, error) {
	return f.tvdb[show.Title], nil
}

func (f fakeLookup) Seasons(context.Context, media.Show) ([]int, error) {
	return f.seasons, f.err
}

type fakeSonarr struct {
	t        *testing.T
	mu       sync.Mutex
	added    []map[string]any
	updated  map[string]any
	commands []map[string]any
	tagPosts int
}

func (f *fakeSonarr) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/system/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"version":"4.0.0"}`)
	})
	mux.HandleFunc("GET /api/v3/tag", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":3,"label":"other"}]`)
	})
	mux.HandleFunc("POST /api/v3/tag", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tagPosts++
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":9,"label":"tvrecs"}`)
	})
	mux.HandleFunc("GET /api/v3/qualityprofile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Any"},{"id":4,"name":"HD-1080p"}]`)
	})
	mux.HandleFunc("GET /api/v3/series", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":50,"tvdbId":500,"title":"Owned"}]`)
	})
	mux.HandleFunc("GET /api/v3/series/50", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":50,"tvdbId":500,"title":"Owned","path":"/tv/Owned","monitored":false,
			"seasons":[{"seasonNumber":0,"monitored":false},{"seasonNumber":1,"monitored":false,"statistics":{"episodeCount":8}},{"seasonNumber":2,"monitored":false}]}`)
	})
	mux.HandleFunc("PUT /api/v3/series/50", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&f.updated); err != nil {
			f.t.Errorf("decode update: %v", err)
		}
		_, _ = io.WriteString(w, `{}`)
	})
	mux.HandleFunc("POST /api/v3/series", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode add: %v", err)
		}
		f.mu.Lock()
		f.added = append(f.added, body)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":77,"tvdbId":1}`)
	})
	mux.HandleFunc("POST /api/v3/command", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode command: %v", err)
		}
		f.mu.Lock()
		f.commands = append(f.commands, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{}`)
	})
	return mux
}

func newAdder(t *testing.T, fake *fakeSonarr, lookup sonarr.Lookup, settings sonarr.Settings) *sonarr.Adder {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	client := sonarr.New(server.URL, "key", sonarr.Options{})
	return sonarr.NewAdder(client, lookup, settings, nil)
}

func TestAddNewAndExistingSeries(t *testing.T) {
	fake := &fakeSonarr{t: t}
	lookup := fakeLookup{tvdb: map[string]int64{"New Show": 100, "Owned": 500}, seasons: []int{1, 2, 3}}
	adder := newAdder(t, fake, lookup, sonarr.Settings{
		RootFolder:     "/mnt/tv",
		QualityProfile: "hd-1080p",
		MonitorOption:  sonarr.MonitorFirstSeason,
		SearchMissing:  true,
		Tag:            "tvrecs",
		PathMappings:   map[string]string{"/mnt": "/data", "/mnt/tv": "/media/series"},
	})

	outcomes, err := adder.Add(context.Background(), []media.Show{
		{Title: "New Show", Year: 2020},
		{Title: "Owned"},
		{Title: "Unknown"},
	})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	counts := sonarr.Counts(outcomes)
	if counts[sonarr.ActionAdded] != 1 || counts[sonarr.ActionUpdated] != 1 || counts[sonarr.ActionSkipped] != 1 {
		t.Fatalf("unexpected outcomes %+v", counts)
	}
	if fake.tagPosts != 1 {
		t.Fatalf("expected tag to be created once, got %d", fake.tagPosts)
	}

	if len(fake.added) != 1 {
		t.Fatalf("expected one add, got %d", len(fake.added))
	}
	added := fake.added[0]
	if added["rootFolderPath"] != "/media/series" || added["qualityProfileId"] != float64(4) {
		t.Fatalf("unexpected add payload %v", added)
	}
	seasons := added["seasons"].([]any)
	if len(seasons) != 3 || seasons[0].(map[string]any)["monitored"] != true || seasons[1].(map[string]any)["monitored"] != false {
		t.Fatalf("unexpected seasons %v", seasons)
	}
	if tags := added["tags"].([]any); len(tags) != 1 || tags[0] != float64(9) {
		t.Fatalf("unexpected tags %v", tags)
	}

	updatedSeasons := fake.updated["seasons"].([]any)
	if fake.updated["monitored"] != true || len(updatedSeasons) != 2 || fake.updated["path"] != "/tv/Owned" {
		t.Fatalf("unexpected update %v", fake.updated)
	}
	first := updatedSeasons[0].(map[string]any)
	if first["monitored"] != true || first["statistics"] == nil {
		t.Fatalf("expected first season monitored with statistics, got %v", first)
	}

	names := map[string]bool{}
	for _, cmd := range fake.commands {
		names[cmd["name"].(string)] = true
	}
	if !names["SeriesSearch"] || !names["MissingEpisodeSearch"] {
		t.Fatalf("expected both search commands, got %v", fake.commands)
	}
}

func TestAddFallsBackToAllWithoutSeasons(t *testing.T) {
	fake := &fakeSonarr{t: t}
	lookup := fakeLookup{tvdb: map[string]int64{"New Show": 100}, err: errors.New("tmdb down")}
	adder := newAdder(t, fake, lookup, sonarr.Settings{
		RootFolder:     "/tv",
		QualityProfile: "Any",
		MonitorOption:  sonarr.MonitorFirstSeason,
	})
	if _, err := adder.Add(context.Background(), []media.Show{{Title: "New Show"}}); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	opts := fake.added[0]["addOptions"].(map[string]any)
	if opts["monitor"] != sonarr.MonitorAll {
		t.Fatalf("expected monitor fallback to all, got %v", opts)
	}
	if len(fake.commands) != 0 {
		t.Fatalf("expected no search without search_missing, got %v", fake.commands)
	}
}

func TestAddUnknownQualityProfile(t *testing.T) {
	fake := &fakeSonarr{t: t}
	adder := newAdder(t, fake, fakeLookup{}, sonarr.Settings{QualityProfile: "4K"})
	_, err := adder.Add(context.Background(), []media.Show{{Title: "New Show"}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMapPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		mappings map[string]string
		platform string
		want     string
	}{
		{"no mappings", `/tv`, nil, "", `/tv`},
		{"longest prefix", "/mnt/tv/new", map[string]string{"/mnt": "/x", "/mnt/tv": "/y"}, "linux", "/y/new"},
		{"windows separators", "/mnt/tv", map[string]string{`\mnt`: `D:`}, "windows", `D:\tv`},
		{"unmatched", "/srv/tv", map[string]string{"/mnt": "/x"}, "", "/srv/tv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sonarr.MapPath(tt.path, tt.mappings, tt.platform); got != tt.want {
				t.Fatalf("MapPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewAppendsAPIPath(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	if err := sonarr.New(server.URL+"/", "key", sonarr.Options{}).Status(context.Background()); err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if path != "/api/v3/system/status" {
		t.Fatalf("unexpected path %q", path)
	}
	if err := sonarr.New(server.URL+"/sonarr/api/v3", "key", sonarr.Options{}).Status(context.Background()); err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if path != "/sonarr/api/v3/system/status" {
		t.Fatalf("unexpected path %q", path)
	}
}
