package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"tvrecs/internal/identification/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchTVSendsYearAndKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search/tv" || q.Get("api_key") != "key" || q.Get("first_air_date_year") != "2008" || q.Get("language") != "en-US" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.SearchTV(context.Background(), "Breaking Bad", tmdb.SearchOptions{Year: 2008})
	if err != nil {
		t.Fatalf("SearchTV returned error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 1396 || resp.Results[0].Year() != 2008 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestSearchTVEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchTV(context.Background(), "  ", tmdb.SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestDetailEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/find/tt0903747", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("external_source") != "imdb_id" {
			t.Errorf("missing external_source")
		}
		_, _ = w.Write([]byte(`{"tv_results":[{"id":1396,"name":"Breaking Bad"}]}`))
	})
	mux.HandleFunc("/tv/1396", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1396,"original_language":"en","seasons":[{"season_number":0},{"season_number":1}]}`))
	})
	mux.HandleFunc("/tv/1396/keywords", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"name":"drug dealer"},{"name":" "},{"name":"new mexico"}]}`))
	})
	mux.HandleFunc("/tv/1396/credits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cast":[{"name":"Bryan Cranston","order":0},{"name":"Aaron Paul","order":1}]}`))
	})
	mux.HandleFunc("/tv/1396/external_ids", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"imdb_id":"tt0903747","tvdb_id":81189}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	found, err := client.FindByIMDb(ctx, "tt0903747")
	if err != nil || len(found) != 1 || found[0].ID != 1396 {
		t.Fatalf("FindByIMDb = %v, %v", found, err)
	}
	details, err := client.TVDetails(ctx, 1396)
	if err != nil || details.OriginalLanguage != "en" || len(details.Seasons) != 2 {
		t.Fatalf("TVDetails = %+v, %v", details, err)
	}
	keywords, err := client.Keywords(ctx, 1396)
	if err != nil || !reflect.DeepEqual(keywords, []string{"drug dealer", "new mexico"}) {
		t.Fatalf("Keywords = %v, %v", keywords, err)
	}
	cast, err := client.Credits(ctx, 1396)
	if err != nil || len(cast) != 2 || cast[0].Name != "Bryan Cranston" {
		t.Fatalf("Credits = %v, %v", cast, err)
	}
	ids, err := client.ExternalIDs(ctx, 1396)
	if err != nil || ids.TVDBID != 81189 {
		t.Fatalf("ExternalIDs = %+v, %v", ids, err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "", tmdb.WithBreaker(2, time.Hour))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for range 2 {
		if _, err := client.Keywords(context.Background(), 1); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	_, err = client.Keywords(context.Background(), 1)
	if !errors.Is(err, tmdb.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open breaker should skip the request, calls=%d", calls.Load())
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "", tmdb.WithBreaker(1, time.Hour))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for range 3 {
		_, err := client.TVDetails(context.Background(), 42)
		if errors.Is(err, tmdb.ErrUnavailable) {
			t.Fatal("404 responses must not open the breaker")
		}
	}
}
