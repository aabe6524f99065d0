package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"tvrecs/internal/retry"
	"tvrecs/internal/services/apiclient"
)

func TestGetAddsAuthAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apikey") != "secret" || r.URL.Query().Get("cmd") != "get_users" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing header")
		}
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	t.Cleanup(server.Close)

	client := apiclient.New("test", server.URL+"/", apiclient.WithQuery("apikey", "secret"), apiclient.WithHeader("X-Api-Key", "k"))
	var out struct{ Name string }
	if err := client.Get(context.Background(), "api/v2", url.Values{"cmd": {"get_users"}}, &out); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	policy := retry.New(3, time.Millisecond)
	client := apiclient.New("test", server.URL, apiclient.WithRetry(policy))
	if err := client.Post(context.Background(), "/x", map[string]int{"a": 1}, nil); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := apiclient.New("test", server.URL, apiclient.WithRetry(retry.New(3, time.Millisecond)))
	err := client.Get(context.Background(), "/x", nil, nil)
	if retry.StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", calls.Load())
	}
}
