package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tvrecs/internal/retry"
	"tvrecs/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckServiceSummaries(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		passed bool
		detail string
	}{
		{name: "ok", passed: true, detail: "Reachable"},
		{name: "unauthorized", err: &retry.StatusError{Op: "x", StatusCode: http.StatusUnauthorized}, detail: "auth failed"},
		{name: "timeout", err: context.DeadlineExceeded, detail: "timed out"},
		{name: "other", err: errors.New("connection refused"), detail: "connection refused"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckService(context.Background(), Probe{
				Name:  "svc",
				Check: func(context.Context) error { return tc.err },
			})
			if result.Passed != tc.passed || !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("got %+v, want passed=%v detail~%q", result, tc.passed, tc.detail)
			}
		})
	}
}

func TestServiceProbesFollowConfiguration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	names := probeNames(ServiceProbes(cfg))
	if strings.Join(names, ",") != "Plex" {
		t.Fatalf("expected only Plex, got %v", names)
	}

	cfg = testsupport.NewConfig(t,
		testsupport.WithTautulli("http://127.0.0.1:1", "all"),
		testsupport.WithTMDB("http://127.0.0.1:1"),
		testsupport.WithTrakt("http://127.0.0.1:1"),
		testsupport.WithSonarr("http://127.0.0.1:1"),
	)
	names = probeNames(ServiceProbes(cfg))
	if strings.Join(names, ",") != "Plex,Tautulli,TMDB,Trakt,Sonarr" {
		t.Fatalf("unexpected probes %v", names)
	}
}

func TestRunAllChecksSonarrStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/v3/system/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"version":"4.0.0"}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSonarr(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	var sonarrProbe []Probe
	for _, p := range ServiceProbes(cfg) {
		if p.Name == "Sonarr" {
			sonarrProbe = append(sonarrProbe, p)
		}
	}
	results := RunAll(context.Background(), cfg, sonarrProbe)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("check %s failed: %s", r.Name, r.Detail)
		}
	}
}

func probeNames(probes []Probe) []string {
	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.Name
	}
	return names
}
