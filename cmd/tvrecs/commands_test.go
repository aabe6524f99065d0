package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"tvrecs/internal/media"
	"tvrecs/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "History source: plex (merged)")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestCacheStatusAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	mgr := testsupport.MustOpenCache(t, env.cfg, "plex_admin")
	if err := mgr.Save(); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("close cache: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("cache status: %v", err)
	}
	requireContains(t, out, "plex_admin")
	requireContains(t, out, "Trakt sync ledger: 0 episodes, last sync never")

	out, _, err = runCLI(t, []string{"cache", "clear", "plex_admin"}, env.configPath, "")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 cached context(s)")

	out, _, err = runCLI(t, []string{"cache", "status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("cache status after clear: %v", err)
	}
	requireContains(t, out, "No cached contexts")
}

func TestRecommendRendersLibraryPicks(t *testing.T) {
	env := setupCLITestEnv(t)
	stubDeps(t, []media.Show{
		{RatingKey: 1, Title: "Breaking Bad", Year: 2008, Genres: []string{"Drama"}, Studio: "AMC", AudienceRating: 9.5},
		{RatingKey: 2, Title: "Halt and Catch Fire", Year: 2014, Genres: []string{"Drama"}, Studio: "AMC", AudienceRating: 8.6,
			Summary: "A visionary, an engineer and a prodigy take on the personal computer industry."},
	}, []int64{1})

	out, _, err := runCLI(t, []string{"recommend", "--plex-only"}, env.configPath, "")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	requireContains(t, out, "Recommendations for admin")
	requireContains(t, out, "Profile: 1 watched shows (rebuilt, no snapshot)")
	requireContains(t, out, "Halt and Catch Fire (2014)")
	requireContains(t, out, "A visionary")
	if strings.Contains(out, "Breaking Bad (2008)") {
		t.Fatalf("watched show listed as recommendation:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"recommend", "--plex-only"}, env.configPath, "")
	if err != nil {
		t.Fatalf("second recommend: %v", err)
	}
	requireContains(t, out, "(cached, fingerprint match)")
}

func TestTraktCommandsRequireCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"trakt", "sync"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "trakt is not configured") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestTraktClearAbortsWithoutConfirmation(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTrakt("http://127.0.0.1:1"))
	out, _, err := runCLI(t, []string{"trakt", "clear"}, env.configPath, "n\n")
	if err != nil {
		t.Fatalf("trakt clear: %v", err)
	}
	requireContains(t, out, "Aborted")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath, "")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "all", want: []int{0, 1, 2}},
		{input: "none"},
		{input: ""},
		{input: "3, 1,3", want: []int{0, 2}},
		{input: "4", wantErr: true},
		{input: "x", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseSelection(tc.input, 3)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseSelection(%q) error = %v", tc.input, err)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("parseSelection(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestChoosePicksRepromptsOnInvalidInput(t *testing.T) {
	shows := []media.Show{{Title: "The Wire"}, {Title: "Deadwood"}}
	var out strings.Builder
	picked, err := choosePicks(strings.NewReader("9\n2\n"), &out, shows)
	if err != nil {
		t.Fatalf("choosePicks: %v", err)
	}
	if len(picked) != 1 || picked[0].Title != "Deadwood" {
		t.Fatalf("unexpected picks %+v", picked)
	}
	requireContains(t, out.String(), "invalid selection")
}

func TestStatusReportsDirectoriesAndPlex(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected unreachable Plex to fail the status command")
	}
	requireContains(t, out, "Cache directory:")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Plex:")
	requireContains(t, out, "[ERROR]")
}
