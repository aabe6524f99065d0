package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tvrecs/internal/config"
	"tvrecs/internal/media"
	"tvrecs/internal/recommend"
	"tvrecs/internal/services/plex"
	"tvrecs/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "tvrecs", "config.toml")
	testsupport.WriteConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// stubDeps swaps the production wiring for in-memory sources.
func stubDeps(t *testing.T, shows []media.Show, watched []int64) {
	t.Helper()
	previous := wireDeps
	wireDeps = func(*config.Config, *slog.Logger) (recommend.Deps, error) {
		return recommend.Deps{
			Library: stubLibrary{shows: shows},
			History: func(string) recommend.PlexHistory { return stubHistory{keys: watched} },
		}, nil
	}
	t.Cleanup(func() { wireDeps = previous })
}

type stubLibrary struct{ shows []media.Show }

func (s stubLibrary) Shows(context.Context) ([]media.Show, error) { return s.shows, nil }
func (stubLibrary) AudioLanguage(context.Context, media.Show) (string, error) {
	return "en", nil
}
func (stubLibrary) Cast(context.Context, media.Show) ([]string, error) { return nil, nil }

type stubHistory struct{ keys []int64 }

func (s stubHistory) WatchedShowKeys(context.Context) ([]int64, error) { return s.keys, nil }
func (stubHistory) WatchedEpisodes(context.Context) ([]plex.Episode, error) {
	return nil, nil
}
