package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"tvrecs/internal/config"
	"tvrecs/internal/logging"
	"tvrecs/internal/recommend"
)

// wireDeps builds the service clients of a run. Tests replace it with fakes.
var wireDeps = recommend.Wire

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// session is the logger and runner of one command invocation.
type session struct {
	cfg    *config.Config
	log    *logging.Logger
	runner *recommend.Runner
}

func (s *session) Close() {
	if s.log != nil {
		_ = s.log.Close()
	}
}

// newSession builds the run logger, prunes old run logs and wires the runner.
func (c *commandContext) newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	log, err := logging.NewFromConfig(cfg, now)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.CleanupOldLogs(log.Logger, logging.RetentionPolicy{
		MaxAgeDays: cfg.Logging.RetentionDays,
		KeepFiles:  cfg.Logging.KeepLogs,
	}, now, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logging.LogFilePrefix + "*.log",
		Exclude: []string{log.FilePath},
	})
	if warning := cfg.WeightWarning(); warning != "" {
		logging.WarnWithContext(log.Logger, "category weights are unbalanced", "weights_unbalanced",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "adjust the [weights] section to sum to 1.0"),
			logging.String(logging.FieldImpact, "scores are not comparable across configurations"),
		)
	}

	deps, err := wireDeps(cfg, log.Logger)
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	deps.Progress = newProgressFactory(cmd.ErrOrStderr())
	return &session{
		cfg:    cfg,
		log:    log,
		runner: recommend.NewRunner(cfg, log.Logger, deps),
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
