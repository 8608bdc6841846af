package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/michaelbrown/explorer/internal/config"
	"github.com/michaelbrown/explorer/internal/logging"
	"github.com/michaelbrown/explorer/internal/runner"
	"github.com/michaelbrown/explorer/internal/storage"
	"github.com/michaelbrown/explorer/internal/storage/sqlite"
)

// loadConfig loads the config and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if backendFlag != "" {
		cfg.Sandbox.Backend = backendFlag
	}
	return cfg, nil
}

// openStore opens the run journal, or a no-op store when it is disabled.
func openStore(cfg *config.Config) (storage.Store, error) {
	if !cfg.Journal.Enabled {
		return storage.Discard{}, nil
	}
	store, err := sqlite.Open(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return store, nil
}

// terminalLogger keeps per-run info logs out of interactive output unless
// --verbose is set.
func terminalLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Log
	if !verboseFlag {
		lc.Level = "warn"
	}
	return logging.New(lc)
}

// session bundles what the terminal commands need to execute snippets.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	runner *runner.Runner
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := terminalLogger(cfg)
	if err != nil {
		return nil, err
	}
	sb, err := cfg.NewSandbox()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: logger, runner: runner.New(sb, store, logger)}, nil
}

func (s *session) Close() {
	if err := s.runner.Store().Close(); err != nil {
		s.log.Warn("closing journal", zap.Error(err))
	}
	s.log.Sync()
}

// painter colors terminal output when the target is a terminal.
type painter struct{ enabled bool }

func newPainter(f *os.File) painter {
	fd := f.Fd()
	return painter{enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (p painter) paint(code, s string) string {
	if !p.enabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (p painter) red(s string) string  { return p.paint("31", s) }
func (p painter) gray(s string) string { return p.paint("90", s) }
func (p painter) cyan(s string) string { return p.paint("36", s) }
