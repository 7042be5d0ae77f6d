package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/config"
	"github.com/chaz8081/pushtalk/internal/logging"
	"github.com/chaz8081/pushtalk/internal/transcribe"
)

type appState struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	noProgress bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	out      io.Writer

	// loader opens model files; tests swap in a fake engine.
	loader transcribe.Loader
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&appState{out: os.Stdout, loader: transcribe.LoadWhisper})
}

func newRootCmdWith(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pushtalk",
		Short:         "Push-to-talk dictation with whisper.cpp",
		Long:          "Hold the hotkey to record, release to transcribe, and the text is pasted into the window you were using.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			app.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDictation(cmd.Context())
		},
	}

	bindGlobalFlags(cmd, app)

	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))

	return cmd
}

func bindGlobalFlags(cmd *cobra.Command, app *appState) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Path to config file (default: ~/.config/pushtalk/config.yaml)")
	flags.StringVar(&app.logLevel, "log-level", "", "Override log_level: debug|info|warn|error")
	flags.BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", false, "Disable download progress bars")
}

// setup loads and validates the config, then builds the logger from it.
func (a *appState) setup() error {
	cfg, source, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level: config.ParseLogLevel(cfg.LogLevel),
		JSON:  a.jsonLogs,
		Dir:   cfg.LogDir,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	if source == "" {
		logger.Debug("no config file found, using defaults")
	} else {
		logger.Debug("config loaded", zap.String("path", source))
	}
	return nil
}

func (a *appState) teardown() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

// storePath is where translate-mode changes are persisted.
func (a *appState) storePath() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config from path, or falls back to the default
// config path, or uses built-in defaults. source is "" for defaults.
func loadConfig(path string) (cfg *config.Config, source string, err error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, defaultPath, nil
	}

	return config.Default(), "", nil
}
