package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// WhisperSampleRate is the only capture rate the recognizer accepts.
const WhisperSampleRate = 16000

// Config holds all application configuration.
type Config struct {
	Hotkey      HotkeyConfig      `yaml:"hotkey" toml:"hotkey"`
	Audio       AudioConfig       `yaml:"audio" toml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition" toml:"recognition"`
	ModelsDir   string            `yaml:"models_dir" toml:"models_dir"`
	Inject      InjectConfig      `yaml:"inject" toml:"inject"`
	Widget      WidgetConfig      `yaml:"widget" toml:"widget"`
	UI          UIConfig          `yaml:"ui" toml:"ui"`
	LogLevel    string            `yaml:"log_level" toml:"log_level"`
	LogDir      string            `yaml:"log_dir" toml:"log_dir"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Key  string `yaml:"key" toml:"key"`
	Mode string `yaml:"mode" toml:"mode"` // "hold" or "toggle"
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate  uint32        `yaml:"sample_rate" toml:"sample_rate"`
	Channels    uint32        `yaml:"channels" toml:"channels"`
	FrameMS     uint32        `yaml:"frame_ms" toml:"frame_ms"`
	QueueSize   int           `yaml:"queue_size" toml:"queue_size"`
	MinDuration time.Duration `yaml:"min_duration" toml:"min_duration"`
	// SaveDir keeps a WAV copy of every recording when set.
	SaveDir string `yaml:"save_dir" toml:"save_dir"`
}

// RecognitionConfig holds model and decoding settings.
type RecognitionConfig struct {
	Model            string   `yaml:"model" toml:"model"`
	TranslateModel   string   `yaml:"translate_model" toml:"translate_model"`
	Translate        bool     `yaml:"translate" toml:"translate"`
	Language         string   `yaml:"language" toml:"language"` // "auto" detects
	Device           string   `yaml:"device" toml:"device"`
	ComputeType      string   `yaml:"compute_type" toml:"compute_type"`
	BeamSize         int      `yaml:"beam_size" toml:"beam_size"`
	Temperature      float32  `yaml:"temperature" toml:"temperature"`
	Threads          uint     `yaml:"threads" toml:"threads"` // 0 lets whisper.cpp decide
	VAD              bool     `yaml:"vad" toml:"vad"`
	VADThresholdDBFS float64  `yaml:"vad_threshold_dbfs" toml:"vad_threshold_dbfs"`
	CustomTerms      []string `yaml:"custom_terms" toml:"custom_terms"`
	InitialPrompt    string   `yaml:"initial_prompt" toml:"initial_prompt"`
	AutoDownload     bool     `yaml:"auto_download" toml:"auto_download"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method           string        `yaml:"method" toml:"method"` // "paste" or "type"
	FocusDelay       time.Duration `yaml:"focus_delay" toml:"focus_delay"`
	PasteDelay       time.Duration `yaml:"paste_delay" toml:"paste_delay"`
	RestoreClipboard bool          `yaml:"restore_clipboard" toml:"restore_clipboard"`
}

// WidgetConfig holds floating indicator settings.
type WidgetConfig struct {
	Size             int           `yaml:"size" toml:"size"`
	HideInFullscreen bool          `yaml:"hide_in_fullscreen" toml:"hide_in_fullscreen"`
	FullscreenPoll   time.Duration `yaml:"fullscreen_poll" toml:"fullscreen_poll"`
	StartMinimized   bool          `yaml:"start_minimized" toml:"start_minimized"`
}

// UIConfig selects the UI shell.
type UIConfig struct {
	Shell string `yaml:"shell" toml:"shell"` // "fyne" or "tray"
}

// defaultCustomTerms bias the decoder towards developer vocabulary.
var defaultCustomTerms = []string{
	"VS Code", "Visual Studio Code", "Git", "GitHub", "Python", "JavaScript",
	"TypeScript", "Go", "terminal", "commit", "push", "pull", "merge", "branch",
	"npm", "Docker", "API", "JSON", "SQL", "README", "config", "Whisper",
	"widget", "hotkey", "Ctrl", "Shift", "Alt",
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pushtalk")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the directory holding models and logs.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "pushtalk")
	}
	return filepath.Join(home, ".local", "share", "pushtalk")
}

// DefaultModelsDir returns the default directory for downloaded models.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// DefaultLogDir returns the default directory for the error log.
func DefaultLogDir() string {
	return filepath.Join(DefaultDataDir(), "logs")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Key:  "f9",
			Mode: "hold",
		},
		Audio: AudioConfig{
			SampleRate: WhisperSampleRate,
			Channels:   1,
			FrameMS:    30,
			QueueSize:  256,
		},
		Recognition: RecognitionConfig{
			Model:            "large-v3-turbo",
			TranslateModel:   "medium",
			Language:         "auto",
			Device:           "auto",
			ComputeType:      "default",
			BeamSize:         5,
			Temperature:      0.3,
			VAD:              true,
			VADThresholdDBFS: -50,
			CustomTerms:      append([]string(nil), defaultCustomTerms...),
			AutoDownload:     true,
		},
		ModelsDir: DefaultModelsDir(),
		Inject: InjectConfig{
			Method:     "paste",
			FocusDelay: 100 * time.Millisecond,
			PasteDelay: 50 * time.Millisecond,
		},
		Widget: WidgetConfig{
			Size:             150,
			HideInFullscreen: true,
			FullscreenPoll:   time.Second,
		},
		UI: UIConfig{
			Shell: "fyne",
		},
		LogLevel: "info",
		LogDir:   DefaultLogDir(),
	}
}

// Load reads and parses a YAML or TOML config file, chosen by extension.
// Missing fields are filled with defaults. Tilde (~) in paths is expanded to
// the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ModelsDir = expandTilde(cfg.ModelsDir)
	cfg.LogDir = expandTilde(cfg.LogDir)
	cfg.Audio.SaveDir = expandTilde(cfg.Audio.SaveDir)

	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
// The file is written to a temp file first and renamed into place.
func (c *Config) Save(path string) error {
	data, err := c.marshal(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving config file: %w", err)
	}
	return nil
}

func (c *Config) marshal(path string) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default config to DefaultConfigPath. If a file
// already exists it is left untouched and ("", nil) is returned.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	content := append([]byte(configHeader), data...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

const configHeader = `# pushtalk configuration
# Hold the hotkey to dictate; release to transcribe and paste.
# Toggle translate mode from the tray menu to render speech as English.

`

// ActiveModel returns the model name required by the current translate mode.
func (c *Config) ActiveModel() string {
	if c.Recognition.Translate {
		return c.Recognition.TranslateModel
	}
	return c.Recognition.Model
}

// InitialPrompt returns the decoder priming phrase. An explicit
// initial_prompt wins over custom_terms.
func (c *Config) InitialPrompt() string {
	if p := strings.TrimSpace(c.Recognition.InitialPrompt); p != "" {
		return p
	}
	return strings.Join(c.Recognition.CustomTerms, ", ")
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Hotkey.Key) == "" {
		return fmt.Errorf("hotkey.key must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	// whisper.cpp decodes 16 kHz mono only and nothing resamples on the way.
	if c.Audio.SampleRate != WhisperSampleRate {
		return fmt.Errorf("audio.sample_rate must be %d, got %d", WhisperSampleRate, c.Audio.SampleRate)
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if c.Audio.FrameMS == 0 {
		return fmt.Errorf("audio.frame_ms must be > 0")
	}

	if c.Audio.QueueSize <= 0 {
		return fmt.Errorf("audio.queue_size must be > 0")
	}

	if c.Audio.MinDuration < 0 {
		return fmt.Errorf("audio.min_duration must be >= 0")
	}

	if err := c.Recognition.validate(); err != nil {
		return err
	}

	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir must not be empty")
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if c.Inject.FocusDelay < 0 || c.Inject.PasteDelay < 0 {
		return fmt.Errorf("inject delays must be >= 0")
	}

	if c.Widget.Size <= 0 {
		return fmt.Errorf("widget.size must be > 0")
	}

	if c.Widget.HideInFullscreen && c.Widget.FullscreenPoll <= 0 {
		return fmt.Errorf("widget.fullscreen_poll must be > 0 when hide_in_fullscreen is set")
	}

	switch c.UI.Shell {
	case "fyne", "tray":
	default:
		return fmt.Errorf("ui.shell must be \"fyne\" or \"tray\", got %q", c.UI.Shell)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

func (r *RecognitionConfig) validate() error {
	if r.Model == "" {
		return fmt.Errorf("recognition.model must not be empty")
	}
	if r.TranslateModel == "" {
		return fmt.Errorf("recognition.translate_model must not be empty")
	}
	if r.Language == "" {
		return fmt.Errorf("recognition.language must not be empty (use \"auto\" to detect)")
	}
	switch r.Device {
	case "auto", "cpu", "cuda", "metal":
	default:
		return fmt.Errorf("recognition.device must be auto, cpu, cuda, or metal, got %q", r.Device)
	}
	if r.BeamSize < 1 {
		return fmt.Errorf("recognition.beam_size must be >= 1")
	}
	if r.Temperature < 0 {
		return fmt.Errorf("recognition.temperature must be >= 0")
	}
	if r.VAD && r.VADThresholdDBFS >= 0 {
		return fmt.Errorf("recognition.vad_threshold_dbfs must be negative, got %v", r.VADThresholdDBFS)
	}
	return nil
}

// ParseLogLevel maps a config log level to a zap level. Unknown values
// fall back to info.
func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
