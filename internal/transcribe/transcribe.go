// Package transcribe runs whisper.cpp inference over captured audio.
// A Manager owns the single loaded model and swaps it when the
// translate mode changes.
package transcribe

import (
	"errors"
	"strings"
	"time"

	"github.com/chaz8081/pushtalk/internal/config"
)

// ErrNoModel is returned when inference is requested with no model loaded.
var ErrNoModel = errors.New("transcribe: no model loaded")

// Options are the per-call decoding parameters.
type Options struct {
	Translate     bool
	Language      string // "auto" detects
	InitialPrompt string
	BeamSize      int
	Temperature   float32
	Threads       uint

	VAD              bool
	VADThresholdDBFS float64
	SampleRate       uint32
}

// OptionsFromConfig builds decoding options for the config's current
// translate mode.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Translate:        cfg.Recognition.Translate,
		Language:         cfg.Recognition.Language,
		InitialPrompt:    cfg.InitialPrompt(),
		BeamSize:         cfg.Recognition.BeamSize,
		Temperature:      cfg.Recognition.Temperature,
		Threads:          cfg.Recognition.Threads,
		VAD:              cfg.Recognition.VAD,
		VADThresholdDBFS: cfg.Recognition.VADThresholdDBFS,
		SampleRate:       cfg.Audio.SampleRate,
	}
}

// Segment is one decoded span of speech.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Result is the outcome of one transcription call.
type Result struct {
	Text     string
	Language string // detected or requested language code
	Segments []Segment
}

// Empty reports whether there is nothing to paste.
func (r Result) Empty() bool {
	return r.Text == ""
}

// Engine runs inference on one loaded model.
type Engine interface {
	Transcribe(samples []float32, opts Options) (Result, error)
	// Multilingual reports whether the model can detect language and translate.
	Multilingual() bool
	Close() error
}

// joinSegments concatenates segment texts as whisper emits them, with their
// own leading spaces, and trims the result.
func joinSegments(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(b.String())
}
