package transcribe

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/audio"
	"github.com/chaz8081/pushtalk/internal/models"
)

// Loader opens an engine for a local model file.
type Loader func(path string) (Engine, error)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	ModelsDir    string
	AutoDownload bool
	Logger       *zap.Logger
	// Loader defaults to LoadWhisper.
	Loader Loader
}

// Manager holds at most one loaded model. Inference runs under the read
// lock; swapping takes the write lock and so waits for in-flight calls.
type Manager struct {
	mu     sync.RWMutex
	name   string
	engine Engine

	dir      string
	auto     bool
	log      *zap.Logger
	loader   Loader
	resolve  func(ctx context.Context, ref string) (models.Resolved, error)
	freeHeap func()
}

// NewManager returns a Manager with no model loaded.
func NewManager(opts ManagerOptions) *Manager {
	m := &Manager{
		dir:    opts.ModelsDir,
		auto:   opts.AutoDownload,
		log:    opts.Logger,
		loader: opts.Loader,
		freeHeap: func() {
			runtime.GC()
			debug.FreeOSMemory()
		},
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.loader == nil {
		m.loader = LoadWhisper
	}
	m.resolve = func(ctx context.Context, ref string) (models.Resolved, error) {
		return models.Ensure(ctx, ref, m.dir, m.auto, m.log)
	}
	return m
}

// Current returns the name of the loaded model, or "" if none.
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Load makes name the loaded model. It is a no-op when name is already
// loaded. Otherwise the previous model is released before the new one is
// resolved (downloading if allowed) and opened, so two models are never
// resident together. When translate is set the model must be multilingual.
//
// On failure no model is loaded.
func (m *Manager) Load(ctx context.Context, name string, translate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine != nil && m.name == name {
		if translate && !m.engine.Multilingual() {
			return fmt.Errorf("transcribe: model %s is English-only and cannot translate", name)
		}
		return nil
	}

	m.unloadLocked()

	res, err := m.resolve(ctx, name)
	if err != nil {
		return fmt.Errorf("transcribe: resolve model %s: %w", name, err)
	}

	start := time.Now()
	engine, err := m.loader(res.Path)
	if err != nil {
		return err
	}

	if translate && !engine.Multilingual() {
		_ = engine.Close()
		m.freeHeap()
		return fmt.Errorf("transcribe: model %s is English-only and cannot translate", name)
	}
	if translate && !res.IsCustomPath && !res.Translates {
		m.log.Warn("model was not trained for translation; output may stay in the source language",
			zap.String("model", name))
	}

	m.name = name
	m.engine = engine
	m.log.Info("model loaded",
		zap.String("model", name),
		zap.String("path", res.Path),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Transcribe runs one inference call on the loaded model. With VAD enabled,
// silence is gated out first; if nothing remains the model is not invoked.
func (m *Manager) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if opts.VAD {
		rate := opts.SampleRate
		if rate == 0 {
			rate = 16000
		}
		before := len(samples)
		samples = audio.FilterSilence(samples, rate, opts.VADThresholdDBFS)
		m.log.Debug("vad filtered audio", zap.Int("before", before), zap.Int("after", len(samples)))
		if len(samples) == 0 {
			return Result{}, nil
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.engine == nil {
		return Result{}, ErrNoModel
	}

	start := time.Now()
	res, err := m.engine.Transcribe(samples, opts)
	if err != nil {
		return Result{}, err
	}

	m.log.Debug("transcription finished",
		zap.String("model", m.name),
		zap.Bool("translate", opts.Translate),
		zap.Int("segments", len(res.Segments)),
		zap.String("language", LanguageName(res.Language)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Close releases the loaded model.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadLocked()
	return nil
}

func (m *Manager) unloadLocked() {
	if m.engine == nil {
		return
	}
	if err := m.engine.Close(); err != nil {
		m.log.Warn("closing model", zap.String("model", m.name), zap.Error(err))
	}
	m.log.Info("model unloaded", zap.String("model", m.name))
	m.engine = nil
	m.name = ""
	m.freeHeap()
}
