// Package session owns the push-to-talk state machine. A single loop
// goroutine consumes hotkey events, worker completions and translate-mode
// toggles; every state change is published to observers.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/audio"
	"github.com/chaz8081/pushtalk/internal/config"
	"github.com/chaz8081/pushtalk/internal/hotkey"
	"github.com/chaz8081/pushtalk/internal/inject"
	"github.com/chaz8081/pushtalk/internal/logging"
	"github.com/chaz8081/pushtalk/internal/transcribe"
)

var (
	// ErrBusy is returned when translate mode is toggled mid-recording.
	ErrBusy = errors.New("session: cannot switch models while recording")
	// ErrStopped is returned for requests made after Run has exited.
	ErrStopped = errors.New("session: not running")
)

// State is the session's recording state.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is what observers are told on every change.
type Status struct {
	State     State
	Translate bool
	Model     string
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start() error
	Stop() []float32
	SampleRate() uint32
}

// Engine transcribes audio and swaps the loaded model.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, opts transcribe.Options) (transcribe.Result, error)
	Load(ctx context.Context, name string, translate bool) error
	Current() string
}

// Sink delivers text to the window captured at recording start.
type Sink interface {
	Deliver(focus inject.Focus, text string) error
}

// Options wires a Session to its collaborators.
type Options struct {
	Store    *config.Store
	Recorder Recorder
	Engine   Engine
	Sink     Sink
	// CaptureFocus returns the foreground window; nil skips focus restore.
	CaptureFocus func() inject.Focus
	Logger       *zap.Logger
}

type toggleRequest struct {
	reply chan error
}

// Session is the recording state machine.
type Session struct {
	store    *config.Store
	recorder Recorder
	engine   Engine
	sink     Sink
	capture  func() inject.Focus
	log      *zap.Logger

	toggles  chan toggleRequest
	finished chan string
	stopped  chan struct{}
	stopOnce sync.Once

	obsMu     sync.Mutex
	observers []func(Status)
	last      Status

	// owned by the loop goroutine
	state    State
	inflight int
	focus    inject.Focus
	cycle    string
	started  time.Time
	workers  sync.WaitGroup
}

// New creates a Session. Call Run to start it.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	capture := opts.CaptureFocus
	if capture == nil {
		capture = func() inject.Focus { return nil }
	}
	s := &Session{
		store:    opts.Store,
		recorder: opts.Recorder,
		engine:   opts.Engine,
		sink:     opts.Sink,
		capture:  capture,
		log:      log,
		toggles:  make(chan toggleRequest),
		finished: make(chan string),
		stopped:  make(chan struct{}),
	}
	s.last = Status{State: Idle, Translate: s.store.Translate()}
	return s
}

// Subscribe registers fn to be called on the loop goroutine after every
// state change. fn must not block.
func (s *Session) Subscribe(fn func(Status)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, fn)
}

// Status returns the most recently published status.
func (s *Session) Status() Status {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	return s.last
}

// Run processes events until ctx is cancelled or events is closed.
func (s *Session) Run(ctx context.Context, events <-chan hotkey.Event) error {
	defer logging.LogPanic(s.log, "session loop")
	defer s.stopOnce.Do(func() { close(s.stopped) })

	s.publish()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case ev, ok := <-events:
			if !ok {
				s.shutdown()
				return nil
			}
			switch ev.Type {
			case hotkey.EventStart:
				s.startRecording()
			case hotkey.EventStop:
				s.stopRecording(ctx)
			}

		case id := <-s.finished:
			s.workerDone(id)

		case req := <-s.toggles:
			req.reply <- s.toggleTranslate(ctx)
		}
	}
}

// Wait blocks until every transcription worker has returned.
func (s *Session) Wait() {
	s.workers.Wait()
}

// ToggleTranslate flips translate mode and swaps to the matching model.
// It blocks until the swap finishes. If the new model cannot be loaded
// the previous mode and model are restored.
func (s *Session) ToggleTranslate(ctx context.Context) error {
	req := toggleRequest{reply: make(chan error, 1)}
	select {
	case s.toggles <- req:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) startRecording() {
	if s.state == Recording {
		s.log.Debug("start ignored, already recording", zap.String("cycle", s.cycle))
		return
	}

	focus := s.capture()
	if err := s.recorder.Start(); err != nil {
		s.log.Error("start recording", zap.Error(err))
		return
	}

	s.cycle = uuid.NewString()
	s.focus = focus
	s.started = time.Now()
	s.setState(Recording)
	s.log.Info("recording", zap.String("cycle", s.cycle))
}

func (s *Session) stopRecording(ctx context.Context) {
	if s.state != Recording {
		return
	}

	samples := s.recorder.Stop()
	log := s.log.With(zap.String("cycle", s.cycle))
	held := time.Since(s.started)

	cfg := s.store.Get()
	rate := s.recorder.SampleRate()
	if rate == 0 {
		rate = cfg.Audio.SampleRate
	}
	audioLen := time.Duration(len(samples)) * time.Second / time.Duration(max(rate, 1))

	if len(samples) == 0 {
		log.Info("no audio captured", zap.Duration("held", held))
		s.settle()
		return
	}
	if minLen := cfg.Audio.MinDuration; minLen > 0 && audioLen < minLen {
		log.Info("recording too short, discarded",
			zap.Duration("audio", audioLen), zap.Duration("min", minLen))
		s.settle()
		return
	}

	log.Info("transcribing", zap.Duration("audio", audioLen), zap.Int("samples", len(samples)))

	opts := transcribe.OptionsFromConfig(&cfg)
	opts.SampleRate = rate

	s.inflight++
	s.workers.Add(1)
	s.setState(Processing)
	go s.work(context.WithoutCancel(ctx), s.cycle, samples, s.focus, opts, cfg.Audio.SaveDir)
	s.focus = nil
}

// work runs one transcription cycle. Its completion is always reported
// back to the loop, even on panic.
func (s *Session) work(ctx context.Context, id string, samples []float32, focus inject.Focus, opts transcribe.Options, saveDir string) {
	defer s.workers.Done()
	defer s.reportDone(id)
	log := s.log.With(zap.String("cycle", id))
	defer logging.LogPanic(log, "transcription worker")

	if saveDir != "" {
		s.saveRecording(log, saveDir, id, samples, opts.SampleRate)
	}

	start := time.Now()
	res, err := s.engine.Transcribe(ctx, samples, opts)
	if err != nil {
		log.Error("transcription failed", zap.Error(err))
		return
	}
	if res.Empty() {
		log.Info("nothing recognized", zap.Duration("took", time.Since(start)))
		return
	}

	log.Info("recognized",
		zap.String("text", res.Text),
		zap.String("language", transcribe.LanguageName(res.Language)),
		zap.Bool("translate", opts.Translate),
		zap.Duration("took", time.Since(start)))

	if err := s.sink.Deliver(focus, res.Text); err != nil {
		log.Error("delivering text", zap.Error(err))
	}
}

func (s *Session) reportDone(id string) {
	select {
	case s.finished <- id:
	case <-s.stopped:
	}
}

func (s *Session) saveRecording(log *zap.Logger, dir, id string, samples []float32, rate uint32) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("create save dir", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%s.wav", time.Now().Format("20060102-150405"), id[:8])
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, samples, rate); err != nil {
		log.Warn("save recording", zap.Error(err))
		return
	}
	log.Debug("recording saved", zap.String("path", path))
}

func (s *Session) workerDone(id string) {
	s.inflight--
	s.log.Debug("worker finished", zap.String("cycle", id), zap.Int("inflight", s.inflight))
	if s.inflight == 0 && s.state == Processing {
		s.setState(Idle)
	}
}

func (s *Session) toggleTranslate(ctx context.Context) error {
	if s.state == Recording {
		return ErrBusy
	}

	cur := s.store.Translate()
	next := !cur
	cfg := s.store.Get()
	cfg.Recognition.Translate = cur
	prevModel := cfg.ActiveModel()
	cfg.Recognition.Translate = next
	nextModel := cfg.ActiveModel()

	s.setState(Processing)
	s.log.Info("switching translate mode",
		zap.Bool("translate", next),
		zap.String("from", prevModel),
		zap.String("to", nextModel))

	if err := s.engine.Load(ctx, nextModel, next); err != nil {
		s.log.Error("model switch failed, restoring previous model",
			zap.String("model", nextModel), zap.Error(err))
		if rerr := s.engine.Load(ctx, prevModel, cur); rerr != nil {
			s.log.Error("restoring previous model", zap.String("model", prevModel), zap.Error(rerr))
		}
		s.settleAndPublish()
		return fmt.Errorf("session: switch to %s: %w", nextModel, err)
	}

	if err := s.store.SetTranslate(next); err != nil {
		s.log.Warn("translate mode not persisted", zap.Error(err))
	}
	s.settleAndPublish()
	return nil
}

// settleAndPublish is settle, but observers are told even when the state
// is unchanged so they pick up a new translate mode or model.
func (s *Session) settleAndPublish() {
	target := Idle
	if s.inflight > 0 {
		target = Processing
	}
	if s.state != target {
		s.setState(target)
		return
	}
	s.publish()
}

// settle leaves recording or processing once no workers are in flight.
func (s *Session) settle() {
	if s.inflight > 0 {
		s.setState(Processing)
		return
	}
	s.setState(Idle)
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debug("state", zap.Stringer("from", s.state), zap.Stringer("to", st))
	s.state = st
	s.publish()
}

func (s *Session) publish() {
	st := Status{State: s.state, Translate: s.store.Translate(), Model: s.engine.Current()}

	s.obsMu.Lock()
	s.last = st
	obs := append([]func(Status)(nil), s.observers...)
	s.obsMu.Unlock()

	for _, fn := range obs {
		fn(st)
	}
}

func (s *Session) shutdown() {
	if s.state == Recording {
		_ = s.recorder.Stop()
		s.log.Info("recording aborted on shutdown", zap.String("cycle", s.cycle))
	}
}
