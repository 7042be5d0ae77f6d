package transcribe

import (
	"errors"
	"fmt"
	"io"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperEngine wraps a whisper.cpp model. whisper_full is not safe to run
// concurrently on one model, so Process calls are serialized.
type whisperEngine struct {
	mu    sync.Mutex
	model whisper.Model
}

// LoadWhisper loads a ggml model file. The caller must Close it.
func LoadWhisper(path string) (Engine, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", path, err)
	}
	return &whisperEngine{model: model}, nil
}

func (e *whisperEngine) Multilingual() bool {
	return e.model.IsMultilingual()
}

func (e *whisperEngine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// Transcribe decodes mono float32 samples at 16kHz.
func (e *whisperEngine) Transcribe(samples []float32, opts Options) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, err := e.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create context: %w", err)
	}

	// English-only models reject SetLanguage whatever the code.
	multilingual := e.model.IsMultilingual()
	lang := "en"
	if multilingual {
		lang = opts.Language
		if lang == "" {
			lang = "auto"
		}
		if err := ctx.SetLanguage(lang); err != nil {
			return Result{}, fmt.Errorf("transcribe: set language %q: %w", lang, err)
		}
	}
	ctx.SetTranslate(opts.Translate)
	if opts.BeamSize > 0 {
		ctx.SetBeamSize(opts.BeamSize)
	}
	ctx.SetTemperature(opts.Temperature)
	ctx.SetMaxContext(0)
	if opts.Threads > 0 {
		ctx.SetThreads(opts.Threads)
	}
	if opts.InitialPrompt != "" {
		ctx.SetInitialPrompt(opts.InitialPrompt)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("transcribe: process: %w", err)
	}

	var segs []Segment
	for {
		seg, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("transcribe: next segment: %w", err)
		}
		segs = append(segs, Segment{Text: seg.Text, Start: seg.Start, End: seg.End})
	}

	detected := lang
	if lang == "auto" {
		detected = ctx.DetectedLanguage()
	}

	return Result{
		Text:     joinSegments(segs),
		Language: detected,
		Segments: segs,
	}, nil
}
