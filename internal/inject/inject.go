// Package inject delivers transcribed text into the application that was
// focused when recording started, by clipboard paste or simulated typing.
package inject

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Focus is a window captured at recording start.
type Focus interface {
	Restore() error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard synthesizes input into the focused window.
type Keyboard interface {
	// Paste sends the platform paste shortcut.
	Paste() error
	Type(text string) error
}

// Options configures an Injector.
type Options struct {
	Method           string // "paste" or "type"
	FocusDelay       time.Duration
	PasteDelay       time.Duration
	RestoreClipboard bool
	Logger           *zap.Logger
}

// Injector handles typing or pasting text into the active application.
type Injector struct {
	clip  Clipboard
	keys  Keyboard
	opts  Options
	log   *zap.Logger
	sleep func(time.Duration)
}

// New creates an Injector backed by the given clipboard and keyboard.
func New(clip Clipboard, keys Keyboard, opts Options) *Injector {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Method == "" {
		opts.Method = "paste"
	}
	return &Injector{clip: clip, keys: keys, opts: opts, log: log, sleep: time.Sleep}
}

// Deliver restores focus to the captured window and sends text to it.
// Empty text is a no-op. Focus restoration is best-effort.
func (inj *Injector) Deliver(focus Focus, text string) error {
	if text == "" {
		return nil
	}

	if focus != nil {
		if err := focus.Restore(); err != nil {
			inj.log.Warn("restore focus failed, pasting into current window", zap.Error(err))
		}
		inj.sleep(inj.opts.FocusDelay)
	}

	var err error
	switch inj.opts.Method {
	case "type":
		err = inj.typeText(text)
	default:
		err = inj.paste(text)
	}
	if err != nil {
		inj.log.Error("text delivery failed", zap.String("method", inj.opts.Method), zap.Error(err))
	}
	return err
}

// typeText simulates individual keystrokes. Leaves the clipboard untouched
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	if err := inj.keys.Type(text); err != nil {
		return fmt.Errorf("inject: type text: %w", err)
	}
	return nil
}

// paste copies text to the clipboard and sends the paste shortcut.
func (inj *Injector) paste(text string) error {
	var prev string
	var havePrev bool
	if inj.opts.RestoreClipboard {
		p, err := inj.clip.Read()
		if err != nil {
			inj.log.Debug("read clipboard before paste", zap.Error(err))
		} else {
			prev, havePrev = p, true
		}
	}

	if err := inj.clip.Write(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}
	inj.sleep(inj.opts.PasteDelay)

	if err := inj.keys.Paste(); err != nil {
		return fmt.Errorf("inject: send paste shortcut: %w", err)
	}

	if havePrev {
		// The target app reads the clipboard asynchronously.
		inj.sleep(inj.opts.PasteDelay)
		if err := inj.clip.Write(prev); err != nil {
			return fmt.Errorf("inject: restore clipboard: %w", err)
		}
	}
	return nil
}
