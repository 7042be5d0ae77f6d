// Package hotkey provides a global push-to-talk key listener using gohook.
// It supports "hold" mode (press to start, release to stop) and
// "toggle" mode (press to start, press again to stop).
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType indicates whether recording should start or stop.
type EventType int

const (
	// EventStart signals that the hotkey was activated (start recording).
	EventStart EventType = iota
	// EventStop signals that the hotkey was deactivated (stop recording).
	EventStop
)

func (t EventType) String() string {
	if t == EventStart {
		return "start"
	}
	return "stop"
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener watches one key and emits start/stop events.
type Listener struct {
	key  string
	ch   chan Event
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	track tracker
}

// NewListener creates a Listener for a single key name (e.g. "f9") and mode.
// mode must be "hold" or "toggle".
func NewListener(key, mode string) *Listener {
	return &Listener{
		key:   NormalizeKey(key),
		ch:    make(chan Event, 16),
		done:  make(chan struct{}),
		track: tracker{toggle: mode == "toggle"},
	}
}

// NormalizeKey lowercases and trims a key name the way gohook names keys.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Key returns the normalized key name the listener filters on.
func (l *Listener) Key() string {
	return l.key
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	keys := []string{l.key}

	hook.Register(hook.KeyDown, keys, func(hook.Event) { l.keyDown() })
	hook.Register(hook.KeyUp, keys, func(hook.Event) { l.keyUp() })

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

func (l *Listener) keyDown() {
	l.mu.Lock()
	ev, ok := l.track.down()
	l.mu.Unlock()
	if ok {
		l.emit(ev)
	}
}

func (l *Listener) keyUp() {
	l.mu.Lock()
	ev, ok := l.track.up()
	l.mu.Unlock()
	if ok {
		l.emit(ev)
	}
}

func (l *Listener) emit(t EventType) {
	select {
	case l.ch <- Event{Type: t}:
	default: // don't block the hook thread if the channel is full
	}
}

// tracker turns raw key transitions into start/stop events. Auto-repeat
// key-downs while the key is held produce nothing.
type tracker struct {
	toggle  bool
	pressed bool
	active  bool // toggle mode: recording started by the last press
}

func (t *tracker) down() (EventType, bool) {
	if t.pressed {
		return 0, false
	}
	t.pressed = true
	if !t.toggle {
		return EventStart, true
	}
	t.active = !t.active
	if t.active {
		return EventStart, true
	}
	return EventStop, true
}

func (t *tracker) up() (EventType, bool) {
	if !t.pressed {
		return 0, false
	}
	t.pressed = false
	if t.toggle {
		return 0, false
	}
	return EventStop, true
}
