// Package desktop binds the OS capabilities pushtalk needs (window focus,
// clipboard, synthetic keystrokes, fullscreen detection) to robotgo.
package desktop

import (
	"fmt"
	"image"
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// Window is the foreground window captured at recording start.
type Window struct {
	Title   string
	PID     int
	restore func()
}

// CaptureFocus records the currently focused window.
func CaptureFocus() *Window {
	handle := robotgo.GetActive()
	return &Window{
		Title:   robotgo.GetTitle(),
		PID:     robotgo.GetPid(),
		restore: func() { robotgo.SetActive(handle) },
	}
}

// Restore brings the captured window back to the foreground.
func (w *Window) Restore() error {
	if w == nil || w.restore == nil {
		return fmt.Errorf("desktop: no window captured")
	}
	w.restore()
	return nil
}

// Clipboard is the system clipboard.
type Clipboard struct{}

func (Clipboard) Read() (string, error) {
	return robotgo.ReadAll()
}

func (Clipboard) Write(text string) error {
	return robotgo.WriteAll(text)
}

// Keyboard sends synthetic keystrokes to the focused window.
type Keyboard struct {
	modifier string
}

// NewKeyboard returns a Keyboard using the paste shortcut for this OS.
func NewKeyboard() Keyboard {
	return Keyboard{modifier: PasteModifier(runtime.GOOS)}
}

// PasteModifier returns the modifier that, with "v", pastes on goos.
func PasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

func (k Keyboard) Paste() error {
	return robotgo.KeyTap("v", k.modifier)
}

func (k Keyboard) Type(text string) error {
	robotgo.Type(text)
	return nil
}

// Fullscreen reports whether the foreground window of another process
// covers a whole monitor.
type Fullscreen struct{}

func (Fullscreen) Active() bool {
	pid := robotgo.GetPid()
	if pid == 0 || pid == os.Getpid() {
		return false
	}

	x, y, w, h := robotgo.GetBounds(pid)
	win := image.Rect(x, y, x+w, y+h)

	n := robotgo.DisplaysNum()
	displays := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		dx, dy, dw, dh := robotgo.GetDisplayBounds(i)
		displays = append(displays, image.Rect(dx, dy, dx+dw, dy+dh))
	}
	return coversAny(win, displays)
}

// coversAny reports whether win spans at least one display entirely.
func coversAny(win image.Rectangle, displays []image.Rectangle) bool {
	if win.Empty() {
		return false
	}
	for _, d := range displays {
		if !d.Empty() && d.In(win) {
			return true
		}
	}
	return false
}
