package ui

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/config"
	"github.com/chaz8081/pushtalk/internal/session"
)

// Controller is the part of the session the UI drives.
type Controller interface {
	Status() session.Status
	Subscribe(fn func(session.Status))
	ToggleTranslate(ctx context.Context) error
}

// Shell runs a UI event loop. Run must be called on the main goroutine and
// returns when the user quits or ctx is cancelled.
type Shell interface {
	Run(ctx context.Context) error
}

// Options configures a Shell.
type Options struct {
	Controller Controller
	Widget     config.WidgetConfig
	// Detector enables fullscreen auto-hide when non-nil.
	Detector Detector
	Logger   *zap.Logger
	// OnQuit runs when the user picks Quit.
	OnQuit func()
}

// New returns the shell named kind: "fyne" or "tray".
func New(kind string, opts Options) (Shell, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OnQuit == nil {
		opts.OnQuit = func() {}
	}
	if opts.Widget.FullscreenPoll <= 0 {
		opts.Widget.FullscreenPoll = time.Second
	}
	switch kind {
	case "fyne", "":
		return newFyneShell(opts), nil
	case "tray":
		return newTrayShell(opts), nil
	default:
		return nil, fmt.Errorf("ui: unknown shell %q (supported: fyne, tray)", kind)
	}
}

// follow subscribes fn and then reads the current status, so a change
// published between the two is never lost.
func follow(ctrl Controller, fn func(session.Status)) session.Status {
	ctrl.Subscribe(fn)
	return ctrl.Status()
}

// toggleTranslate runs the model swap off the UI loop and reports failures.
func toggleTranslate(ctx context.Context, ctrl Controller, log *zap.Logger, done func()) {
	go func() {
		if err := ctrl.ToggleTranslate(ctx); err != nil {
			log.Error("toggle translate mode", zap.Error(err))
		}
		done()
	}()
}

// trayIcon returns icon bytes in the format the platform tray expects.
func trayIcon(st session.Status) []byte {
	data := TrayIconPNG(ColorFor(st))
	if runtime.GOOS == "windows" {
		return wrapICO(data, TrayIconSize)
	}
	return data
}

const translateLabel = "Translate to English"
