package ui

import (
	"context"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/session"
)

const appID = "io.github.chaz8081.pushtalk"

// fyneShell shows a borderless circle window plus a tray menu. All widget
// state is touched on the fyne goroutine only.
type fyneShell struct {
	opts Options
	log  *zap.Logger

	app    fyne.App
	win    fyne.Window
	circle *canvas.Circle
	desk   desktop.App

	menu          *fyne.Menu
	translateItem *fyne.MenuItem

	status  session.Status
	pulse   Pulse
	hider   *AutoHider
	visible bool
}

func newFyneShell(opts Options) *fyneShell {
	return &fyneShell{opts: opts, log: opts.Logger}
}

func (s *fyneShell) Run(ctx context.Context) error {
	s.app = app.NewWithID(appID)
	s.buildWindow()
	s.buildTray(ctx)

	st := follow(s.opts.Controller, func(st session.Status) {
		fyne.Do(func() { s.apply(st) })
	})
	s.pulse.Reset(st.State)
	s.status = st
	s.apply(st)

	stop := make(chan struct{})
	go s.animate(stop)
	if s.opts.Detector != nil && s.opts.Widget.HideInFullscreen {
		s.hider = NewAutoHider(s.opts.Detector)
		if s.opts.Widget.StartMinimized {
			s.hider.SetMinimized(true)
		}
		go s.watchFullscreen(stop)
	}
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(s.app.Quit)
		case <-stop:
		}
	}()

	if !s.opts.Widget.StartMinimized {
		s.show()
	}
	s.app.Run()
	close(stop)
	return nil
}

func (s *fyneShell) buildWindow() {
	if drv, ok := s.app.Driver().(desktop.Driver); ok {
		s.win = drv.CreateSplashWindow()
	} else {
		s.win = s.app.NewWindow("pushtalk")
	}

	size := float32(s.opts.Widget.Size)
	s.circle = canvas.NewCircle(ColorFor(s.status))
	s.win.SetContent(container.NewStack(s.circle))
	s.win.Resize(fyne.NewSize(size, size))
	s.win.SetFixedSize(true)
	s.win.SetCloseIntercept(s.minimize)
}

func (s *fyneShell) buildTray(ctx context.Context) {
	desk, ok := s.app.(desktop.App)
	if !ok {
		s.log.Warn("system tray not supported by this driver")
		return
	}
	s.desk = desk

	s.translateItem = fyne.NewMenuItem(translateLabel, nil)
	s.translateItem.Checked = s.status.Translate
	s.translateItem.Action = func() {
		s.translateItem.Disabled = true
		s.refreshTray()
		toggleTranslate(ctx, s.opts.Controller, s.log, func() {
			fyne.Do(func() {
				s.translateItem.Disabled = false
				s.refreshTray()
			})
		})
	}

	quit := fyne.NewMenuItem("Quit", func() {
		s.opts.OnQuit()
		s.app.Quit()
	})
	quit.IsQuit = true

	s.menu = fyne.NewMenu("pushtalk",
		s.translateItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Show", s.show),
		fyne.NewMenuItem("Minimize", s.minimize),
		fyne.NewMenuItemSeparator(),
		quit,
	)
	desk.SetSystemTrayMenu(s.menu)
	s.refreshTray()
}

// apply runs on the fyne goroutine.
func (s *fyneShell) apply(st session.Status) {
	if st.State != s.status.State {
		s.pulse.Reset(st.State)
	}
	s.status = st
	s.paint(s.pulse.Alpha())
	if s.translateItem != nil {
		s.translateItem.Checked = st.Translate
	}
	s.refreshTray()
}

func (s *fyneShell) paint(alpha uint8) {
	c := ColorFor(s.status)
	c.A = alpha
	s.circle.FillColor = c
	s.circle.Refresh()
}

func (s *fyneShell) refreshTray() {
	if s.desk == nil {
		return
	}
	s.desk.SetSystemTrayIcon(fyne.NewStaticResource("pushtalk.png", TrayIconPNG(ColorFor(s.status))))
	s.menu.Refresh()
}

func (s *fyneShell) animate(stop <-chan struct{}) {
	t := time.NewTicker(PulseInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			fyne.Do(func() {
				if !s.pulse.Animated() || !s.visible {
					return
				}
				s.paint(s.pulse.Advance())
			})
		}
	}
}

func (s *fyneShell) watchFullscreen(stop <-chan struct{}) {
	t := time.NewTicker(s.opts.Widget.FullscreenPoll)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			switch s.hider.Poll() {
			case Hide:
				s.log.Debug("fullscreen app in front, hiding widget")
				fyne.Do(s.hide)
			case Show:
				s.log.Debug("fullscreen app gone, showing widget")
				fyne.Do(s.show)
			}
		}
	}
}

func (s *fyneShell) show() {
	if s.hider != nil {
		s.hider.SetMinimized(false)
		if s.hider.Covered() {
			return
		}
	}
	s.visible = true
	s.win.Show()
}

func (s *fyneShell) minimize() {
	if s.hider != nil {
		s.hider.SetMinimized(true)
	}
	s.hide()
}

func (s *fyneShell) hide() {
	s.visible = false
	s.win.Hide()
}
