package ui

import (
	"context"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/session"
)

// trayShell is a tray-only UI: the icon color carries the state and there
// is no floating window to show or hide.
type trayShell struct {
	opts    Options
	log     *zap.Logger
	updates chan session.Status
}

func newTrayShell(opts Options) *trayShell {
	return &trayShell{
		opts:    opts,
		log:     opts.Logger,
		updates: make(chan session.Status, 1),
	}
}

func (s *trayShell) Run(ctx context.Context) error {
	st := follow(s.opts.Controller, s.push)
	systray.Run(func() { s.onReady(ctx, st) }, func() {})
	return nil
}

// push keeps only the latest status so the session loop never blocks.
func (s *trayShell) push(st session.Status) {
	for {
		select {
		case s.updates <- st:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *trayShell) onReady(ctx context.Context, st session.Status) {
	s.render(st)

	translate := systray.AddMenuItemCheckbox(translateLabel, "Render speech as English text", st.Translate)
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit pushtalk")

	toggled := make(chan struct{}, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				systray.Quit()
				return

			case st := <-s.updates:
				s.render(st)
				if st.Translate {
					translate.Check()
				} else {
					translate.Uncheck()
				}

			case <-translate.ClickedCh:
				translate.Disable()
				toggleTranslate(ctx, s.opts.Controller, s.log, func() { toggled <- struct{}{} })

			case <-toggled:
				translate.Enable()
				if s.opts.Controller.Status().Translate {
					translate.Check()
				} else {
					translate.Uncheck()
				}

			case <-quit.ClickedCh:
				s.opts.OnQuit()
				systray.Quit()
				return
			}
		}
	}()
}

func (s *trayShell) render(st session.Status) {
	systray.SetIcon(trayIcon(st))
	systray.SetTooltip(StatusText(st))
}
