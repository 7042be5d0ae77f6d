package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/audio"
	"github.com/chaz8081/pushtalk/internal/config"
	"github.com/chaz8081/pushtalk/internal/desktop"
	"github.com/chaz8081/pushtalk/internal/hotkey"
	"github.com/chaz8081/pushtalk/internal/inject"
	"github.com/chaz8081/pushtalk/internal/session"
	"github.com/chaz8081/pushtalk/internal/transcribe"
	"github.com/chaz8081/pushtalk/internal/ui"
)

// runDictation runs the hotkey session and the UI shell until the user
// quits or a signal arrives. Failures also go to the error log file.
func (a *appState) runDictation(ctx context.Context) error {
	err := a.dictate(ctx)
	if err != nil {
		a.log().Error("dictation stopped", zap.Error(err))
	}
	return err
}

// dictate owns the calling goroutine for the UI shell.
func (a *appState) dictate(ctx context.Context) error {
	cfg := a.cfg
	log := a.log()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(a.outWriter(), cfg)
	log.Info("recognition backend",
		zap.String("device", cfg.Recognition.Device),
		zap.String("compute_type", cfg.Recognition.ComputeType))

	manager := a.newManager(cfg, log)
	defer manager.Close()

	modelStart := time.Now()
	if err := manager.Load(ctx, cfg.ActiveModel(), cfg.Recognition.Translate); err != nil {
		return fmt.Errorf("load model %s: %w", cfg.ActiveModel(), err)
	}
	log.Info("model loaded",
		zap.String("model", manager.Current()),
		zap.Duration("took", time.Since(modelStart).Round(time.Millisecond)))

	recorder, err := audio.NewRecorder(audio.Options{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		FrameMS:    cfg.Audio.FrameMS,
		QueueSize:  cfg.Audio.QueueSize,
		Logger:     log.Named("audio"),
	})
	if err != nil {
		return fmt.Errorf("initialize audio recorder: %w (check the microphone permission for this terminal)", err)
	}
	defer recorder.Close()

	injector := inject.New(desktop.Clipboard{}, desktop.NewKeyboard(), inject.Options{
		Method:           cfg.Inject.Method,
		FocusDelay:       cfg.Inject.FocusDelay,
		PasteDelay:       cfg.Inject.PasteDelay,
		RestoreClipboard: cfg.Inject.RestoreClipboard,
		Logger:           log.Named("inject"),
	})

	sess := session.New(session.Options{
		Store:        config.NewStore(a.storePath(), cfg),
		Recorder:     recorder,
		Engine:       manager,
		Sink:         injector,
		CaptureFocus: func() inject.Focus { return desktop.CaptureFocus() },
		Logger:       log.Named("session"),
	})

	var detector ui.Detector
	if cfg.Widget.HideInFullscreen {
		detector = desktop.Fullscreen{}
	}
	shell, err := ui.New(cfg.UI.Shell, ui.Options{
		Controller: sess,
		Widget:     cfg.Widget,
		Detector:   detector,
		Logger:     log.Named("ui"),
		OnQuit:     stop,
	})
	if err != nil {
		return err
	}

	// The listener is never stopped: gohook's cleanup can crash, and the
	// process exits right after shutdown.
	listener := hotkey.NewListener(cfg.Hotkey.Key, cfg.Hotkey.Mode)
	go listener.Start()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- sess.Run(ctx, listener.Events())
		stop()
	}()

	log.Info("ready",
		zap.String("hotkey", listener.Key()),
		zap.String("mode", cfg.Hotkey.Mode),
		zap.String("shell", cfg.UI.Shell))

	shellErr := shell.Run(ctx)
	stop()

	err = <-loopErr
	sess.Wait()
	log.Info("goodbye")
	return errors.Join(err, shellErr)
}

func (a *appState) newManager(cfg *config.Config, log *zap.Logger) *transcribe.Manager {
	return transcribe.NewManager(transcribe.ManagerOptions{
		ModelsDir:    cfg.ModelsDir,
		AutoDownload: cfg.Recognition.AutoDownload,
		Logger:       log.Named("transcribe"),
		Loader:       a.loader,
	})
}

// printBanner displays the startup configuration summary.
func printBanner(w io.Writer, cfg *config.Config) {
	mode := "dictation"
	if cfg.Recognition.Translate {
		mode = "translate"
	}
	fmt.Fprintln(w, "=== pushtalk ===")
	fmt.Fprintf(w, "  Model:   %s (%s)\n", cfg.ActiveModel(), mode)
	fmt.Fprintf(w, "  Hotkey:  %s (%s mode)\n", cfg.Hotkey.Key, cfg.Hotkey.Mode)
	fmt.Fprintf(w, "  Audio:   %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Fprintf(w, "  Inject:  %s\n", cfg.Inject.Method)
	fmt.Fprintf(w, "  UI:      %s\n", cfg.UI.Shell)
	fmt.Fprintln(w, "================")
}
