package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/audio"
	"github.com/chaz8081/pushtalk/internal/config"
	"github.com/chaz8081/pushtalk/internal/transcribe"
)

type transcribeFlags struct {
	translate bool
	model     string
	segments  bool
}

func newTranscribeCmd(app *appState) *cobra.Command {
	var flags transcribeFlags
	cmd := &cobra.Command{
		Use:   "transcribe <file.wav>",
		Short: "Transcribe a 16 kHz WAV file and print the text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("translate") {
				flags.translate = app.cfg.Recognition.Translate
			}
			return app.transcribeFile(cmd, args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.translate, "translate", false, "Render the speech as English text (default: recognition.translate)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model name or path (default: the model for the chosen mode)")
	cmd.Flags().BoolVar(&flags.segments, "segments", false, "Print timed segments and the detected language")
	return cmd
}

func (a *appState) transcribeFile(cmd *cobra.Command, path string, flags transcribeFlags) error {
	samples, rate, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}
	if rate != config.WhisperSampleRate {
		return fmt.Errorf("%s is %d Hz; resample to %d Hz mono first", path, rate, config.WhisperSampleRate)
	}

	cfg := *a.cfg
	cfg.Recognition.Translate = flags.translate
	model := flags.model
	if model == "" {
		model = cfg.ActiveModel()
	}

	manager := a.newManager(&cfg, a.log())
	defer manager.Close()
	if err := manager.Load(cmd.Context(), model, flags.translate); err != nil {
		return fmt.Errorf("load model %s: %w", model, err)
	}

	opts := transcribe.OptionsFromConfig(&cfg)
	opts.SampleRate = rate

	start := time.Now()
	res, err := manager.Transcribe(cmd.Context(), samples, opts)
	if err != nil {
		return err
	}
	a.log().Debug("transcribed file",
		zap.String("path", path),
		zap.Duration("audio", time.Duration(len(samples))*time.Second/config.WhisperSampleRate),
		zap.Duration("took", time.Since(start).Round(time.Millisecond)))

	out := a.outWriter()
	if flags.segments {
		if res.Language != "" {
			fmt.Fprintf(out, "Language: %s (%s)\n", transcribe.LanguageName(res.Language), res.Language)
		}
		for _, seg := range res.Segments {
			fmt.Fprintf(out, "[%s -> %s] %s\n", fmtStamp(seg.Start), fmtStamp(seg.End), seg.Text)
		}
		return nil
	}
	if res.Empty() {
		a.log().Warn("no speech detected", zap.String("path", path))
		return nil
	}
	fmt.Fprintln(out, res.Text)
	return nil
}

func fmtStamp(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	m := d / time.Minute
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%05.2f", int(m), s)
}
