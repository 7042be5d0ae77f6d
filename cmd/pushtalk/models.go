package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chaz8081/pushtalk/internal/models"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and download whisper models",
	}
	cmd.AddCommand(newModelsListCmd(app))
	cmd.AddCommand(newModelsDownloadCmd(app))
	return cmd
}

func newModelsListCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the known models and which are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := app.cfg.ModelsDir
			tw := tabwriter.NewWriter(app.outWriter(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tLANGUAGES\tTRANSLATE\tINSTALLED\tROLE")
			for _, name := range models.Names() {
				m, _ := models.Lookup(name)
				res, err := models.Resolve(name, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d MB\t%s\t%s\t%s\t%s\n",
					m.Name, m.SizeMB, languages(m), yesNo(m.Translates), yesNo(!res.NeedsDownload), app.role(name))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(app.outWriter(), "\nModels directory: %s\n", dir)
			return nil
		},
	}
}

func newModelsDownloadCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "download [model...]",
		Short: "Download and verify models (default: the dictation and translate models)",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = app.configuredModels()
			}
			for _, name := range names {
				if err := app.downloadModel(cmd, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *appState) downloadModel(cmd *cobra.Command, name string) error {
	resolved, err := models.Resolve(name, a.cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("%w: %s (known: %v)", err, name, models.Names())
	}
	if resolved.IsCustomPath {
		return fmt.Errorf("download expects a named model; got custom path %s", resolved.Path)
	}

	if !resolved.NeedsDownload {
		if err := models.VerifyFileChecksum(resolved.Path, resolved.SHA256); err != nil {
			a.log().Warn("model checksum verification failed; downloading fresh copy",
				zap.String("model", resolved.Name), zap.Error(err))
			resolved.NeedsDownload = true
		}
	}
	if !resolved.NeedsDownload {
		fmt.Fprintf(a.outWriter(), "Model %s already present at %s\n", resolved.Name, resolved.Path)
		return nil
	}

	a.log().Info("downloading model",
		zap.String("model", resolved.Name),
		zap.Int("size_mb", resolved.SizeMB),
		zap.String("path", resolved.Path))
	if err := models.Download(cmd.Context(), models.DownloadOptions{
		URL:            resolved.URL(),
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return fmt.Errorf("download model %s: %w", resolved.Name, err)
	}

	fmt.Fprintf(a.outWriter(), "Model %s installed at %s\n", resolved.Name, resolved.Path)
	return nil
}

// configuredModels returns the dictation and translate models, deduplicated.
func (a *appState) configuredModels() []string {
	names := []string{a.cfg.Recognition.Model}
	if t := a.cfg.Recognition.TranslateModel; t != names[0] {
		names = append(names, t)
	}
	return names
}

func (a *appState) role(name string) string {
	switch {
	case name == a.cfg.Recognition.Model && name == a.cfg.Recognition.TranslateModel:
		return "dictation, translate"
	case name == a.cfg.Recognition.Model:
		return "dictation"
	case name == a.cfg.Recognition.TranslateModel:
		return "translate"
	}
	return ""
}

func languages(m models.Model) string {
	if m.Multilingual {
		return "multi"
	}
	return "en"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
